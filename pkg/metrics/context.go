package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type newRelicContextKey struct{}

// NewRelicContextKey is the context key holding the *newrelic.Application that
// custom metrics and events are recorded against.
var NewRelicContextKey = newRelicContextKey{}

// WithApplication returns a context carrying app. Metric helpers are no-ops
// on contexts without one.
func WithApplication(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey, app)
}

// StartTransaction starts a New Relic transaction named name when ctx carries
// an application, and returns a context that method traces attach to. The
// returned end function must be called once the unit of work is done.
func StartTransaction(ctx context.Context, name string) (context.Context, func()) {
	app, ok := ctx.Value(NewRelicContextKey).(*newrelic.Application)
	if !ok {
		return ctx, func() {}
	}

	txn := app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn.End
}
