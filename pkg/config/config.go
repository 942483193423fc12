package config

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue indicates no value was set for the config
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the use of a Config after calling Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an interface for getting a configuration value
type Config interface {
	// Get returns the latest config value
	Get(ctx context.Context) (interface{}, error)

	// Shutdown signals the config to stop all underlying resources
	Shutdown()
}

// Typed is a Config whose raw values are converted to T.
type Typed[T any] interface {
	// Get returns the current value, falling back to the last known value
	// when the source fails.
	Get(ctx context.Context) T

	// GetSafe is Get, but also reports the source failure.
	GetSafe(ctx context.Context) (T, error)

	Shutdown()
}

type (
	Bool    = Typed[bool]
	Float64 = Typed[float64]
	Uint64  = Typed[uint64]
)
