// Command counter funds a payer, creates a counter account and increments it,
// either against an in process runtime or a Solana RPC node.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/code-payments/counter-program/pkg/counter"
	pg "github.com/code-payments/counter-program/pkg/database/postgres"
	"github.com/code-payments/counter-program/pkg/ledger"
	ledger_memory "github.com/code-payments/counter-program/pkg/ledger/memory"
	ledger_postgres "github.com/code-payments/counter-program/pkg/ledger/postgres"
	"github.com/code-payments/counter-program/pkg/metrics"
	"github.com/code-payments/counter-program/pkg/solana"
	"github.com/code-payments/counter-program/pkg/solana/runtime"
)

var configPath = flag.String("config", "config.yaml", "configuration file path")

func main() {
	flag.Parse()

	logger := logrus.StandardLogger().WithField("type", "counter/main")

	config, err := loadConfig(viper.GetViper(), *configPath)
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		os.Exit(1)
	}

	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		metricsProvider, err = newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Error("error connecting to new relic")
			os.Exit(1)
		}
		defer metricsProvider.Shutdown(0)
	}

	configureLogger(config, metricsProvider)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = metrics.WithApplication(ctx, metricsProvider)

	if err := run(ctx, config); err != nil {
		logger.WithError(err).Error("counter session failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, config *Config) error {
	payer, err := config.payerKey()
	if err != nil {
		return err
	}

	var client solana.Client
	var rt *runtime.Runtime
	switch config.Mode {
	case modeRPC:
		client = solana.New(config.RPCEndpoint)
	case modeSimulate:
		store, err := newLedger(config)
		if err != nil {
			return err
		}

		rt = runtime.New(store, runtime.WithEnvConfigs())
		if err := rt.RegisterProgram(counter.ProgramKey, counter.Entrypoint); err != nil {
			return errors.Wrap(err, "failed to register counter program")
		}
		client = rt.Client(ctx)
	}

	res, err := newSession(client, config, payer).run(ctx)
	if rt != nil {
		printLogs(rt, res)
	}
	return err
}

func newLedger(config *Config) (ledger.Store, error) {
	if config.Ledger == ledgerMemory {
		return ledger_memory.New(), nil
	}

	db, err := pg.Open(&config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}
	return ledger_postgres.New(db), nil
}

// printLogs writes the program logs of every transaction the session sent to
// the simulated runtime.
func printLogs(rt *runtime.Runtime, res *sessionResult) {
	if res == nil {
		return
	}

	for _, sig := range res.Signatures {
		logs, err := rt.GetTransactionLogs(sig)
		if err != nil {
			continue
		}

		log := logrus.StandardLogger().WithField("signature", base58.Encode(sig[:]))
		for _, line := range logs {
			log.Debug(line)
		}
	}
}

func configureLogger(config *Config, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stdout)
}
