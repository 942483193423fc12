package main

import (
	"context"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/counter-program/pkg/testutil"
)

func TestRun_Simulate(t *testing.T) {
	config := testConfig()
	config.Payer = base58.Encode(testutil.GenerateSolanaKeypair(t))

	require.NoError(t, run(context.Background(), config))
}

func TestRun_InvalidPayer(t *testing.T) {
	config := testConfig()
	config.Payer = base58.Encode([]byte{1})

	assert.Error(t, run(context.Background(), config))
}

func TestConfigureLogger(t *testing.T) {
	reset := testutil.DisableLogging()
	defer reset()

	level := logrus.GetLevel()
	defer logrus.SetLevel(level)

	config := defaultConfig
	config.LogLevel = "WARN"
	configureLogger(&config, nil)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	config.LogLevel = "loud"
	configureLogger(&config, nil)
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())

	_, ok := logrus.StandardLogger().Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}
