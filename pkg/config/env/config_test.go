package env

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/code-payments/counter-program/pkg/config"
)

func TestConfigDoesntExist(t *testing.T) {
	const env = "ENV_CONFIG_TEST_VAR"
	os.Setenv(env, "default")

	v, err := NewConfig(env).Get(context.Background())
	assert.Equal(t, []byte("default"), v)
	assert.Nil(t, err)

	os.Unsetenv(env)

	v, err = NewConfig(env).Get(context.Background())
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestTypedConfigs(t *testing.T) {
	t.Setenv("ENV_CONFIG_TEST_UINT64", "1400000")
	t.Setenv("ENV_CONFIG_TEST_FLOAT64", "1.5")
	t.Setenv("ENV_CONFIG_TEST_BOOL", "false")

	ctx := context.Background()
	assert.EqualValues(t, 1_400_000, NewUint64Config("ENV_CONFIG_TEST_UINT64", 1).Get(ctx))
	assert.Equal(t, 1.5, NewFloat64Config("env_config_test_float64", 2).Get(ctx))
	assert.False(t, NewBoolConfig("ENV_CONFIG_TEST_BOOL", true).Get(ctx))
	assert.EqualValues(t, 7, NewUint64Config("ENV_CONFIG_TEST_MISSING", 7).Get(ctx))
}
