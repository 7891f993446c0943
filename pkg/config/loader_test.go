package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerops/notifykit/pkg/config"
)

type testSchedulerConfig struct {
	Interval  time.Duration `env:"TEST_RETRY_INTERVAL" envDefault:"1h"`
	MaxPerRun int           `env:"TEST_RETRY_MAX_PER_RUN" envDefault:"100"`
}

type testOverrideConfig struct {
	Threshold int `env:"TEST_PRIORITY_THRESHOLD" envDefault:"90"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		var cfg testSchedulerConfig
		err := config.Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, cfg.Interval)
		assert.Equal(t, 100, cfg.MaxPerRun)
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("TEST_PRIORITY_THRESHOLD", "95")
		var cfg testOverrideConfig
		err := config.Load(&cfg)
		require.NoError(t, err)
		assert.Equal(t, 95, cfg.Threshold)
	})

	t.Run("cached between calls", func(t *testing.T) {
		var first testSchedulerConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after the first load must not change the
		// cached value.
		t.Setenv("TEST_RETRY_MAX_PER_RUN", "5")
		var second testSchedulerConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first.MaxPerRun, second.MaxPerRun)
	})

	t.Run("nil pointer rejected", func(t *testing.T) {
		err := config.Load[testSchedulerConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
