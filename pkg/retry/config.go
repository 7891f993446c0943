package retry

import "time"

type Config struct {
	Interval      time.Duration `env:"RETRY_SWEEP_INTERVAL" envDefault:"1h"` // Interval is the period between sweeps.
	MaxPerRun     int           `env:"RETRY_MAX_PER_RUN" envDefault:"100"`   // MaxPerRun caps dispatched retries per sweep.
	MaxRetries    int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`    // MaxRetries is the per-delivery retry budget.
	CourtesyDelay time.Duration `env:"RETRY_COURTESY_DELAY" envDefault:"1s"` // CourtesyDelay is the pause between dispatched items.
	SendTimeout   time.Duration `env:"RETRY_SEND_TIMEOUT" envDefault:"5s"`   // SendTimeout bounds each channel sender call.
}

// Options converts the config into scheduler options.
func (c Config) Options() []SchedulerOption {
	return []SchedulerOption{
		WithInterval(c.Interval),
		WithMaxPerRun(c.MaxPerRun),
		WithMaxRetries(c.MaxRetries),
		WithCourtesyDelay(c.CourtesyDelay),
		WithSendTimeout(c.SendTimeout),
	}
}
