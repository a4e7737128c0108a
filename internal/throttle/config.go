package throttle

import "time"

// Config holds the throttler limits.
type Config struct {
	// MaxConcurrency is the number of calls allowed in flight at once.
	MaxConcurrency int
	// BaseDelay is the delay before a call when no rate-limit errors are outstanding.
	BaseDelay time.Duration
	// MaxBackoff caps the exponential part of the delay.
	MaxBackoff time.Duration
	// Jitter is the fraction of the delay added at random, in [0,1].
	Jitter float64
	// MinInterval is the minimum spacing between call starts.
	MinInterval time.Duration
}

// DefaultConfig returns the documented throttler defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 3,
		BaseDelay:      200 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Jitter:         0.1,
		MinInterval:    100 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
	if c.Jitter > 1 {
		c.Jitter = 1
	}
	if c.MinInterval < 0 {
		c.MinInterval = 0
	}
	return c
}
