package keypool

import "time"

// Config holds the pool limits.
type Config struct {
	// RequestsPerWindow is how many requests one credential may serve per Window.
	RequestsPerWindow int
	// Window is the length of a credential's request window.
	Window time.Duration
	// Cooldown is how long a credential is skipped after a rate-limit response.
	Cooldown time.Duration
	// FailureCeiling is the number of consecutive failures that disables a credential.
	FailureCeiling int
	// SweepInterval is how often expired windows and cooldowns are cleared.
	SweepInterval time.Duration
	// QueuePause is the pause between queued items.
	QueuePause time.Duration
	// MaxRetries bounds how often a queued request is retried.
	MaxRetries int
}

// DefaultConfig returns the documented pool defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 15,
		Window:            time.Minute,
		Cooldown:          60 * time.Second,
		FailureCeiling:    5,
		SweepInterval:     10 * time.Second,
		QueuePause:        100 * time.Millisecond,
		MaxRetries:        3,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestsPerWindow <= 0 {
		c.RequestsPerWindow = d.RequestsPerWindow
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.FailureCeiling <= 0 {
		c.FailureCeiling = d.FailureCeiling
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.QueuePause <= 0 {
		c.QueuePause = d.QueuePause
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}
