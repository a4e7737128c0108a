package validator

import "time"

// Config holds the validator thresholds. Amounts are in VND.
type Config struct {
	// LargeAmount flags any transaction above it.
	LargeAmount float64
	// LowConfidence flags candidates scored below it.
	LowConfidence float64
	// LookbackMonths is how much history the spending-pattern check reads.
	LookbackMonths int
	// MinSamples is the least history needed before the spending-pattern check runs.
	MinSamples int
	// StdDevMultiplier is k in mean + k·stddev.
	StdDevMultiplier float64
	// AverageMultiplier is m in mean × m.
	AverageMultiplier float64
	// SanityCeiling is the largest amount considered plausible at all.
	SanityCeiling float64
	// Concurrency bounds how many candidates are checked at once.
	Concurrency int
	// StatsTTL is how long category statistics are reused.
	StatsTTL time.Duration
	// BatchSize and BatchWait control how history lookups are grouped.
	BatchSize int
	BatchWait time.Duration
}

// DefaultConfig returns the documented validator defaults.
func DefaultConfig() Config {
	return Config{
		LargeAmount:       10_000_000,
		LowConfidence:     0.5,
		LookbackMonths:    3,
		MinSamples:        5,
		StdDevMultiplier:  2,
		AverageMultiplier: 3,
		SanityCeiling:     1_000_000_000,
		Concurrency:       8,
		StatsTTL:          time.Minute,
		BatchSize:         16,
		BatchWait:         5 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LargeAmount <= 0 {
		c.LargeAmount = d.LargeAmount
	}
	if c.LowConfidence <= 0 {
		c.LowConfidence = d.LowConfidence
	}
	if c.LookbackMonths <= 0 {
		c.LookbackMonths = d.LookbackMonths
	}
	if c.MinSamples <= 0 {
		c.MinSamples = d.MinSamples
	}
	if c.StdDevMultiplier <= 0 {
		c.StdDevMultiplier = d.StdDevMultiplier
	}
	if c.AverageMultiplier <= 0 {
		c.AverageMultiplier = d.AverageMultiplier
	}
	if c.SanityCeiling <= 0 {
		c.SanityCeiling = d.SanityCeiling
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.StatsTTL <= 0 {
		c.StatsTTL = d.StatsTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.BatchWait <= 0 {
		c.BatchWait = d.BatchWait
	}
	return c
}
