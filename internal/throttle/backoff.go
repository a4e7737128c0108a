package throttle

import (
	"time"

	"github.com/Veraticus/spice-ingest/internal/common"
)

// ComputeDelay returns how long to wait before the next call.
//
// The delay is BaseDelay doubled once per consecutive rate-limit error and
// capped at MaxBackoff, plus delay*Jitter*rnd(). If the result would start the
// call sooner than MinInterval after the previous one, it is padded up to
// MinInterval-sinceLast. rnd must return values in [0,1).
func ComputeDelay(cfg Config, consecutiveErrors int, sinceLast time.Duration, rnd func() float64) time.Duration {
	delay := cfg.BaseDelay
	for i := 0; i < consecutiveErrors && delay < cfg.MaxBackoff; i++ {
		delay *= 2
		if delay <= 0 {
			delay = cfg.MaxBackoff
		}
	}
	if cfg.MaxBackoff > 0 && delay > cfg.MaxBackoff {
		delay = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 && rnd != nil && delay > 0 {
		delay += time.Duration(float64(delay) * cfg.Jitter * rnd())
	}

	if gap := cfg.MinInterval - sinceLast; gap > delay {
		delay = gap
	}
	return delay
}

// IsRateLimitShaped reports whether err looks like a provider throttling
// response. It is the same classifier the key pool uses.
func IsRateLimitShaped(err error) bool {
	return common.IsRateLimitShaped(err)
}
