package keypool

import "time"

// KeyStatus is a point-in-time view of one credential.
type KeyStatus struct {
	LastUsed            time.Time     `json:"last_used"`
	ID                  string        `json:"id"`
	MaskedSecret        string        `json:"masked_secret"`
	Requests            int           `json:"requests"`
	Limit               int           `json:"limit"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	CooldownRemaining   time.Duration `json:"cooldown_remaining"`
	Active              bool          `json:"active"`
	Available           bool          `json:"available"`
}

// Status is a point-in-time view of the whole pool.
type Status struct {
	Keys          []KeyStatus `json:"keys"`
	Total         int         `json:"total"`
	Active        int         `json:"active"`
	Disabled      int         `json:"disabled"`
	CoolingDown   int         `json:"cooling_down"`
	Available     int         `json:"available"`
	TotalRequests int         `json:"total_requests"`
	QueueLength   int         `json:"queue_length"`
}

// Status returns a snapshot of the pool. It does not modify any state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	now := m.now()
	st := Status{
		Total: len(m.keys),
		Keys:  make([]KeyStatus, 0, len(m.keys)),
	}

	for _, k := range m.keys {
		ks := KeyStatus{
			ID:                  k.cred.ID,
			MaskedSecret:        maskSecret(k.cred.Secret),
			Requests:            m.effectiveCountLocked(k, now),
			Limit:               m.cfg.RequestsPerWindow,
			LastUsed:            k.lastUsed,
			ConsecutiveFailures: k.failures,
			Active:              k.active,
			Available:           m.usableLocked(k, now),
		}
		if now.Before(k.cooldownUntil) {
			ks.CooldownRemaining = k.cooldownUntil.Sub(now)
		}

		switch {
		case !k.active:
			st.Disabled++
		case ks.CooldownRemaining > 0:
			st.Active++
			st.CoolingDown++
		default:
			st.Active++
		}
		if ks.Available {
			st.Available++
		}
		st.TotalRequests += ks.Requests
		st.Keys = append(st.Keys, ks)
	}
	m.mu.Unlock()

	st.QueueLength = m.QueueLen()
	return st
}

func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
