package ideas

import "time"

// DefaultThreshold is the number of consecutive remote failures that
// activates failover.
const DefaultThreshold = 3

// FailoverPolicy controls when the façade gives up on the remote backend.
//
// Two tiers can be active at once: the counter tier (Threshold) applies to
// every operation; the single-strike tier activates failover on the first
// connectivity failure of an idea or category read.
type FailoverPolicy struct {
	Threshold         int
	SingleStrikeReads bool
	ResetOnSuccess    bool

	// RemoteTimeout bounds each remote call. Zero means no limit.
	RemoteTimeout time.Duration
}

// DefaultFailoverPolicy returns the policy used when none is configured.
func DefaultFailoverPolicy() FailoverPolicy {
	return FailoverPolicy{
		Threshold:         DefaultThreshold,
		SingleStrikeReads: true,
		ResetOnSuccess:    false,
	}
}

func (p FailoverPolicy) threshold() int {
	if p.Threshold <= 0 {
		return DefaultThreshold
	}
	return p.Threshold
}
