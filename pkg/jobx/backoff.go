package jobx

import "time"

// BackoffKind selects the retry delay strategy.
type BackoffKind string

const (
	BackoffExponential BackoffKind = "exponential"
	BackoffFixed       BackoffKind = "fixed"
)

// BackoffPolicy computes the delay before a retry attempt. The policy is
// stored on the job so the broker applies it without worker involvement.
type BackoffPolicy struct {
	Kind     BackoffKind   `json:"kind"`
	Delay    time.Duration `json:"delay"`
	MaxDelay time.Duration `json:"max_delay,omitempty"`
}

// DefaultBackoff is exponential starting at 5s, capped at 5m.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		Kind:     BackoffExponential,
		Delay:    5 * time.Second,
		MaxDelay: 5 * time.Minute,
	}
}

// Next returns the delay before the given retry attempt. attempt is the
// number of attempts already made (1 after the first failure).
func (p BackoffPolicy) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := p.Delay
	if base <= 0 {
		base = DefaultBackoff().Delay
	}

	d := base
	if p.Kind != BackoffFixed {
		for i := 1; i < attempt; i++ {
			d *= 2
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				return p.MaxDelay
			}
		}
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
