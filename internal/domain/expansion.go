package domain

// ExpansionKind names the broadening strategy of one expansion attempt.
type ExpansionKind string

// Expansion kinds.
const (
	ExpansionCommunities ExpansionKind = "communities"
	ExpansionRelaxFilter ExpansionKind = "relax_filter"
)

// ExpansionAttempt is the telemetry record of one adaptive-expansion retry.
type ExpansionAttempt struct {
	Kind          ExpansionKind `json:"type"`
	Value         string        `json:"value"`
	Success       bool          `json:"success"`
	SignalsGained int           `json:"signals_gained"`
}

// RetryPolicy bounds adaptive expansion. The cap is explicit so it is visible
// and testable; unbounded retry loops are disallowed.
type RetryPolicy struct {
	MaxAttempts int
	MinYield    int
}

// DefaultRetryPolicy matches the documented behavior: at most one expansion
// attempt, triggered when fewer than ten signals survive filtering.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1, MinYield: 10}
}

// Satisfied reports whether the current signal count meets the yield target.
func (p RetryPolicy) Satisfied(signals int) bool { return signals >= p.MinYield }

// Allowed reports whether another attempt may run after the given number of
// completed attempts.
func (p RetryPolicy) Allowed(attempted int) bool { return attempted < p.MaxAttempts }
