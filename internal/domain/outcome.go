package domain

// DegradedReason classifies why a response was produced without the
// generation backend.
type DegradedReason string

// Degraded reasons. The empty string means the backend answered.
const (
	ReasonQuotaExceeded  DegradedReason = "quota_exceeded"
	ReasonRateLimited    DegradedReason = "rate_limited"
	ReasonAuthError      DegradedReason = "auth_error"
	ReasonTransientError DegradedReason = "transient_error"
)

// Outcome is the terminal result of one generation attempt. Either the
// backend produced Text (Reason empty), or the text came from the
// deterministic fallback path and Reason records the classified failure.
type Outcome struct {
	Text   string
	Reason DegradedReason
}

// Degraded reports whether the text was produced without the backend.
func (o Outcome) Degraded() bool { return o.Reason != "" }
