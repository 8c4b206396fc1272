package model

// Decision is the outcome class of a verification run.
type Decision string

const (
	DecisionAccepted                Decision = "ACCEPTED"
	DecisionRejectedTypeMismatch    Decision = "REJECTED_TYPE_MISMATCH"
	DecisionRejectedLowConfidence   Decision = "REJECTED_LOW_CONFIDENCE"
	DecisionRejectedInvalid         Decision = "REJECTED_INVALID"
	DecisionRejectedUnsupportedFile Decision = "REJECTED_UNSUPPORTED_FILE"
	DecisionIndeterminateAccepted   Decision = "INDETERMINATE_ACCEPTED"
	DecisionError                   Decision = "ERROR"
)

// Admits reports whether the decision lets the upload proceed to storage.
func (d Decision) Admits() bool {
	return d == DecisionAccepted || d == DecisionIndeterminateAccepted
}

// VerificationOutcome is the ephemeral result of classifying one upload. It is never persisted as is.
type VerificationOutcome struct {
	Decision     Decision `json:"decision"`
	DetectedType string   `json:"detected_type"`
	Confidence   float64  `json:"confidence"`
	Reason       string   `json:"reason"`
	// Degraded is set when the classifier was unavailable and the outcome came from the fallback policy.
	Degraded bool `json:"degraded"`
}

// Accepted reports whether the outcome admits the upload.
func (o VerificationOutcome) Accepted() bool {
	return o.Decision.Admits()
}
