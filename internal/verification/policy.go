// Package verification turns classifier verdicts into accept or reject decisions.
package verification

import (
	"fmt"
	"strings"

	"doccustody/internal/classifier"
	"doccustody/internal/model"
)

// Policy is a pure decision function over classifier output.
//
// FailOpen selects what an unavailable classifier means: accept with DegradedConfidence and a warning
// reason, or reject. Deployments that fail open admit unverified documents.
type Policy struct {
	Threshold          float64
	FailOpen           bool
	DegradedConfidence float64
}

// Decide applies, in order: source validity, confidence threshold (inclusive), then type match.
func (p Policy) Decide(v classifier.Verdict, expectedType string) model.VerificationOutcome {
	out := model.VerificationOutcome{
		DetectedType: v.DetectedType,
		Confidence:   v.Confidence,
	}

	switch {
	case !v.IsValid:
		out.Decision = model.DecisionRejectedInvalid
		out.Reason = fmt.Sprintf("Document validation failed: %s", v.Reason)
	case v.Confidence < p.Threshold:
		out.Decision = model.DecisionRejectedLowConfidence
		out.Reason = fmt.Sprintf("Low confidence (%s, threshold %s). %s Please upload a clearer image.",
			percent(v.Confidence), percent(p.Threshold), v.Reason)
	case !TypesMatch(v.DetectedType, expectedType):
		out.Decision = model.DecisionRejectedTypeMismatch
		out.Reason = fmt.Sprintf("Document type mismatch: declared '%s' but the document appears to be '%s'. %s",
			expectedType, v.DetectedType, v.Reason)
	default:
		out.Decision = model.DecisionAccepted
		out.Reason = fmt.Sprintf("Document verified as %s with %s confidence", v.DetectedType, percent(v.Confidence))
	}
	return out
}

// DecideUnavailable is the degraded path taken when the classifier produced no verdict. The reason is
// safe to show to callers; err is only used to label the outcome.
func (p Policy) DecideUnavailable(expectedType string, err error) model.VerificationOutcome {
	what := "Verification service unavailable"
	if classifier.KindOf(err) == classifier.KindDisabled {
		what = "Verification disabled"
	}
	if p.FailOpen {
		return model.VerificationOutcome{
			Decision:     model.DecisionIndeterminateAccepted,
			DetectedType: expectedType,
			Confidence:   p.DegradedConfidence,
			Reason:       what + " - document accepted with warning",
			Degraded:     true,
		}
	}
	return model.VerificationOutcome{
		Decision:     model.DecisionError,
		DetectedType: "Unknown",
		Reason:       what + " - document rejected",
		Degraded:     true,
	}
}

// Unsupported is the outcome for payloads rejected by local validation before classification.
func Unsupported(err error) model.VerificationOutcome {
	return model.VerificationOutcome{
		Decision:     model.DecisionRejectedUnsupportedFile,
		DetectedType: "Unknown",
		Reason:       fmt.Sprintf("Unsupported file: %v", err),
	}
}

// TypesMatch reports whether detected and expected name the same document type: equal ignoring case, or
// one containing the other. Blank types never match.
func TypesMatch(detected, expected string) bool {
	d := strings.ToLower(strings.TrimSpace(detected))
	e := strings.ToLower(strings.TrimSpace(expected))
	if d == "" || e == "" {
		return false
	}
	return d == e || strings.Contains(d, e) || strings.Contains(e, d)
}

func percent(f float64) string {
	return fmt.Sprintf("%.0f%%", f*100)
}
