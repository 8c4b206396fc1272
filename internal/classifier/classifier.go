// Package classifier asks an external vision model what kind of document a payload is.
package classifier

import "context"

// Verdict is the classifier's structured answer about one document.
type Verdict struct {
	DetectedType     string
	IsValid          bool
	Confidence       float64
	Reason           string
	DetectedElements []string
}

// Classifier classifies a payload against the type the uploader declared. It performs no retries; any
// failure is returned as a *Error.
type Classifier interface {
	Classify(ctx context.Context, payload []byte, mimeType, expectedType string) (Verdict, error)
}

// Disabled is a Classifier that is switched off. Every call fails with KindDisabled.
type Disabled struct{}

var _ Classifier = Disabled{}

func (Disabled) Classify(context.Context, []byte, string, string) (Verdict, error) {
	return Verdict{}, &Error{Kind: KindDisabled}
}
