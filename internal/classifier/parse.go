package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errNoJSON = errors.New("no json object in reply")

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// reply is the JSON object the model is instructed to produce.
type reply struct {
	DocumentType     string   `json:"documentType"`
	IsValid          bool     `json:"isValid"`
	Confidence       float64  `json:"confidence"`
	Reason           string   `json:"reason"`
	DetectedElements []string `json:"detectedElements"`
}

// ParseReply extracts a Verdict from the model's free text. It accepts bare JSON, JSON inside a code fence,
// and JSON surrounded by prose, in that order. Failures are KindDecode errors.
func ParseReply(text string) (Verdict, error) {
	text = strings.TrimSpace(text)

	var r reply
	err := json.Unmarshal([]byte(text), &r)
	if err != nil {
		if m := jsonBlockRegex.FindStringSubmatch(text); len(m) >= 2 {
			err = json.Unmarshal([]byte(strings.TrimSpace(m[1])), &r)
		}
	}
	if err != nil {
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			err = json.Unmarshal([]byte(text[start:end+1]), &r)
		} else {
			err = errNoJSON
		}
	}
	if err != nil {
		return Verdict{}, &Error{Kind: KindDecode, Err: fmt.Errorf("decode reply: %w", err)}
	}

	return r.verdict(), nil
}

func (r reply) verdict() Verdict {
	v := Verdict{
		DetectedType:     strings.TrimSpace(r.DocumentType),
		IsValid:          r.IsValid,
		Confidence:       r.Confidence,
		Reason:           strings.TrimSpace(r.Reason),
		DetectedElements: r.DetectedElements,
	}
	if v.DetectedType == "" {
		v.DetectedType = "Unknown"
	}
	if v.Reason == "" {
		v.Reason = "No reason provided"
	}
	switch {
	case v.Confidence < 0:
		v.Confidence = 0
	case v.Confidence > 1:
		v.Confidence = 1
	}
	return v
}
