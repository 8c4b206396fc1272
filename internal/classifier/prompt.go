package classifier

import "fmt"

const promptTemplate = `You are a document verification assistant. Analyze this document and determine whether it is a valid %s.

Look for these indicators:
- Transcript: grades, course names, GPA, student name, institution name, academic terms
- Certificate: official seals, signatures, certifying authority, date of issuance
- Diploma: degree title, institution name, graduation date, official seals, signatures
- ID Card: photo, ID number, institution logo, expiration date, holder name
- Admission Letter: institution letterhead, admission offer, student name, program details

Respond ONLY with JSON in exactly this shape, with no other text:
{
  "documentType": "<detected type: Transcript/Certificate/Diploma/ID Card/Admission Letter/Other>",
  "isValid": <true/false>,
  "confidence": <0.0-1.0>,
  "reason": "<brief explanation>",
  "detectedElements": ["<element>", "..."]
}`

// BuildPrompt returns the instruction sent alongside the document for the given expected type.
func BuildPrompt(expectedType string) string {
	return fmt.Sprintf(promptTemplate, expectedType)
}
