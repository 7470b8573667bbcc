package oracle

import (
	"encoding/json"
	"fmt"
)

// requiredFields are the keys every model response must carry. The system
// prompt demands them, but prompts are requests, not guarantees — this
// check is what actually enforces the contract.
var requiredFields = [4]string{"status", "filename", "code", "explanation"}

// normalize turns the model's raw text into a well-formed Result.
//
// ENFORCEMENT STEPS (any violation → invalid Result, never an error):
//  1. The payload must parse as a JSON object.
//  2. All four required fields must be present, as strings.
//  3. status must be exactly "valid" or "invalid".
//  4. An "invalid" status forces Code and Filename to empty strings,
//     regardless of what the payload contained.
//
// This is the single most important correctness step in the system: every
// component downstream of the model relies on never seeing a partial or
// self-contradictory result.
func normalize(raw string) *Result {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Invalid("model did not produce valid JSON output")
	}

	fields := make(map[string]string, len(requiredFields))
	for _, key := range requiredFields {
		value, ok := payload[key]
		if !ok {
			return Invalid(fmt.Sprintf("model output is missing the required field %q", key))
		}
		str, ok := value.(string)
		if !ok {
			return Invalid(fmt.Sprintf("model output field %q is not a string", key))
		}
		fields[key] = str
	}

	switch fields["status"] {
	case StatusValid:
		return &Result{
			Status:      StatusValid,
			Filename:    fields["filename"],
			Code:        fields["code"],
			Explanation: fields["explanation"],
		}
	case StatusInvalid:
		// Never trust code or filename on an invalid result — drop them.
		explanation := fields["explanation"]
		if explanation == "" {
			explanation = "the model judged the diagram invalid but gave no explanation"
		}
		return Invalid(explanation)
	default:
		return Invalid(fmt.Sprintf("model returned unknown status %q", fields["status"]))
	}
}
