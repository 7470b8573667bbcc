package oracle

import (
	"testing"
)

func TestNormalize_ValidResponse(t *testing.T) {
	raw := `{"status":"valid","filename":"main.py","code":"print('hi')","explanation":"one object, one process"}`

	result := normalize(raw)

	if !result.Valid() {
		t.Fatalf("Status = %q, want %q", result.Status, StatusValid)
	}
	if result.Filename != "main.py" {
		t.Errorf("Filename = %q, want %q", result.Filename, "main.py")
	}
	if result.Code != "print('hi')" {
		t.Errorf("Code = %q, want %q", result.Code, "print('hi')")
	}
	if result.Explanation != "one object, one process" {
		t.Errorf("Explanation = %q", result.Explanation)
	}
}

func TestNormalize_InvalidStatusDropsCodeAndFilename(t *testing.T) {
	// A model that says "invalid" but still ships code is not trusted —
	// the normalized result must carry neither code nor filename.
	raw := `{"status":"invalid","filename":"main.py","code":"print('leftover')","explanation":"not an OPM diagram"}`

	result := normalize(raw)

	if result.Valid() {
		t.Fatal("expected invalid result")
	}
	if result.Code != "" {
		t.Errorf("Code = %q, want empty", result.Code)
	}
	if result.Filename != "" {
		t.Errorf("Filename = %q, want empty", result.Filename)
	}
	if result.Explanation != "not an OPM diagram" {
		t.Errorf("Explanation = %q", result.Explanation)
	}
}

func TestNormalize_MissingFields(t *testing.T) {
	// Each response is missing exactly one of the four required fields.
	// All must normalize to invalid with a non-empty explanation.
	tests := []struct {
		name string
		raw  string
	}{
		{"missing status", `{"filename":"main.py","code":"x","explanation":"e"}`},
		{"missing filename", `{"status":"valid","code":"x","explanation":"e"}`},
		{"missing code", `{"status":"valid","filename":"main.py","explanation":"e"}`},
		{"missing explanation", `{"status":"valid","filename":"main.py","code":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalize(tt.raw)
			if result.Valid() {
				t.Error("expected invalid result for incomplete payload")
			}
			if result.Explanation == "" {
				t.Error("expected a non-empty diagnostic explanation")
			}
			if result.Code != "" || result.Filename != "" {
				t.Error("invalid result must not carry code or filename")
			}
		})
	}
}

func TestNormalize_GarbagePayloads(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not JSON at all", "Sure! Here is the generated code: ..."},
		{"empty string", ""},
		{"JSON array", `["valid"]`},
		{"truncated object", `{"status":"valid","filename":`},
		{"non-string status", `{"status":true,"filename":"","code":"","explanation":""}`},
		{"unknown status value", `{"status":"maybe","filename":"","code":"","explanation":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := normalize(tt.raw)
			if result.Valid() {
				t.Errorf("normalize(%q) should be invalid", tt.raw)
			}
			if result.Explanation == "" {
				t.Error("expected a non-empty diagnostic explanation")
			}
		})
	}
}

func TestNormalize_InvalidWithBlankExplanation(t *testing.T) {
	// The explanation is the only signal an invalid result carries;
	// a blank one is substituted with a diagnostic.
	raw := `{"status":"invalid","filename":"","code":"","explanation":""}`

	result := normalize(raw)

	if result.Valid() {
		t.Fatal("expected invalid result")
	}
	if result.Explanation == "" {
		t.Error("blank explanation should be replaced with a diagnostic")
	}
}

func TestInvalidHelper(t *testing.T) {
	result := Invalid("boom")
	if result.Valid() {
		t.Error("Invalid() must produce an invalid result")
	}
	if result.Code != "" || result.Filename != "" {
		t.Error("Invalid() must not carry code or filename")
	}
	if result.Explanation != "boom" {
		t.Errorf("Explanation = %q, want %q", result.Explanation, "boom")
	}
}
