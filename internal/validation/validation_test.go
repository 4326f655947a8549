package validation

import (
	"testing"
)

func TestIsValidSessionID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"sess-1", true},
		{"conv_2024.08.28", true},
		{"a", true},
		{"ABC123", true},

		// Invalid cases
		{"", false},
		{"-leading-dash", false},
		{"_leading_underscore", false},
		{"../etc/passwd", false},
		{"has space", false},
		{"sess/1", false},
		{string(make([]byte, 200)), false}, // Too long
	}

	for _, tc := range tests {
		result := IsValidSessionID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidSessionID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("sessionId", "sess-1"),
		ValidSessionID("sessionId", "sess-1"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("sessionId", ""),
		ValidSessionID("other", "../bad"),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
}

func TestValidSessionIDSkipsEmpty(t *testing.T) {
	// Empty values are Required's job; ValidSessionID passes them through.
	if err := ValidSessionID("sessionId", "")(); err != nil {
		t.Errorf("Expected no error for empty value, got %v", err)
	}
}

func TestMaxLength(t *testing.T) {
	// Under limit
	err := MaxLength("field", "hello", 10)()
	if err != nil {
		t.Error("Expected no error for string under limit")
	}

	// At limit
	err = MaxLength("field", "hello", 5)()
	if err != nil {
		t.Error("Expected no error for string at limit")
	}

	// Over limit
	err = MaxLength("field", "hello world", 5)()
	if err == nil {
		t.Error("Expected error for string over limit")
	}
}

func TestValidationErrorsError(t *testing.T) {
	errs := ValidationErrors{{Field: "sessionId", Message: "is required"}}
	if got := errs.Error(); got != "sessionId: is required" {
		t.Errorf("Error() = %q", got)
	}
	if got := (ValidationErrors{}).Error(); got != "validation failed" {
		t.Errorf("empty Error() = %q", got)
	}
}
