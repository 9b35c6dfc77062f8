package validation

import (
	"testing"
)

func TestIsValidSessionID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"0b95ab71-9174-4b28-aefd-3ec12a1f0d5c", true},
		{"00000000-0000-0000-0000-000000000000", true},

		// Invalid cases
		{"0b95ab7191744b28aefd3ec12a1f0d5c", false}, // No dashes
		{"0B95AB71-9174-4B28-AEFD-3EC12A1F0D5C", false}, // Uppercase
		{"0b95ab71-9174-4b28-aefd", false},             // Too short
		{"zb95ab71-9174-4b28-aefd-3ec12a1f0d5c", false}, // Invalid chars
		{"", false},
	}

	for _, tc := range tests {
		result := IsValidSessionID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidSessionID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"dr.lee@example.com", true},
		{"counselor+intake@clinic.org", true},

		// Invalid
		{"not-an-email", false},
		{"@example.com", false},
		{"user@", false},
		{"user @example.com", false},
		{"", false},
	}

	for _, tc := range tests {
		result := IsValidEmail(tc.email)
		if result != tc.valid {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tc.email, result, tc.valid)
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
		Required("name", "Jordan"),
		ValidEmail("email", "jordan@example.com"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("name", ""),
		ValidEmail("email", "invalid"),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
}

func TestIntRange(t *testing.T) {
	tests := []struct {
		value int
		valid bool
	}{
		{1, true},
		{10, true},
		{5, true},

		// Invalid
		{0, false},
		{11, false},
		{-3, false},
	}

	for _, tc := range tests {
		err := IntRange("mood_score", tc.value, 1, 10)()
		valid := err == nil
		if valid != tc.valid {
			t.Errorf("IntRange(%d) valid=%v, want %v", tc.value, valid, tc.valid)
		}
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
