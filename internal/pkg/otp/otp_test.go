package otp

import "testing"

func TestHOTPGenerateDeterministic(t *testing.T) {
	// Arrange
	deriver := NewHOTP(0, 0, "")

	// Act
	first, err := deriver.Generate("user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := deriver.Generate("user@example.com")
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}

	// Assert
	if first != second {
		t.Fatalf("codes differ for same identifier: %q vs %q", first, second)
	}
	if len(first) != int(DefaultDigits) {
		t.Fatalf("expected %d digit code, got %q", DefaultDigits, first)
	}
	for _, r := range first {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", first)
		}
	}
}

func TestHOTPGenerateConfiguredDigits(t *testing.T) {
	deriver := NewHOTP(6, 0, "")

	code, err := deriver.Generate("user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}
}

func TestHOTPValidate(t *testing.T) {
	deriver := NewHOTP(0, 0, "")

	code, err := deriver.Generate("user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !deriver.Validate("user@example.com", code) {
		t.Fatal("expected derived code to validate")
	}
	if deriver.Validate("user@example.com", "abcd") {
		t.Fatal("expected non-numeric candidate to fail validation")
	}
}
