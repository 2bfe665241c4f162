package http

import "testing"

func TestValidEmail(t *testing.T) {
	valid := []string{"user@example.com", "first.last@sub.domain.io", "a+tag@b.co"}
	invalid := []string{"", "plain", "@nouser.com", "user@", "user@nodot", "user @space.com"}

	for _, e := range valid {
		if !ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = true, want false", e)
		}
	}
}

func TestValidPhone(t *testing.T) {
	valid := []string{"+358401234567", "+15551234567", "+447700900123"}
	invalid := []string{"", "0401234567", "+0123456789", "+1", "358401234567", "+35840123456789012345"}

	for _, p := range valid {
		if !ValidPhone(p) {
			t.Errorf("ValidPhone(%q) = false, want true", p)
		}
	}
	for _, p := range invalid {
		if ValidPhone(p) {
			t.Errorf("ValidPhone(%q) = true, want false", p)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"null\x00bytes\x00gone", "nullbytesgone"},
		{"plain text stays", "plain text stays"},
		{"bad\xffutf8", "badutf8"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeString(tt.in); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	if got := TruncateString("hello world", 5); got != "hello" {
		t.Errorf("TruncateString = %q, want %q", got, "hello")
	}
}
