package infrastructure

import (
	"encoding/base64"
	"strings"
	"testing"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewTokenCipher_KeyLength(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ok   bool
	}{
		{"valid 32 bytes", testKey, true},
		{"empty", "", false},
		{"short", "too-short", false},
		{"long", testKey + "x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenCipher(tt.key)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestTokenCipher_Roundtrip(t *testing.T) {
	c, err := NewTokenCipher(testKey)
	if err != nil {
		t.Fatalf("NewTokenCipher: %v", err)
	}

	for _, plaintext := range []string{"", "ya29.a0AfH6SMC-token", strings.Repeat("x", 4096)} {
		enc, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt: %v", err)
		}
		if enc == plaintext && plaintext != "" {
			t.Fatal("ciphertext equals plaintext")
		}

		dec, err := c.Decrypt(enc)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if dec != plaintext {
			t.Fatalf("roundtrip mismatch: got %q", dec)
		}
	}
}

func TestTokenCipher_NonceMakesCiphertextsDiffer(t *testing.T) {
	c, _ := NewTokenCipher(testKey)

	a, _ := c.Encrypt("same input")
	b, _ := c.Encrypt("same input")
	if a == b {
		t.Fatal("two encryptions produced identical ciphertext")
	}
}

func TestTokenCipher_RejectsTamperedCiphertext(t *testing.T) {
	c, _ := NewTokenCipher(testKey)

	enc, _ := c.Encrypt("secret")
	raw, _ := base64.StdEncoding.DecodeString(enc)
	raw[len(raw)-1] ^= 0xff
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := c.Decrypt(tampered); err == nil {
		t.Fatal("expected tampered ciphertext to fail")
	}
}

func TestTokenCipher_RejectsWrongKey(t *testing.T) {
	c1, _ := NewTokenCipher(testKey)
	c2, _ := NewTokenCipher("fedcba9876543210fedcba9876543210")

	enc, _ := c1.Encrypt("secret")
	if _, err := c2.Decrypt(enc); err == nil {
		t.Fatal("expected decryption with wrong key to fail")
	}
}

func TestTokenCipher_RejectsGarbage(t *testing.T) {
	c, _ := NewTokenCipher(testKey)

	if _, err := c.Decrypt("not base64!!!"); err == nil {
		t.Fatal("expected invalid base64 to fail")
	}
	if _, err := c.Decrypt(base64.StdEncoding.EncodeToString([]byte("tiny"))); err == nil {
		t.Fatal("expected too-short ciphertext to fail")
	}
}
