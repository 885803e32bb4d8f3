package utils

import (
	"errors"
	"testing"
)

func TestTokenCipher_RoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	sealed, err := Encrypt([]byte("page-token"), key)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if sealed == "page-token" {
		t.Fatalf("token was not encrypted")
	}

	plain, err := Decrypt(sealed, key)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if plain != "page-token" {
		t.Fatalf("expected page-token, got %q", plain)
	}

	again, _ := Encrypt([]byte("page-token"), key)
	if again == sealed {
		t.Fatalf("nonce reuse: identical ciphertexts")
	}
}

func TestTokenCipher_Errors(t *testing.T) {
	if _, err := NewTokenCipher([]byte("short")); err == nil {
		t.Fatalf("expected error for invalid key size")
	}

	c, err := NewTokenCipher([]byte("0123456789abcdef"))
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	if _, err := c.Open("AAAA"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Fatalf("expected ErrCiphertextTooShort, got %v", err)
	}
	if _, err := c.Open("not base64!"); err == nil {
		t.Fatalf("expected decode error")
	}

	other, _ := NewTokenCipher([]byte("fedcba9876543210"))
	sealed, _ := c.Seal("secret")
	if _, err := other.Open(sealed); err == nil {
		t.Fatalf("expected authentication failure with wrong key")
	}
}
