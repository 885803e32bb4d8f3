package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// TokenCipher seals stored platform tokens with AES-GCM. The output is
// base64(nonce || ciphertext).
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher accepts a 16, 24 or 32 byte key.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

func (c *TokenCipher) Seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *TokenCipher) Open(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	n := c.aead.NonceSize()
	if len(data) < n {
		return "", ErrCiphertextTooShort
	}
	plain, err := c.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func Encrypt(plaintext, key []byte) (string, error) {
	c, err := NewTokenCipher(key)
	if err != nil {
		return "", err
	}
	return c.Seal(string(plaintext))
}

func Decrypt(encryptedData string, key []byte) (string, error) {
	c, err := NewTokenCipher(key)
	if err != nil {
		return "", err
	}
	return c.Open(encryptedData)
}
