package lib

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

var ErrInvalidKey = errors.New("encryption key must be 32 bytes for AES-256")

// FieldCipher encrypts individual column values (customer phone, address)
// with AES-256-GCM. A cipher built from an empty key passes values through.
type FieldCipher struct {
	aead cipher.AEAD
}

// NewFieldCipher accepts a base64 encoded or raw 32 byte key
func NewFieldCipher(key string) (*FieldCipher, error) {
	if key == "" {
		return &FieldCipher{}, nil
	}

	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(keyBytes) != 32 {
		keyBytes = []byte(key)
	}
	if len(keyBytes) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, err
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &FieldCipher{aead: aesGCM}, nil
}

func (c *FieldCipher) Enabled() bool {
	return c != nil && c.aead != nil
}

// Encrypt returns base64(nonce || ciphertext)
func (c *FieldCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" || !c.Enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (c *FieldCipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" || !c.Enabled() {
		return ciphertext, nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
