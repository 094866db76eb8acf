package lib

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"path"
	"strings"
)

// GenerateRandomToken generates a cryptographically secure random token
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// Slugify lowercases a product name into a storage friendly slug
func Slugify(name string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, strings.TrimSpace(name))

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "product"
	}
	return slug
}

// ImageObjectKey builds the object storage key for a product image
func ImageObjectKey(productName, filename string) (string, error) {
	suffix, err := GenerateRandomToken()
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("products/%s-%s%s", Slugify(productName), suffix[:10], ext), nil
}
