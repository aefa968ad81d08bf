package utils

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// GetGravatarURL builds a Gravatar avatar URL for an email address using the
// SHA-256 address hash. Falls back to the "mystery person" image for
// addresses without a Gravatar account.
func GetGravatarURL(email string, size int) string {
	if size <= 0 {
		size = 200
	}

	normalized := strings.ToLower(strings.TrimSpace(email))
	hash := sha256.Sum256([]byte(normalized))

	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=%d&d=mp", hash, size)
}
