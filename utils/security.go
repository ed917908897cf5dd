package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced on registration.
const MinPasswordLength = 6

var (
	richSanitizer  = bluemonday.UGCPolicy()
	plainSanitizer = bluemonday.StrictPolicy()
)

// Sanitize cleans rich HTML content (post bodies) to prevent XSS attacks.
func Sanitize(input string) string {
	return richSanitizer.Sanitize(input)
}

// SanitizeText strips all markup from single-line or plain fields such as titles, tags and comments.
// Entities are decoded again because clients render these fields as text.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(plainSanitizer.Sanitize(input)))
}

// HashPassword returns the bcrypt hash of the password using a cost that balances security and performance.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
