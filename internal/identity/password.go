package identity

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const passwordSpecialSet = "!@#$&*"

// ValidatePassword enforces the credential policy: at least 8
// characters, 2 upper-case letters, 1 special character (!@#$&*),
// 2 digits and 3 lower-case letters. Pure check, no side effects;
// it runs before every password-setting mutation and never on reads.
func ValidatePassword(password string) error {
	var upper, lower, digit, special int
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsDigit(r):
			digit++
		case strings.ContainsRune(passwordSpecialSet, r):
			special++
		}
	}
	if len(password) < 8 || upper < 2 || special < 1 || digit < 2 || lower < 3 {
		return fmt.Errorf("%w: password needs at least 8 characters, 2 upper-case letters, 1 special character (%s), 2 digits and 3 lower-case letters", ErrWeakCredential, passwordSpecialSet)
	}
	return nil
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("%w: password is empty", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return fmt.Errorf("%w: password hash is empty", ErrValidation)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
