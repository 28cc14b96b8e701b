// Package auth generates and verifies client portal credentials.
package auth

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const pinLength = 4

// NewPIN returns a crypto-random 4-digit access code.
func NewPIN() (string, error) {
	const digits = "0123456789"
	b := make([]byte, pinLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		b[i] = digits[n.Int64()]
	}
	return string(b), nil
}

// TempPassword derives the initial portal password handed to a client on
// provisioning. Clients are expected to change it on first login.
func TempPassword(pin string) string {
	return "Lux-" + pin + "!"
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a plaintext password with a stored bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
