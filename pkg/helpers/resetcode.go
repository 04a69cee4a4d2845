package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Password recovery codes

// GenResetCode generates a secure random 6-digit recovery code as a zero-padded string.
func GenResetCode() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	if n < 0 {
		n = -n
	}
	return fmt.Sprintf("%06d", n%1000000), nil
}

// HashResetCode returns the sha256 hex digest stored in place of the code.
// A fast hash is enough here: the 15-minute expiry bounds the guessing window,
// not the hash cost.
func HashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
