package helpers

import (
	"runtime"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the cost the account store has always used; changing it
// would invalidate nothing but slow every login.
const bcryptCost = 10

// hashSem bounds concurrent bcrypt work so a burst of registrations cannot
// monopolize the scheduler at the expense of unrelated requests.
var hashSem = make(chan struct{}, runtime.GOMAXPROCS(0))

// HashPassword hashes the plain text password using bcrypt
func HashPassword(plain string) (string, error) {
	hashSem <- struct{}{}
	defer func() { <-hashSem }()
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareHashAndPassword compares a bcrypt hash with a plain password
func CompareHashAndPassword(hash string, plain string) bool {
	hashSem <- struct{}{}
	defer func() { <-hashSem }()
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
