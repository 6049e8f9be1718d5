// Package hash stores account secrets as bcrypt digests.
package hash

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// TestCost is only for fixtures.
	TestCost = bcrypt.MinCost
	Cost     = bcrypt.DefaultCost
)

func HashPassword(password string) (string, error) {
	return HashPasswordCost(password, Cost)
}

func HashPasswordCost(password string, cost int) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// CheckPassword reports whether password matches digest. A malformed digest
// never matches.
func CheckPassword(digest, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
