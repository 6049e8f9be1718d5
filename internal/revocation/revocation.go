package revocation

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

const (
	KeyPrefix = "BLACKLIST_TOKEN:"
	Sentinel  = "LOGGED_OUT"
)

// ErrNonPositiveTTL is returned when an entry would outlive nothing.
var ErrNonPositiveTTL = errors.New("revocation: ttl must be positive")

// Key maps a token to its cache key. Tokens are hashed so raw bearer
// strings never reach the cache.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return KeyPrefix + hex.EncodeToString(sum[:])
}
