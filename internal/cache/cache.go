package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching.
// Expiry is evaluated when an entry is read, never by background eviction alone.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// keyPrefix namespaces every key written by Leadmaster
const keyPrefix = "leadmaster:v1:"

// HashKey turns an arbitrary query string into a fixed-length key safe for
// file names
func HashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
