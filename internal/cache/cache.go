package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores raw response bodies keyed by an opaque string
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a namespace and a lookup value
// (a template archetype, a wiki page title, a URL).
func Key(namespace, value string) string {
	hash := sha256.Sum256([]byte(value))
	return "wikigap:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// Nop is a cache that never stores anything
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)               { return nil, false }
func (Nop) Set(string, []byte, time.Duration) error { return nil }
func (Nop) Delete(string) error                     { return nil }
func (Nop) Clear() error                            { return nil }
