// Package storage provides the on-device key/value records the cart persists to.
// Every driver stores opaque byte payloads under string keys, the same contract as
// a browser's localStorage.
package storage

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no record exists for the key.
	ErrNotFound = errors.New("storage: record not found")
	// ErrQuotaExceeded is returned when a write would exceed the driver's capacity.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	// ErrInvalidKey is returned for empty or unusable keys.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Store is a synchronous key/value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Driver names accepted by configuration.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// NormalizeDriver maps configuration input onto a known driver, defaulting to file.
func NormalizeDriver(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case DriverMemory, "mem":
		return DriverMemory
	case DriverRedis:
		return DriverRedis
	default:
		return DriverFile
	}
}

func validKey(key string) bool {
	return strings.TrimSpace(key) != ""
}
