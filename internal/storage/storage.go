// Package storage provides the key/value stores that persist progress snapshots.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a minimal key/value store holding whole serialized records.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// Driver names accepted by the configuration.
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// ValidDriver reports whether name is a known storage driver.
func ValidDriver(name string) bool {
	switch name {
	case DriverMemory, DriverBolt, DriverRedis, DriverPostgres:
		return true
	}
	return false
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
