// Package backend turns configuration into the storage and messaging
// collaborators the binaries need.
package backend

import (
	"context"

	"budgetcal/internal/storage"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result holds the KV store and its cleanup function.
type Result struct {
	KV      storage.KV
	Cleanup CleanupFunc
}

// Factory creates KV stores based on configuration.
type Factory interface {
	CreateKV(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string
}

type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
