package backend

import (
	"context"

	"bearbudget/internal/ledger"
)

// CleanupFunc releases whatever a backend holds open.
type CleanupFunc func() error

// StoreResult is a typed ledger store and its cleanup.
type StoreResult struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// ServiceResult is a ledger service as the coordinator sees it.
type ServiceResult struct {
	Service ledger.Service
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateStore opens a system of record. Only in-process backends have
	// one.
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	// CreateService returns the ledger the client talks to: a remote
	// service over HTTP or an in-process store.
	CreateService(ctx context.Context, config Config) (*ServiceResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// HasStore reports whether the backend keeps its data in this process.
func (bt BackendType) HasStore() bool {
	return bt == MemoryBackend || bt == SQLiteBackend
}
