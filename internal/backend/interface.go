package backend

import (
	"context"

	"financas/internal/amqp"
	"financas/internal/events"
	"financas/internal/sheets"
	"financas/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the store and the optional transports built from config.
type BackendResult struct {
	Store storage.BlobStore
	// AMQP is nil when no broker is configured or it was unreachable at startup.
	AMQP *amqp.Client
	// Statements is nil when no spreadsheet source is configured.
	Statements sheets.StatementReader
	Cleanup    CleanupFunc
}

// Publisher returns the AMQP client as an events.Publisher, or nil without one.
func (r *BackendResult) Publisher() events.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID  string
	GoogleStatementRange string

	// DataDirectory holds *.tsv statement ranges for the memory backend.
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
