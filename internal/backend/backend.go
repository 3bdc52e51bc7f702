// Package backend assembles the storage and messaging stack for a deployment:
// an in-memory store for self-contained runs, or SQLite plus an optional AMQP
// publisher feeding the audit mirror.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"kanisa/internal/amqp"
	"kanisa/internal/ledger"
	"kanisa/internal/storage"
	"kanisa/internal/storage/memory"
)

type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
)

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// AMQP (optional, SQLite backend only)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result bundles everything a deployment needs from its backend. Publisher is
// nil when no broker is configured; Ready is nil when the store has no
// meaningful liveness signal.
type Result struct {
	Store     ledger.Store
	Publisher ledger.EventPublisher
	Ready     func(ctx context.Context) error
	Cleanup   CleanupFunc
}

// Create builds the backend described by the config.
func Create(_ context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	switch config.Type {
	case SQLiteBackend:
		return createSQLite(config)
	default:
		return createMemory()
	}
}

func createSQLite(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	var publisher ledger.EventPublisher
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			slog.Warn("Failed to initialize AMQP client, continuing without mirror events", "error", err)
		} else {
			publisher = amqpClient
			slog.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	slog.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	cleanup := func() error {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				slog.Error("Failed to close AMQP client", "error", err)
			}
		}
		return repo.Close()
	}

	return &Result{
		Store:     repo,
		Publisher: publisher,
		Ready:     repo.Ping,
		Cleanup:   cleanup,
	}, nil
}

func createMemory() (*Result, error) {
	slog.Info("Initialized memory backend")
	return &Result{
		Store: memory.New(),
	}, nil
}
