package backend

import (
	"fmt"
	"time"

	"bearbudget/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// HTTP
	LedgerURL     string
	LedgerTimeout time.Duration

	// SQLite
	SQLiteDBPath string

	// Memory
	DataDirectory string

	// Optional AMQP event publishing for in-process stores
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SummaryCacheTTL enables the per-month summary cache when positive.
	SummaryCacheTTL time.Duration
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.LedgerBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.LedgerBackend)
	}

	dataDir := appConfig.DataDir
	if dataDir == "" {
		dataDir = "data"
	}

	return Config{
		Type:            backendType,
		LedgerURL:       appConfig.LedgerURL,
		LedgerTimeout:   appConfig.LedgerTimeout,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		DataDirectory:   dataDir,
		AMQPURL:         appConfig.AMQPURL,
		AMQPExchange:    appConfig.AMQPExchange,
		AMQPQueue:       appConfig.AMQPQueue,
		SummaryCacheTTL: appConfig.SummaryCacheTTL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case HTTPBackend:
		if c.LedgerURL == "" {
			return fmt.Errorf("ledger URL is required for http backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{HTTPBackend, MemoryBackend, SQLiteBackend}
}
