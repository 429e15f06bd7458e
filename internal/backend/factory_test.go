package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bearbudget/internal/config"
	"bearbudget/internal/ledger/client"

	"github.com/shopspring/decimal"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{LedgerBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	cfg, err := FromAppConfig(&config.Config{LedgerBackend: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataDirectory != "data" {
		t.Errorf("DataDirectory = %q, want data", cfg.DataDirectory)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"http with url", Config{Type: HTTPBackend, LedgerURL: "http://localhost:8081"}, false},
		{"http without url", Config{Type: HTTPBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateService(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	t.Run("http", func(t *testing.T) {
		res, err := f.CreateService(ctx, Config{Type: HTTPBackend, LedgerURL: "http://localhost:8081", LedgerTimeout: time.Second})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := res.Service.(*client.Client); !ok {
			t.Errorf("expected HTTP client, got %T", res.Service)
		}
		if _, err := f.CreateStore(ctx, Config{Type: HTTPBackend, LedgerURL: "http://localhost:8081"}); !errors.Is(err, ErrNoStore) {
			t.Errorf("expected ErrNoStore, got %v", err)
		}
	})

	t.Run("sqlite with summary cache", func(t *testing.T) {
		res, err := f.CreateService(ctx, Config{
			Type:            SQLiteBackend,
			SQLiteDBPath:    filepath.Join(t.TempDir(), "ledger.db"),
			SummaryCacheTTL: time.Minute,
		})
		if err != nil {
			t.Fatal(err)
		}
		defer func() {
			if err := res.Cleanup(); err != nil {
				t.Errorf("cleanup: %v", err)
			}
		}()

		if err := res.Service.AddBank(ctx, "Checking", decimal.NewFromInt(10)); err != nil {
			t.Fatalf("add bank: %v", err)
		}
		cards, err := res.Service.Cards(ctx)
		if err != nil || len(cards) != 1 || cards[0].Name != "Checking" {
			t.Fatalf("cards: %+v %v", cards, err)
		}
		cats, err := res.Service.Categories(ctx)
		if err != nil || len(cats) == 0 {
			t.Fatalf("seeded categories missing: %v %v", cats, err)
		}
	})

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateService(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
		if err != nil {
			t.Fatal(err)
		}
		defer res.Cleanup()
		cats, err := res.Service.Categories(ctx)
		if err != nil || len(cats) != 4 {
			t.Fatalf("default categories: %v %v", cats, err)
		}
	})
}
