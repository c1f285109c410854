package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budgetcal/internal/config"
	"budgetcal/internal/sheets/memory"
	"budgetcal/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DataBackend = "postgres"
	cfg.PostgresDSN = "postgres://localhost/budget"

	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != PostgresBackend || got.PostgresDSN != cfg.PostgresDSN {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	cfg.DataBackend = "sheets"
	if _, err := FromAppConfig(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without dsn", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateKV(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "kv.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateKV(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateKV() error = %v", err)
			}
			defer res.Cleanup()

			if err := res.KV.Set(ctx, "k", []byte("v")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if _, err := res.KV.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}
		})
	}

	if _, err := f.CreateKV(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Error("expected validation error")
	}
}

func TestOptionalCollaborators(t *testing.T) {
	f := NewFactory(nil)
	cfg := config.Default()

	if c := f.NewAMQPClient(cfg); c != nil {
		t.Error("NewAMQPClient() without URL should return nil")
	}

	w, err := f.NewTableWriter(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewTableWriter() error = %v", err)
	}
	if _, ok := w.(*memory.Store); !ok {
		t.Errorf("NewTableWriter() = %T, want *memory.Store", w)
	}
}
