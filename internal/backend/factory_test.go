package backend

import (
	"context"
	"path/filepath"
	"testing"

	"finance/internal/config"
	"finance/internal/core"
	sheetsmem "finance/internal/sheets/memory"
)

func TestCreateStore(t *testing.T) {
	f := NewFactory(nil)

	tests := []struct {
		name    string
		cfg     *config.Config
		wantErr bool
	}{
		{"memory", &config.Config{DataBackend: "memory"}, false},
		{"sqlite", &config.Config{DataBackend: "sqlite", SQLiteDBPath: filepath.Join(t.TempDir(), "finance.db")}, false},
		{"unknown", &config.Config{DataBackend: "sheets"}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateStore(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer res.Cleanup()

			ctx := context.Background()
			if err := res.Store.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if _, err := res.Store.Find(ctx, core.AllTransactions(), core.DateAsc); err != nil {
				t.Fatalf("Find: %v", err)
			}
		})
	}
}

func TestCreatePublisherDisabled(t *testing.T) {
	client, err := NewFactory(nil).CreatePublisher(&config.Config{})
	if err != nil || client != nil {
		t.Fatalf("CreatePublisher() = %v, %v; want nil, nil", client, err)
	}
}

func TestCreateExporterFallsBackToMemory(t *testing.T) {
	exp, err := NewFactory(nil).CreateExporter(context.Background(), &config.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := exp.(*sheetsmem.Store); !ok {
		t.Fatalf("exporter = %T, want *memory.Store", exp)
	}
}
