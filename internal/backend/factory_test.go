package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dailyledger/internal/config"
	"dailyledger/internal/core"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets is not a storage backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "mongo"}, true},
		{"cache without ttl", Config{Type: MemoryBackend, DailyCacheSize: 3}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", ReferenceTimezone: "UTC", DailyCacheSize: 4, DailyCacheTTL: time.Minute}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.DailyCacheSize != 4 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	app.ReferenceTimezone = "Nowhere/Land"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	for _, cfg := range []Config{
		{Type: MemoryBackend, Calendar: core.NewCalendar(nil), DailyCacheSize: 8, DailyCacheTTL: time.Minute},
		{Type: SQLiteBackend, Calendar: core.NewCalendar(nil), SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Cleanup()

			if (res.DailyCache != nil) != (cfg.DailyCacheSize > 0) {
				t.Errorf("DailyCache presence mismatch")
			}
			e, err := res.Store.Create(ctx, core.ExpenseInput{
				ExpenseType:   "food",
				SubmitterName: "ann",
				Date:          time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				Amount:        core.Money{Cents: 100},
			})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if e.ID == 0 {
				t.Error("expected id to be assigned")
			}
			if err := res.Store.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
		})
	}
}

func TestCloseAll(t *testing.T) {
	var order []int
	errA, errB := errors.New("a"), errors.New("b")
	cleanup := closeAll([]func() error{
		func() error { order = append(order, 1); return errA },
		func() error { order = append(order, 2); return errB },
	})
	err := cleanup()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("closers ran in order %v, want [2 1]", order)
	}
}
