package config

import "testing"

func TestLoadDoesNotInjectAuthSecretDefault(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("IMPORT_BATCH_SIZE", "")
	t.Setenv("OUTLIER_STORE_ID", "")
	t.Setenv("APP_ENV", "")

	cfg := Load()
	if cfg.ImportBatchSize != 100 {
		t.Fatalf("expected default batch size 100, got %d", cfg.ImportBatchSize)
	}
	if !cfg.ImportDuplicateGuard {
		t.Fatalf("expected duplicate guard enabled by default")
	}
	if cfg.CoachingBenchmark != 70 {
		t.Fatalf("expected coaching benchmark 70, got %v", cfg.CoachingBenchmark)
	}
	if cfg.LogFormat != "console" {
		t.Fatalf("expected console log format in development, got %q", cfg.LogFormat)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("IMPORT_BATCH_SIZE", "25")
	t.Setenv("IMPORT_DUPLICATE_GUARD", "false")
	t.Setenv("OUTLIER_STORE_ID", "ab-zz")

	cfg := Load()
	if cfg.ImportBatchSize != 25 {
		t.Fatalf("expected batch size 25, got %d", cfg.ImportBatchSize)
	}
	if cfg.ImportDuplicateGuard {
		t.Fatalf("expected duplicate guard disabled")
	}
	if cfg.OutlierStoreID != "AB-ZZ" {
		t.Fatalf("expected upper-cased outlier store, got %q", cfg.OutlierStoreID)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected json log format in production, got %q", cfg.LogFormat)
	}
}
