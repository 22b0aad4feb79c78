package testing

import (
	"io"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"blog-server-go/internal/platform/config"
	"blog-server-go/internal/platform/logging"
	"blog-server-go/internal/platform/storage"
)

// SetupTestConfig returns a valid configuration rooted in a temp dir: memory
// challenge store, cheap bcrypt and a fixed token secret.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Log = config.LogConfig{
		Level: "debug",
		Dir:   filepath.Join(dir, "logs"),
		File:  "test.log",
	}
	cfg.Database.DSN = filepath.Join(dir, "data", "test.db")
	cfg.Auth.BcryptCost = 4
	cfg.Auth.Token.Secret = "test-secret-key"
	cfg.Auth.Challenge.Driver = "memory"

	if err := config.Validate(cfg); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

// SetupTestLogger writes to a temp file and discards console output.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	cfg := SetupTestConfig(t)
	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
		Console:  io.Discard,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// OpenTestDB opens a migrated SQLite database that is closed with the test.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}
