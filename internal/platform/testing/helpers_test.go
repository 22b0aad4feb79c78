package testing

import (
	"context"
	"testing"
)

func TestSetupTestConfigIsValid(t *testing.T) {
	cfg := SetupTestConfig(t)
	if cfg.Auth.Token.Secret == "" || cfg.Auth.Challenge.Driver != "memory" {
		t.Fatalf("unexpected test config: %+v", cfg.Auth)
	}
}

func TestOpenTestDBIsMigrated(t *testing.T) {
	db := OpenTestDB(t)
	for _, table := range []string{"users", "auth_events", "challenge_entries"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %s missing", table)
		}
	}
	AssertNoError(t, db.WithContext(context.Background()).Exec("SELECT 1").Error)
	AssertError(t, db.Exec("SELECT * FROM missing_table").Error)
}

func TestSetupTestLogger(t *testing.T) {
	logger := SetupTestLogger(t)
	logger.InfoTag("测试", "logger ready")
}
