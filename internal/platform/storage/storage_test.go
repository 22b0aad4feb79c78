package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"blog-server-go/internal/domain/auth/model"
	"blog-server-go/internal/platform/storage/migrations"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "blog.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate error: %v", err)
	}

	history, err := NewMigrationManager(db).GetMigrationHistory()
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 applied migrations, got %d", len(history))
	}
	for _, table := range []string{"users", "auth_events", "challenge_entries"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("table %s missing", table)
		}
	}
}

func TestRollbackMigration(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)
	manager.AddMigration(&migrations.Migration003ChallengeEntries{})

	if err := manager.RollbackMigration("003_challenge_entries"); err != nil {
		t.Fatalf("RollbackMigration error: %v", err)
	}
	if db.Migrator().HasTable("challenge_entries") {
		t.Fatal("challenge_entries should be dropped")
	}
	if err := manager.RollbackMigration("003_challenge_entries"); err == nil {
		t.Fatal("expected error rolling back a migration that is not applied")
	}
	if err := manager.RollbackMigration("999_unknown"); err == nil {
		t.Fatal("expected error for an unregistered migration")
	}
}

func TestUserRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	user := &model.User{
		Username:      "validUser1",
		PasswordHash:  "$2a$10$hash",
		Nickname:      "Zw_202401010000000000000abcdefgh",
		AccountStatus: model.AccountActive,
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("Create should backfill the id")
	}

	got, err := repo.FindByUsernameOrPhone(ctx, "validUser1", "")
	if err != nil || got == nil {
		t.Fatalf("FindByUsernameOrPhone = %v, %v", got, err)
	}
	if got.PasswordHash != "$2a$10$hash" || got.Nickname != user.Nickname || got.Phone != "" {
		t.Fatalf("unexpected user: %+v", got)
	}

	byID, err := repo.FindByID(ctx, user.ID)
	if err != nil || byID == nil || byID.Username != "validUser1" {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}

	missing, err := repo.FindByUsernameOrPhone(ctx, "nobody00", "")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for unknown user, got %+v, %v", missing, err)
	}

	exists, err := repo.ExistsByUsernameOrPhone(ctx, "validUser1", "13800000000")
	if err != nil || !exists {
		t.Fatalf("ExistsByUsernameOrPhone = %v, %v", exists, err)
	}
	taken, err := repo.NicknameExists(ctx, user.Nickname)
	if err != nil || !taken {
		t.Fatalf("NicknameExists = %v, %v", taken, err)
	}
}

func TestUserRepositoryUniqueViolations(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))

	first := &model.User{Username: "firstUser", PasswordHash: "h", Nickname: "nick-1"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	// two accounts without a phone must not collide on the phone column
	second := &model.User{Username: "secondUser", PasswordHash: "h", Nickname: "nick-2"}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create second error: %v", err)
	}

	dupName := &model.User{Username: "firstUser", PasswordHash: "h", Nickname: "nick-3"}
	if err := repo.Create(ctx, dupName); !errors.Is(err, model.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}

	dupNick := &model.User{Username: "thirdUser", PasswordHash: "h", Nickname: "nick-1"}
	if err := repo.Create(ctx, dupNick); !errors.Is(err, model.ErrDuplicateNickname) {
		t.Fatalf("expected ErrDuplicateNickname, got %v", err)
	}
}
