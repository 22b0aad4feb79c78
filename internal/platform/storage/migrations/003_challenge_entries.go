package migrations

import (
	"gorm.io/gorm"
)

// Migration003ChallengeEntries 验证码存储表，供 sqlite 驱动的 ChallengeStore 使用
type Migration003ChallengeEntries struct{}

func (m *Migration003ChallengeEntries) Version() string {
	return "003_challenge_entries"
}

func (m *Migration003ChallengeEntries) Description() string {
	return "Create challenge_entries table for the sqlite challenge driver"
}

func (m *Migration003ChallengeEntries) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS challenge_entries (
			challenge_key VARCHAR(512) PRIMARY KEY,
			value VARCHAR(64) NOT NULL,
			expires_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_challenge_entries_expires_at ON challenge_entries(expires_at)`).Error
}

func (m *Migration003ChallengeEntries) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS challenge_entries`).Error
}
