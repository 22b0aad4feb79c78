package migrations

import (
	"gorm.io/gorm"
)

// Migration002AuthEvents 认证审计事件表
type Migration002AuthEvents struct{}

func (m *Migration002AuthEvents) Version() string {
	return "002_auth_events"
}

func (m *Migration002AuthEvents) Description() string {
	return "Create auth_events audit table"
}

func (m *Migration002AuthEvents) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS auth_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type VARCHAR(64) NOT NULL,
			user_id VARCHAR(32),
			username VARCHAR(64),
			data JSON NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_auth_events_event_type ON auth_events(event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_user_id ON auth_events(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_created_at ON auth_events(created_at)`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration002AuthEvents) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS auth_events`).Error
}
