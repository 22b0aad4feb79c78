package migrations

import (
	"gorm.io/gorm"
)

// Migration001Users 创建用户表。用户名、手机号、昵称均为唯一约束，
// 注册时的并发冲突最终由这里兜底。
type Migration001Users struct{}

func (m *Migration001Users) Version() string {
	return "001_users"
}

func (m *Migration001Users) Description() string {
	return "Create users table with unique username, phone and nickname"
}

func (m *Migration001Users) Up(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username VARCHAR(64) UNIQUE,
			phone VARCHAR(20) UNIQUE,
			email VARCHAR(255),
			password VARCHAR(255) NOT NULL,
			nick_name VARCHAR(64) NOT NULL UNIQUE,
			account_status INTEGER NOT NULL DEFAULT 1,
			gender VARCHAR(16),
			avatar_path VARCHAR(255),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`).Error
}

func (m *Migration001Users) Down(db *gorm.DB) error {
	return db.Exec(`DROP TABLE IF EXISTS users`).Error
}
