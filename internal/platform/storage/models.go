package storage

import (
	"time"

	"gorm.io/datatypes"
)

// User 用户表模型。Username/Phone 为空时存 NULL，以免多个空值触发唯一约束。
type User struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Username      *string   `gorm:"type:varchar(64);uniqueIndex"`
	Phone         *string   `gorm:"type:varchar(20);uniqueIndex"`
	Email         string    `gorm:"type:varchar(255);index"`
	Password      string    `gorm:"type:varchar(255);not null"`
	NickName      string    `gorm:"column:nick_name;type:varchar(64);uniqueIndex;not null"`
	AccountStatus int       `gorm:"not null;default:1"`
	Gender        string    `gorm:"type:varchar(16)"`
	AvatarPath    string    `gorm:"type:varchar(255)"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}

// AuthEvent 认证审计事件
type AuthEvent struct {
	ID        uint   `gorm:"primaryKey"`
	EventType string `gorm:"index;not null"`
	UserID    string `gorm:"index"`
	Username  string
	Data      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"index"`
}

func (AuthEvent) TableName() string {
	return "auth_events"
}

// ChallengeEntry 验证码记录，sqlite 驱动使用
type ChallengeEntry struct {
	Key       string    `gorm:"column:challenge_key;primaryKey"`
	Value     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (ChallengeEntry) TableName() string {
	return "challenge_entries"
}
