package model

import (
	"strings"
	"time"
)

// InputType selects which identifier a login or registration uses.
type InputType string

const (
	InputUsername InputType = "username"
	InputPhone    InputType = "phone"
)

// Normalize lowercases the input type; an empty value means username mode.
func (t InputType) Normalize() InputType {
	v := InputType(strings.ToLower(strings.TrimSpace(string(t))))
	if v == "" {
		return InputUsername
	}
	return v
}

// Account statuses.
const (
	AccountActive   = 1
	AccountDisabled = 0
)

// User is the persisted credential record. PasswordHash never holds the raw password.
type User struct {
	ID            int64
	Username      string
	Phone         string
	Email         string
	PasswordHash  string
	Nickname      string
	AccountStatus int
	Gender        string
	AvatarPath    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UserView is the public profile returned by login and registration.
type UserView struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	NickName      string `json:"nickName"`
	AccountStatus int    `json:"accountStatus"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Gender        string `json:"gender,omitempty"`
	AvatarPath    string `json:"avatarPath,omitempty"`
	Token         string `json:"token,omitempty"`
}

// View projects the public fields of u.
func (u *User) View() *UserView {
	if u == nil {
		return nil
	}
	return &UserView{
		ID:            u.ID,
		Username:      u.Username,
		NickName:      u.Nickname,
		AccountStatus: u.AccountStatus,
		Phone:         u.Phone,
		Email:         u.Email,
		Gender:        u.Gender,
		AvatarPath:    u.AvatarPath,
	}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	InputType InputType `json:"inputType"`
	Username  string    `json:"username,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Password  string    `json:"password"`
	Captcha   string    `json:"captcha"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	InputType  InputType `json:"inputType"`
	Username   string    `json:"username,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Password   string    `json:"password"`
	RePassword string    `json:"rePassword"`
	Email      string    `json:"email,omitempty"`
}

// Challenge is a freshly issued captcha: Key goes back in X-Captcha-Key,
// Image is the rendered Text.
type Challenge struct {
	Key       string
	Text      string
	Image     []byte
	ExpiresIn time.Duration
}

// Logger provides the minimal logging contract required by the auth domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
