package storage

import (
	"context"
	stderrors "errors"
	"strings"

	"gorm.io/gorm"

	"blog-server-go/internal/domain/auth/model"
	"blog-server-go/internal/domain/auth/repository"
	"blog-server-go/internal/platform/errors"
)

// userRepository 用户仓库实现
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库实例
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

// identityQuery matches username OR phone, ignoring empty values.
func (r *userRepository) identityQuery(ctx context.Context, username, phone string) (*gorm.DB, bool) {
	username = strings.TrimSpace(username)
	phone = strings.TrimSpace(phone)
	q := r.db.WithContext(ctx).Model(&User{})
	switch {
	case username != "" && phone != "":
		return q.Where("username = ? OR phone = ?", username, phone), true
	case username != "":
		return q.Where("username = ?", username), true
	case phone != "":
		return q.Where("phone = ?", phone), true
	default:
		return nil, false
	}
}

// FindByUsernameOrPhone 按用户名或手机号查找用户
func (r *userRepository) FindByUsernameOrPhone(ctx context.Context, username, phone string) (*model.User, error) {
	q, ok := r.identityQuery(ctx, username, phone)
	if !ok {
		return nil, nil
	}
	var row User
	if err := q.Order("id ASC").First(&row).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "user.find_by_identity", "failed to find user", err)
	}
	return r.fromModel(&row), nil
}

// FindByID 根据ID查找用户
func (r *userRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var row User
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "user.find_by_id", "failed to find user", err)
	}
	return r.fromModel(&row), nil
}

// ExistsByUsernameOrPhone 用户名或手机号是否已存在
func (r *userRepository) ExistsByUsernameOrPhone(ctx context.Context, username, phone string) (bool, error) {
	q, ok := r.identityQuery(ctx, username, phone)
	if !ok {
		return false, nil
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, errors.Wrap(errors.KindStorage, "user.exists", "failed to check user existence", err)
	}
	return count > 0, nil
}

// NicknameExists 昵称是否已存在
func (r *userRepository) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&User{}).Where("nick_name = ?", nickname).Count(&count).Error; err != nil {
		return false, errors.Wrap(errors.KindStorage, "user.nickname_exists", "failed to check nickname", err)
	}
	return count > 0, nil
}

// Create 保存新用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	row := r.toModel(user)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if column, ok := uniqueViolation(err); ok {
			if strings.Contains(column, "nick_name") {
				return model.ErrDuplicateNickname
			}
			return model.ErrDuplicateAccount
		}
		return errors.Wrap(errors.KindStorage, "user.create", "failed to save user", err)
	}
	user.ID = row.ID
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt
	return nil
}

// uniqueViolation extracts "table.column" from a SQLite UNIQUE constraint error.
func uniqueViolation(err error) (string, bool) {
	const marker = "UNIQUE constraint failed: "
	msg := err.Error()
	i := strings.Index(msg, marker)
	if i < 0 {
		return "", false
	}
	return msg[i+len(marker):], true
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *userRepository) toModel(user *model.User) *User {
	return &User{
		ID:            user.ID,
		Username:      nullable(user.Username),
		Phone:         nullable(user.Phone),
		Email:         user.Email,
		Password:      user.PasswordHash,
		NickName:      user.Nickname,
		AccountStatus: user.AccountStatus,
		Gender:        user.Gender,
		AvatarPath:    user.AvatarPath,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func (r *userRepository) fromModel(row *User) *model.User {
	return &model.User{
		ID:            row.ID,
		Username:      deref(row.Username),
		Phone:         deref(row.Phone),
		Email:         row.Email,
		PasswordHash:  row.Password,
		Nickname:      row.NickName,
		AccountStatus: row.AccountStatus,
		Gender:        row.Gender,
		AvatarPath:    row.AvatarPath,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
