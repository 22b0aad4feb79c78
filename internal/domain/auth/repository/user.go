package repository

import (
	"context"

	"blog-server-go/internal/domain/auth/model"
)

// UserRepository 用户仓库接口
type UserRepository interface {
	// FindByUsernameOrPhone 按用户名或手机号查找用户，不存在时返回 nil, nil
	FindByUsernameOrPhone(ctx context.Context, username, phone string) (*model.User, error)

	// FindByID 按ID查找用户，不存在时返回 nil, nil
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// ExistsByUsernameOrPhone 用户名或手机号是否已被占用
	ExistsByUsernameOrPhone(ctx context.Context, username, phone string) (bool, error)

	// NicknameExists 昵称是否已被占用
	NicknameExists(ctx context.Context, nickname string) (bool, error)

	// Create 保存新用户并回填 ID。唯一约束冲突返回
	// model.ErrDuplicateAccount 或 model.ErrDuplicateNickname。
	Create(ctx context.Context, user *model.User) error
}
