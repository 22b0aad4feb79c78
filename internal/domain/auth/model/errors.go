package model

import (
	platformerrors "blog-server-go/internal/platform/errors"
)

// 认证领域错误。Code 为对外稳定的错误码，errors.Is 按错误码匹配。
var (
	ErrTokenMalformed       = platformerrors.Coded(platformerrors.KindAuth, "0x0001", "token is invalid")
	ErrTokenExpired         = platformerrors.Coded(platformerrors.KindAuth, "0x0002", "token has expired")
	ErrInvalidSubjectFormat = platformerrors.Coded(platformerrors.KindAuth, "0x0003", "token subject is not a valid account id")
	ErrTokenMissing         = platformerrors.Coded(platformerrors.KindAuth, "0x0004", "token is missing")

	ErrUserNotFound      = platformerrors.Coded(platformerrors.KindNotFound, "0x0101", "user does not exist")
	ErrInvalidAccountID  = platformerrors.Coded(platformerrors.KindValidation, "0x0108", "invalid account id")
	ErrPasswordIncorrect = platformerrors.Coded(platformerrors.KindAuth, "0x0109", "password is incorrect")

	ErrChallengeMismatch    = platformerrors.Coded(platformerrors.KindValidation, "0x0112", "captcha is incorrect")
	ErrChallengeExpired     = platformerrors.Coded(platformerrors.KindValidation, "0x0113", "captcha has expired")
	ErrUsernameLength       = platformerrors.Coded(platformerrors.KindValidation, "0x0114", "username must be 6 to 15 characters")
	ErrPasswordLength       = platformerrors.Coded(platformerrors.KindValidation, "0x0115", "password must be 8 to 15 characters")
	ErrPasswordFormat       = platformerrors.Coded(platformerrors.KindValidation, "0x0116", "password needs a lowercase letter, an uppercase letter, a digit and one of @$!%*?&")
	ErrAccountAlreadyExists = platformerrors.Coded(platformerrors.KindConflict, "0x0117", "account already exists")
	ErrPasswordsDoNotMatch  = platformerrors.Coded(platformerrors.KindValidation, "0x0118", "passwords do not match")
	ErrEmailFormat          = platformerrors.Coded(platformerrors.KindValidation, "0x0119", "email format is invalid")

	ErrArgumentIsNull       = platformerrors.Coded(platformerrors.KindValidation, "0x0200", "required argument is missing")
	ErrUnsupportedInputType = platformerrors.Coded(platformerrors.KindValidation, "0x0201", "only username login and registration are supported")
)

// Storage collision sentinels returned by user repositories on a UNIQUE violation.
var (
	ErrDuplicateAccount  = platformerrors.New(platformerrors.KindStorage, "user.create", "username or phone already taken")
	ErrDuplicateNickname = platformerrors.New(platformerrors.KindStorage, "user.create", "nickname already taken")
)
