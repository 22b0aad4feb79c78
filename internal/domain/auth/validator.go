package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"blog-server-go/internal/domain/auth/model"
)

const (
	usernameMinLen = 6
	usernameMaxLen = 15
	passwordMinLen = 8
	passwordMaxLen = 15

	passwordSpecials = "@$!%*?&"
)

var fieldValidator = validator.New()

// ValidateLogin checks a login request before any challenge or storage access.
func ValidateLogin(req *model.LoginRequest, challengeKey string) error {
	if req == nil {
		return model.ErrArgumentIsNull.WithOp("auth.login.validate")
	}
	if req.InputType.Normalize() != model.InputUsername {
		return model.ErrUnsupportedInputType.WithOp("auth.login.validate")
	}
	if blank(req.Username) || req.Password == "" || blank(req.Captcha) || blank(challengeKey) {
		return model.ErrArgumentIsNull.WithOp("auth.login.validate")
	}
	return validateCredentials("auth.login.validate", req.Username, req.Password)
}

// ValidateRegister checks a registration request before any storage access.
func ValidateRegister(req *model.RegisterRequest) error {
	const op = "auth.register.validate"
	if req == nil {
		return model.ErrArgumentIsNull.WithOp(op)
	}
	if req.InputType.Normalize() != model.InputUsername {
		return model.ErrUnsupportedInputType.WithOp(op)
	}
	if blank(req.Username) || req.Password == "" || req.RePassword == "" {
		return model.ErrArgumentIsNull.WithOp(op)
	}
	if err := validateCredentials(op, req.Username, req.Password); err != nil {
		return err
	}
	if req.Password != req.RePassword {
		return model.ErrPasswordsDoNotMatch.WithOp(op)
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		if err := fieldValidator.Var(email, "email"); err != nil {
			return model.ErrEmailFormat.WithOp(op)
		}
	}
	return nil
}

func validateCredentials(op, username, password string) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(username)); n < usernameMinLen || n > usernameMaxLen {
		return model.ErrUsernameLength.WithOp(op)
	}
	if n := utf8.RuneCountInString(password); n < passwordMinLen || n > passwordMaxLen {
		return model.ErrPasswordLength.WithOp(op)
	}
	if !passwordWellFormed(password) {
		return model.ErrPasswordFormat.WithOp(op)
	}
	return nil
}

// passwordWellFormed requires a lowercase letter, an uppercase letter, a digit
// and one of @$!%*?&, and nothing outside those classes.
func passwordWellFormed(password string) bool {
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return false
		}
	}
	return lower && upper && digit && special
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
