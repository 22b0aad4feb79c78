package auth

import (
	"errors"
	"testing"

	"blog-server-go/internal/domain/auth/model"
)

func TestValidateLogin(t *testing.T) {
	valid := func() *model.LoginRequest {
		return &model.LoginRequest{
			InputType: model.InputUsername,
			Username:  "validUser1",
			Password:  "Abcd123!",
			Captcha:   "a1B2",
		}
	}

	cases := []struct {
		name   string
		mutate func(r *model.LoginRequest)
		key    string
		want   error
	}{
		{name: "ok", key: "k"},
		{name: "empty input type defaults to username", mutate: func(r *model.LoginRequest) { r.InputType = "" }, key: "k"},
		{name: "phone mode", mutate: func(r *model.LoginRequest) { r.InputType = model.InputPhone }, key: "k", want: model.ErrUnsupportedInputType},
		{name: "unknown mode", mutate: func(r *model.LoginRequest) { r.InputType = "email" }, key: "k", want: model.ErrUnsupportedInputType},
		{name: "missing username", mutate: func(r *model.LoginRequest) { r.Username = " " }, key: "k", want: model.ErrArgumentIsNull},
		{name: "missing password", mutate: func(r *model.LoginRequest) { r.Password = "" }, key: "k", want: model.ErrArgumentIsNull},
		{name: "missing captcha", mutate: func(r *model.LoginRequest) { r.Captcha = "" }, key: "k", want: model.ErrArgumentIsNull},
		{name: "missing challenge key", want: model.ErrArgumentIsNull},
		{name: "short username", mutate: func(r *model.LoginRequest) { r.Username = "abc" }, key: "k", want: model.ErrUsernameLength},
		{name: "long username", mutate: func(r *model.LoginRequest) { r.Username = "abcdefghijklmnop" }, key: "k", want: model.ErrUsernameLength},
		{name: "short password", mutate: func(r *model.LoginRequest) { r.Password = "Ab1!" }, key: "k", want: model.ErrPasswordLength},
		{name: "long password", mutate: func(r *model.LoginRequest) { r.Password = "Abcd123!Abcd123!" }, key: "k", want: model.ErrPasswordLength},
		{name: "no special", mutate: func(r *model.LoginRequest) { r.Password = "Abcd1234" }, key: "k", want: model.ErrPasswordFormat},
		{name: "no upper", mutate: func(r *model.LoginRequest) { r.Password = "abcd123!" }, key: "k", want: model.ErrPasswordFormat},
		{name: "no lower", mutate: func(r *model.LoginRequest) { r.Password = "ABCD123!" }, key: "k", want: model.ErrPasswordFormat},
		{name: "no digit", mutate: func(r *model.LoginRequest) { r.Password = "Abcdefg!" }, key: "k", want: model.ErrPasswordFormat},
		{name: "foreign char", mutate: func(r *model.LoginRequest) { r.Password = "Abcd 123!" }, key: "k", want: model.ErrPasswordFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			if tc.mutate != nil {
				tc.mutate(req)
			}
			err := ValidateLogin(req, tc.key)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("ValidateLogin = %v, want %v", err, tc.want)
			}
		})
	}

	if err := ValidateLogin(nil, "k"); !errors.Is(err, model.ErrArgumentIsNull) {
		t.Fatalf("nil request: %v", err)
	}
}

func TestValidateRegister(t *testing.T) {
	valid := func() *model.RegisterRequest {
		return &model.RegisterRequest{
			InputType:  model.InputUsername,
			Username:   "validUser1",
			Password:   "Abcd123!",
			RePassword: "Abcd123!",
		}
	}

	cases := []struct {
		name   string
		mutate func(r *model.RegisterRequest)
		want   error
	}{
		{name: "ok"},
		{name: "ok with email", mutate: func(r *model.RegisterRequest) { r.Email = "user@example.com" }},
		{name: "phone mode", mutate: func(r *model.RegisterRequest) { r.InputType = model.InputPhone }, want: model.ErrUnsupportedInputType},
		{name: "missing repassword", mutate: func(r *model.RegisterRequest) { r.RePassword = "" }, want: model.ErrArgumentIsNull},
		{name: "mismatch", mutate: func(r *model.RegisterRequest) { r.RePassword = "Abcd123?" }, want: model.ErrPasswordsDoNotMatch},
		{name: "bad password checked before mismatch", mutate: func(r *model.RegisterRequest) { r.Password = "short" }, want: model.ErrPasswordLength},
		{name: "bad email", mutate: func(r *model.RegisterRequest) { r.Email = "not-an-email" }, want: model.ErrEmailFormat},
		{name: "short username", mutate: func(r *model.RegisterRequest) { r.Username = "user" }, want: model.ErrUsernameLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			if tc.mutate != nil {
				tc.mutate(req)
			}
			err := ValidateRegister(req)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("ValidateRegister = %v, want %v", err, tc.want)
			}
		})
	}
}
