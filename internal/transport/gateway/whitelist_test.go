package gateway

import "testing"

func TestWhitelistAllows(t *testing.T) {
	w, err := NewWhitelist([]string{"/auth/**", "/public/*.png"})
	if err != nil {
		t.Fatalf("NewWhitelist error: %v", err)
	}

	cases := []struct {
		path string
		want bool
	}{
		{"/auth", true},
		{"/auth/", true},
		{"/auth/login", true},
		{"/auth/captcha/refresh", true},
		{"/authx", false},
		{"/articles/5", false},
		{"/users/auth/login", false},
		{"/public/logo.png", true},
		{"/public/img/logo.png", false},
		{"/", false},
	}
	for _, tc := range cases {
		if got := w.Allows(tc.path); got != tc.want {
			t.Errorf("Allows(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestWhitelistRejectsBadPatterns(t *testing.T) {
	for _, raw := range []string{"", "  ", "auth/**"} {
		if _, err := NewWhitelist([]string{raw}); err == nil {
			t.Errorf("expected error for pattern %q", raw)
		}
	}
}

func TestNilWhitelistAllowsNothing(t *testing.T) {
	var w *Whitelist
	if w.Allows("/auth/login") {
		t.Fatal("nil whitelist should allow nothing")
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := bearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Errorf("bearerToken(%q) = %q, %v", tc.header, token, ok)
		}
	}
}
