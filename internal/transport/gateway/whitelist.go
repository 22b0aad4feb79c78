package gateway

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// pathPattern is a compiled '/'-separated glob. A pattern ending in "/**"
// also matches its bare prefix, so "/auth/**" covers "/auth" too.
type pathPattern struct {
	raw    string
	glob   glob.Glob
	prefix string
}

func compilePattern(raw string) (pathPattern, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return pathPattern{}, fmt.Errorf("path pattern %q must start with /", raw)
	}
	g, err := glob.Compile(raw, '/')
	if err != nil {
		return pathPattern{}, fmt.Errorf("compile path pattern %q: %w", raw, err)
	}
	p := pathPattern{raw: raw, glob: g}
	if strings.HasSuffix(raw, "/**") {
		p.prefix = strings.TrimSuffix(raw, "/**")
	}
	return p, nil
}

func (p pathPattern) match(path string) bool {
	if p.prefix != "" && path == p.prefix {
		return true
	}
	return p.glob.Match(path)
}

// Whitelist lists the paths that bypass token authorization.
type Whitelist struct {
	patterns []pathPattern
}

func NewWhitelist(patterns []string) (*Whitelist, error) {
	w := &Whitelist{}
	for _, raw := range patterns {
		p, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		w.patterns = append(w.patterns, p)
	}
	return w, nil
}

// Allows reports whether path is whitelisted.
func (w *Whitelist) Allows(path string) bool {
	if w == nil {
		return false
	}
	for _, p := range w.patterns {
		if p.match(path) {
			return true
		}
	}
	return false
}
