package auth

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"time"
)

const nicknameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NicknameOptions configures a NicknameGenerator. Zero values take the defaults.
type NicknameOptions struct {
	Prefix       string
	Ceiling      int64
	SuffixLength int
	Now          func() time.Time
}

// NicknameGenerator produces display names of the form
// prefix + yyyyMMddHHmmssSSS + %04d counter + random [0-9a-z] suffix.
// It is safe for concurrent use; the counter is its only shared state.
type NicknameGenerator struct {
	prefix       string
	ceiling      int64
	suffixLength int
	now          func() time.Time
	counter      atomic.Int64
}

func NewNicknameGenerator(opts NicknameOptions) *NicknameGenerator {
	g := &NicknameGenerator{
		prefix:       opts.Prefix,
		ceiling:      opts.Ceiling,
		suffixLength: opts.SuffixLength,
		now:          opts.Now,
	}
	if g.prefix == "" {
		g.prefix = "Zw_"
	}
	if g.ceiling <= 0 {
		g.ceiling = 9999
	}
	if g.suffixLength <= 0 {
		g.suffixLength = 8
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Next returns a fresh nickname.
func (g *NicknameGenerator) Next() string {
	now := g.now()
	seq := g.nextSeq()

	var b strings.Builder
	b.Grow(len(g.prefix) + 17 + 4 + g.suffixLength)
	b.WriteString(g.prefix)
	b.WriteString(now.Format("20060102150405"))
	fmt.Fprintf(&b, "%03d%04d", now.Nanosecond()/int(time.Millisecond), seq)
	for i := 0; i < g.suffixLength; i++ {
		b.WriteByte(nicknameAlphabet[rand.IntN(len(nicknameAlphabet))])
	}
	return b.String()
}

// nextSeq advances the counter and returns its previous value, wrapping to 0
// after the ceiling.
func (g *NicknameGenerator) nextSeq() int64 {
	for {
		cur := g.counter.Load()
		next := cur + 1
		if cur >= g.ceiling {
			next = 0
		}
		if g.counter.CompareAndSwap(cur, next) {
			return cur
		}
	}
}
