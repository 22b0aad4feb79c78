package auth

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestNicknameFormat(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 678*int(time.Millisecond), time.Local)
	g := NewNicknameGenerator(NicknameOptions{Now: func() time.Time { return fixed }})

	first := g.Next()
	second := g.Next()

	pattern := regexp.MustCompile(`^Zw_20240102030405678(\d{4})[0-9a-z]{8}$`)
	m1 := pattern.FindStringSubmatch(first)
	m2 := pattern.FindStringSubmatch(second)
	if m1 == nil || m2 == nil {
		t.Fatalf("unexpected nickname format: %q %q", first, second)
	}
	if m1[1] != "0000" || m2[1] != "0001" {
		t.Fatalf("counter should start at 0000 and advance, got %s then %s", m1[1], m2[1])
	}
	if first == second {
		t.Fatal("consecutive nicknames collided")
	}
}

func TestNicknameCustomOptions(t *testing.T) {
	g := NewNicknameGenerator(NicknameOptions{Prefix: "U-", SuffixLength: 4})
	if !regexp.MustCompile(`^U-\d{17}\d{4}[0-9a-z]{4}$`).MatchString(g.Next()) {
		t.Fatal("custom prefix or suffix length not applied")
	}
}

func TestNicknameCounterWraps(t *testing.T) {
	g := NewNicknameGenerator(NicknameOptions{Ceiling: 2})
	got := make([]int64, 0, 6)
	for i := 0; i < 6; i++ {
		got = append(got, g.nextSeq())
	}
	want := []int64{0, 1, 2, 0, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", got, want)
		}
	}
}

func TestNicknameUniqueUnderConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		workers    = 100
		iterations = 2000
	)
	g := NewNicknameGenerator(NicknameOptions{})

	results := make([][]string, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			local := make([]string, iterations)
			for i := range local {
				local[i] = g.Next()
			}
			results[w] = local
		}(w)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers*iterations)
	for _, batch := range results {
		for _, name := range batch {
			if _, dup := seen[name]; dup {
				t.Fatalf("duplicate nickname %q", name)
			}
			seen[name] = struct{}{}
		}
	}
	if len(seen) != workers*iterations {
		t.Fatalf("expected %d nicknames, got %d", workers*iterations, len(seen))
	}
}
