package model

import (
	"strconv"
	"sync"
	"time"
)

// ModKey is the ledger's stable, opaque mod identifier: a monotonically
// increasing base-36 counter prefixed with the ISO date of first
// activation. Never reassigned; never reused after deletion (spec.md §4.2
// key-generation policy).
type ModKey string

// OriginalValuesKey is the reserved pseudo-mod representing the game's
// pristine state, always the bottom-most entry of a stack. Named after
// the Rust ORIGINAL_VALUES_KEY sentinel
// (original_source/crates/nmm-core/src/install_log.rs).
const OriginalValuesKey ModKey = "ORIGINAL_VALUES"

// KeyGenerator mints ModKeys. It is safe for concurrent use; callers
// normally hold it for the lifetime of one Ledger.
type KeyGenerator struct {
	mu      sync.Mutex
	day     string
	counter int64
	now     func() time.Time
}

// NewKeyGenerator returns a generator seeded at counter zero. Call
// Observe for every key recovered from a loaded ledger before minting
// new ones, so keys are never reused across a restart.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{now: time.Now}
}

// Next returns the next ModKey, of the form "<YYYY-MM-DD>-<base36
// counter>". The counter resets to zero when the wall-clock date rolls
// over, so keys sort chronologically by day and monotonically within it.
func (g *KeyGenerator) Next() ModKey {
	g.mu.Lock()
	defer g.mu.Unlock()
	day := g.now().UTC().Format("2006-01-02")
	if day != g.day {
		g.day = day
		g.counter = 0
	}
	g.counter++
	return ModKey(day + "-" + strconv.FormatInt(g.counter, 36))
}

// Observe advances the counter past an already-issued key so keys
// recovered from a loaded ledger are never reissued. Keys from days
// other than today are ignored (they cannot collide with today's
// counter).
func (g *KeyGenerator) Observe(key ModKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := string(key)
	if len(s) < 11 || s[10] != '-' {
		return
	}
	day, suffix := s[:10], s[11:]
	if day != g.now().UTC().Format("2006-01-02") {
		return
	}
	n, err := strconv.ParseInt(suffix, 36, 64)
	if err != nil {
		return
	}
	if day != g.day {
		g.day = day
		g.counter = 0
	}
	if n > g.counter {
		g.counter = n
	}
}
