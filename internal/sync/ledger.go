package sync

import (
	gosync "sync"

	"github.com/pawsync/pawsync/internal/domain/user"
)

// Ledger holds the session user and its token balance. The balance is
// mutated only from a dispatcher's success path; there is no optimistic
// deduction, because an incorrect optimistic balance could let a user spend
// tokens a rejected mutation should have preserved.
type Ledger struct {
	mu      gosync.RWMutex
	current user.User
	present bool
}

// NewLedger returns an empty ledger; no user is considered signed in.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Set replaces the session user wholesale. Called by the bulk sync
// controller when a snapshot lands.
func (l *Ledger) Set(u user.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = u
	l.present = true
}

// User returns the session user and whether one is present.
func (l *Ledger) User() (user.User, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current, l.present
}

// ApplyDelta assigns the authoritative balance pair onto the session user
// in one step. Both fields come from the same mutation response, so a
// reader never observes only one of them applied.
func (l *Ledger) ApplyDelta(d user.LedgerDelta) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current.Tokens = d.Tokens
	l.current.TokensUsed = d.TokensUsed
}

// Clear drops the session user. Called on logout and on a failed snapshot
// fetch (fail-closed: a session that cannot be refreshed is treated as no
// longer valid).
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = user.User{}
	l.present = false
}
