package user

import "time"

// Roles recognised by the backend.
const (
	RoleGuardian = "guardian"
	RoleAdmin    = "admin"
)

// Subscription plans.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// User is an account holder. Tokens and TokensUsed form the token ledger:
// they change only as a side effect of a successful billable mutation,
// never through a direct client write.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Plan         string     `json:"plan"`
	Tokens       int64      `json:"tokens"`
	TokensUsed   int64      `json:"tokens_used"`
	SubExpiresAt *time.Time `json:"subscription_expires_at,omitempty"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// EntityID returns the server-assigned identifier.
func (u User) EntityID() string { return u.ID }

// IsAdmin reports whether the user may manage other accounts.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// LedgerDelta is the updated token balance a billable mutation response
// carries alongside the entity. It is an absolute replacement value pair,
// not an increment.
type LedgerDelta struct {
	Tokens     int64 `json:"tokens"`
	TokensUsed int64 `json:"tokens_used"`
}
