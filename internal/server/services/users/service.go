// Package users implements account management: registration, login,
// token grants and the admin operations over accounts.
package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/storage"
	"github.com/pawsync/pawsync/pkg/logger"
)

var (
	// ErrEmailTaken is returned when the registration email is already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInsufficientTokens is returned when a billable operation costs more
	// than the account's remaining balance.
	ErrInsufficientTokens = errors.New("insufficient tokens")
)

// SignupGrant is the token balance granted to every new account.
const SignupGrant int64 = 100

// Service manages accounts and their token ledgers.
type Service struct {
	store storage.UserStore
	log   *logger.Logger
}

func New(store storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, log: log}
}

// Register creates an account with a hashed password and the signup grant.
func (s *Service) Register(ctx context.Context, email, name, password string) (user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return user.User{}, ErrInvalidCredentials
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return user.User{}, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, err
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         user.RoleGuardian,
		Plan:         user.PlanFree,
		Tokens:       SignupGrant,
		PasswordHash: string(hash),
	})
	if err != nil {
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).Info("account registered")
	return created, nil
}

// Authenticate verifies the email/password pair and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return user.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Get returns the account by id.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.GetUser(ctx, id)
}

// Charge deducts cost tokens from the account and records the usage.
// The two ledger columns move together or not at all.
func (s *Service) Charge(ctx context.Context, id string, cost int64) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if cost < 0 {
		cost = 0
	}
	if u.Tokens < cost {
		return user.User{}, ErrInsufficientTokens
	}
	u.Tokens -= cost
	u.TokensUsed += cost
	return s.store.UpdateUser(ctx, u)
}

// Refund reverses a prior charge when the billable operation failed after
// the deduction.
func (s *Service) Refund(ctx context.Context, id string, cost int64) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Tokens += cost
	u.TokensUsed -= cost
	if u.TokensUsed < 0 {
		u.TokensUsed = 0
	}
	return s.store.UpdateUser(ctx, u)
}

// Grant adds tokens to the account. Admin only at the transport layer.
func (s *Service) Grant(ctx context.Context, id string, amount int64) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Tokens += amount
	updated, err := s.store.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, err
	}
	s.log.WithFields(map[string]interface{}{"user_id": id, "amount": amount}).Info("tokens granted")
	return updated, nil
}

// SetPlan switches the account's subscription plan.
func (s *Service) SetPlan(ctx context.Context, id, plan string, expiresAt *time.Time) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.Plan = plan
	u.SubExpiresAt = expiresAt
	return s.store.UpdateUser(ctx, u)
}

// UpdateProfile changes the mutable profile fields of an account.
func (s *Service) UpdateProfile(ctx context.Context, id, name string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if name != "" {
		u.Name = strings.TrimSpace(name)
	}
	return s.store.UpdateUser(ctx, u)
}

// List returns every account. Admin only at the transport layer.
func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// Delete removes an account. Admin only at the transport layer.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteUser(ctx, id)
}
