// Package session tracks the current user identity and drives bulk
// synchronization when it changes. It is the inbound boundary for the
// auth collaborator: login, logout and token refreshes all land here.
package session

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pawsync/pawsync/pkg/logger"
)

// Syncer is the bulk sync controller as seen from the session layer.
type Syncer interface {
	Sync(ctx context.Context) error
	Reset()
}

// TokenSink receives the raw access token for outbound requests.
type TokenSink interface {
	SetToken(token string)
	ClearToken()
}

// Manager holds the current session subject. A new token with the same
// subject (a routine refresh) does not retrigger synchronization; a
// different subject or a transition from signed-out does.
type Manager struct {
	syncer Syncer
	sink   TokenSink
	log    *logger.Logger

	mu      gosync.Mutex
	subject string
}

// NewManager wires the session manager to the sync controller and the
// outbound token sink.
func NewManager(syncer Syncer, sink TokenSink, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Manager{syncer: syncer, sink: sink, log: log}
}

// Subject returns the current session subject, or "" when signed out.
func (m *Manager) Subject() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subject
}

// SetToken installs a new access token. The subject claim is read without
// signature verification; verifying tokens is the backend's job, the
// client only needs the identity for change detection. If the identity
// changed, a full synchronization runs before SetToken returns.
func (m *Manager) SetToken(ctx context.Context, token string) error {
	subject, err := tokenSubject(token)
	if err != nil {
		return err
	}

	m.sink.SetToken(token)

	m.mu.Lock()
	changed := subject != m.subject
	m.subject = subject
	m.mu.Unlock()

	if !changed {
		return nil
	}

	m.log.WithField("subject", subject).Debug("session identity changed")
	return m.syncer.Sync(ctx)
}

// Clear signs the session out: the token is dropped and every store is
// emptied.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.subject = ""
	m.mu.Unlock()

	m.sink.ClearToken()
	m.syncer.Reset()
}

func tokenSubject(token string) (string, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("access token has no subject")
	}
	return claims.Subject, nil
}
