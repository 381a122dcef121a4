// Package tickets implements the support ticket workflow.
package tickets

import (
	"context"
	"errors"
	"strings"

	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/server/storage"
	"github.com/pawsync/pawsync/pkg/logger"
)

var (
	// ErrForbidden is returned when the ticket belongs to another user.
	ErrForbidden = errors.New("ticket belongs to another user")
	// ErrSubjectRequired is returned when a ticket is opened without a subject.
	ErrSubjectRequired = errors.New("ticket subject is required")
)

// Service manages support tickets.
type Service struct {
	store storage.TicketStore
	log   *logger.Logger
}

func New(store storage.TicketStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tickets")
	}
	return &Service{store: store, log: log}
}

// Open creates a ticket for userID.
func (s *Service) Open(ctx context.Context, userID, subject, body string) (ticket.Ticket, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return ticket.Ticket{}, ErrSubjectRequired
	}
	created, err := s.store.CreateTicket(ctx, ticket.Ticket{
		UserID:  userID,
		Subject: subject,
		Body:    body,
		Status:  ticket.StatusOpen,
	})
	if err != nil {
		return ticket.Ticket{}, err
	}
	s.log.WithField("ticket_id", created.ID).Info("ticket opened")
	return created, nil
}

// ListForUser returns the user's own tickets, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]ticket.Ticket, error) {
	return s.store.ListTicketsByUser(ctx, userID)
}

// ListAll returns every ticket. Admin only at the transport layer.
func (s *Service) ListAll(ctx context.Context) ([]ticket.Ticket, error) {
	return s.store.ListTickets(ctx)
}

// Get returns the ticket if userID owns it or asAdmin is set.
func (s *Service) Get(ctx context.Context, userID, id string, asAdmin bool) (ticket.Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if !asAdmin && t.UserID != userID {
		return ticket.Ticket{}, ErrForbidden
	}
	return t, nil
}

// Reply records an admin answer and marks the ticket answered.
func (s *Service) Reply(ctx context.Context, id, reply string) (ticket.Ticket, error) {
	t, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return ticket.Ticket{}, err
	}
	t.Reply = reply
	t.Status = ticket.StatusAnswered
	return s.store.UpdateTicket(ctx, t)
}

// Close marks the ticket closed. The owner or an admin may close it.
func (s *Service) Close(ctx context.Context, userID, id string, asAdmin bool) (ticket.Ticket, error) {
	t, err := s.Get(ctx, userID, id, asAdmin)
	if err != nil {
		return ticket.Ticket{}, err
	}
	t.Status = ticket.StatusClosed
	return s.store.UpdateTicket(ctx, t)
}

// Delete removes a ticket owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string, asAdmin bool) error {
	if _, err := s.Get(ctx, userID, id, asAdmin); err != nil {
		return err
	}
	return s.store.DeleteTicket(ctx, id)
}
