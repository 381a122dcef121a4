// Package storage defines the persistence interfaces of the reference
// backend. The memory subpackage holds an in-memory implementation for
// tests and prototyping, the postgres subpackage a PostgreSQL one.
package storage

import (
	"context"
	"errors"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/domain/user"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// UserStore persists accounts, including the token ledger columns.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PetStore persists pets.
type PetStore interface {
	CreatePet(ctx context.Context, p pet.Pet) (pet.Pet, error)
	GetPet(ctx context.Context, id string) (pet.Pet, error)
	ListPetsByUser(ctx context.Context, userID string) ([]pet.Pet, error)
	UpdatePet(ctx context.Context, p pet.Pet) (pet.Pet, error)
	DeletePet(ctx context.Context, id string) error
}

// RecordStore persists health records in their kind-agnostic form.
// Listings return newest-first, matching the client's display order.
type RecordStore interface {
	CreateRecord(ctx context.Context, g record.Generic) (record.Generic, error)
	GetRecord(ctx context.Context, kind record.Kind, id string) (record.Generic, error)
	ListRecordsByUser(ctx context.Context, kind record.Kind, userID string) ([]record.Generic, error)
	UpdateRecord(ctx context.Context, g record.Generic) (record.Generic, error)
	DeleteRecord(ctx context.Context, kind record.Kind, id string) error
}

// TicketStore persists support tickets.
type TicketStore interface {
	CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error)
	GetTicket(ctx context.Context, id string) (ticket.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID string) ([]ticket.Ticket, error)
	ListTickets(ctx context.Context) ([]ticket.Ticket, error)
	UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error)
	DeleteTicket(ctx context.Context, id string) error
}

// Store is the union the application wires against.
type Store interface {
	UserStore
	PetStore
	RecordStore
	TicketStore
}
