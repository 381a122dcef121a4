// Package memory provides the in-memory storage.Store used by tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/domain/user"

	"github.com/pawsync/pawsync/internal/server/storage"
)

// Memory is a thread-safe in-memory implementation of storage.Store. It is
// intended for tests and local development and deliberately keeps the
// implementation simple.
type Memory struct {
	mu      sync.RWMutex
	nextSeq int64
	users   map[string]user.User
	pets    map[string]pet.Pet
	records map[string]record.Generic
	tickets map[string]ticket.Ticket
	seq     map[string]int64
}

var _ storage.Store = (*Memory)(nil)

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{
		nextSeq: 1,
		users:   make(map[string]user.User),
		pets:    make(map[string]pet.Pet),
		records: make(map[string]record.Generic),
		tickets: make(map[string]ticket.Ticket),
		seq:     make(map[string]int64),
	}
}

func (m *Memory) nextSeqLocked(id string) {
	m.seq[id] = m.nextSeq
	m.nextSeq++
}

func (m *Memory) nextIDLocked() string {
	id := fmt.Sprintf("%d", m.nextSeq)
	return id
}

// UserStore implementation ----------------------------------------------------

func (m *Memory) CreateUser(_ context.Context, u user.User) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == "" {
		u.ID = m.nextIDLocked()
	} else if _, exists := m.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("email %s already registered", u.Email)
		}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	m.users[u.ID] = u
	m.nextSeqLocked(u.ID)
	return u, nil
}

func (m *Memory) GetUser(_ context.Context, id string) (user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, storage.ErrNotFound
}

func (m *Memory) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.users[u.ID]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}

	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]user.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] < m.seq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.users, id)
	delete(m.seq, id)
	return nil
}

// PetStore implementation -----------------------------------------------------

func (m *Memory) CreatePet(_ context.Context, p pet.Pet) (pet.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = m.nextIDLocked()
	} else if _, exists := m.pets[p.ID]; exists {
		return pet.Pet{}, fmt.Errorf("pet %s already exists", p.ID)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	m.pets[p.ID] = p
	m.nextSeqLocked(p.ID)
	return p, nil
}

func (m *Memory) GetPet(_ context.Context, id string) (pet.Pet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pets[id]
	if !ok {
		return pet.Pet{}, storage.ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPetsByUser(_ context.Context, userID string) ([]pet.Pet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]pet.Pet, 0)
	for _, p := range m.pets {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] < m.seq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) UpdatePet(_ context.Context, p pet.Pet) (pet.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.pets[p.ID]
	if !ok {
		return pet.Pet{}, storage.ErrNotFound
	}

	p.UserID = original.UserID
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	m.pets[p.ID] = p
	return p, nil
}

func (m *Memory) DeletePet(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.pets, id)
	delete(m.seq, id)
	for rid, g := range m.records {
		if g.PetID == id {
			delete(m.records, rid)
			delete(m.seq, rid)
		}
	}
	return nil
}

// RecordStore implementation --------------------------------------------------

func (m *Memory) CreateRecord(_ context.Context, g record.Generic) (record.Generic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g.ID == "" {
		g.ID = m.nextIDLocked()
	} else if _, exists := m.records[g.ID]; exists {
		return record.Generic{}, fmt.Errorf("record %s already exists", g.ID)
	}

	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	g.Payload = append([]byte(nil), g.Payload...)

	m.records[g.ID] = g
	m.nextSeqLocked(g.ID)
	return cloneRecord(g), nil
}

func (m *Memory) GetRecord(_ context.Context, kind record.Kind, id string) (record.Generic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.records[id]
	if !ok || g.Kind != kind {
		return record.Generic{}, storage.ErrNotFound
	}
	return cloneRecord(g), nil
}

func (m *Memory) ListRecordsByUser(_ context.Context, kind record.Kind, userID string) ([]record.Generic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]record.Generic, 0)
	for _, g := range m.records {
		if g.Kind == kind && g.UserID == userID {
			result = append(result, cloneRecord(g))
		}
	}
	// Newest first.
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] > m.seq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) UpdateRecord(_ context.Context, g record.Generic) (record.Generic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.records[g.ID]
	if !ok || original.Kind != g.Kind {
		return record.Generic{}, storage.ErrNotFound
	}

	g.PetID = original.PetID
	g.UserID = original.UserID
	g.CreatedAt = original.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	g.Payload = append([]byte(nil), g.Payload...)

	m.records[g.ID] = g
	return cloneRecord(g), nil
}

func (m *Memory) DeleteRecord(_ context.Context, kind record.Kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.records[id]
	if !ok || g.Kind != kind {
		return storage.ErrNotFound
	}
	delete(m.records, id)
	delete(m.seq, id)
	return nil
}

// TicketStore implementation --------------------------------------------------

func (m *Memory) CreateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = m.nextIDLocked()
	} else if _, exists := m.tickets[t.ID]; exists {
		return ticket.Ticket{}, fmt.Errorf("ticket %s already exists", t.ID)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	m.tickets[t.ID] = t
	m.nextSeqLocked(t.ID)
	return t, nil
}

func (m *Memory) GetTicket(_ context.Context, id string) (ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tickets[id]
	if !ok {
		return ticket.Ticket{}, storage.ErrNotFound
	}
	return t, nil
}

func (m *Memory) ListTicketsByUser(_ context.Context, userID string) ([]ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ticket.Ticket, 0)
	for _, t := range m.tickets {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] > m.seq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) ListTickets(_ context.Context) ([]ticket.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ticket.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return m.seq[result[i].ID] > m.seq[result[j].ID]
	})
	return result, nil
}

func (m *Memory) UpdateTicket(_ context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.tickets[t.ID]
	if !ok {
		return ticket.Ticket{}, storage.ErrNotFound
	}

	t.UserID = original.UserID
	t.CreatedAt = original.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	m.tickets[t.ID] = t
	return t, nil
}

func (m *Memory) DeleteTicket(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tickets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.tickets, id)
	delete(m.seq, id)
	return nil
}

// Helpers ---------------------------------------------------------------------

func cloneRecord(g record.Generic) record.Generic {
	g.Payload = append([]byte(nil), g.Payload...)
	return g
}
