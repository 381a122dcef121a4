// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/storage"
)

// Store implements storage.Store on a PostgreSQL database.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, email, name, role, plan, tokens, tokens_used, sub_expires_at, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (user.User, error) {
	var (
		u       user.User
		expires sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Plan, &u.Tokens, &u.TokensUsed, &expires, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	if expires.Valid {
		t := expires.Time
		u.SubExpiresAt = &t
	}
	return u, nil
}

func subExpires(u user.User) sql.NullTime {
	if u.SubExpiresAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *u.SubExpiresAt, Valid: true}
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, u.Email, u.Name, u.Role, u.Plan, u.Tokens, u.TokensUsed, subExpires(u), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM app_users WHERE id = $1
	`, id)
	u, err := scanUser(row)
	return u, mapNotFound(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM app_users WHERE lower(email) = lower($1)
	`, email)
	u, err := scanUser(row)
	return u, mapNotFound(err)
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}

	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET email = $2, name = $3, role = $4, plan = $5, tokens = $6,
		    tokens_used = $7, sub_expires_at = $8, password_hash = $9, updated_at = $10
		WHERE id = $1
	`, u.ID, u.Email, u.Name, u.Role, u.Plan, u.Tokens, u.TokensUsed, subExpires(u), u.PasswordHash, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM app_users ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM app_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- PetStore ---------------------------------------------------------------

const petColumns = `id, user_id, name, species, breed, birth_date, weight_kg, avatar_url, created_at, updated_at`

func scanPet(row interface{ Scan(...interface{}) error }) (pet.Pet, error) {
	var (
		p     pet.Pet
		birth sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Species, &p.Breed, &birth, &p.WeightKg, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return pet.Pet{}, err
	}
	if birth.Valid {
		t := birth.Time
		p.BirthDate = &t
	}
	return p, nil
}

func birthDate(p pet.Pet) sql.NullTime {
	if p.BirthDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p.BirthDate, Valid: true}
}

func (s *Store) CreatePet(ctx context.Context, p pet.Pet) (pet.Pet, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pets (`+petColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.UserID, p.Name, p.Species, p.Breed, birthDate(p), p.WeightKg, p.AvatarURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return pet.Pet{}, err
	}
	return p, nil
}

func (s *Store) GetPet(ctx context.Context, id string) (pet.Pet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+petColumns+` FROM pets WHERE id = $1
	`, id)
	p, err := scanPet(row)
	return p, mapNotFound(err)
}

func (s *Store) ListPetsByUser(ctx context.Context, userID string) ([]pet.Pet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+petColumns+` FROM pets WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []pet.Pet
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdatePet(ctx context.Context, p pet.Pet) (pet.Pet, error) {
	existing, err := s.GetPet(ctx, p.ID)
	if err != nil {
		return pet.Pet{}, err
	}

	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE pets
		SET name = $2, species = $3, breed = $4, birth_date = $5,
		    weight_kg = $6, avatar_url = $7, updated_at = $8
		WHERE id = $1
	`, p.ID, p.Name, p.Species, p.Breed, birthDate(p), p.WeightKg, p.AvatarURL, p.UpdatedAt)
	if err != nil {
		return pet.Pet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return pet.Pet{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) DeletePet(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- RecordStore ------------------------------------------------------------

const recordColumns = `id, kind, pet_id, user_id, payload, created_at, updated_at`

func scanRecord(row interface{ Scan(...interface{}) error }) (record.Generic, error) {
	var g record.Generic
	if err := row.Scan(&g.ID, &g.Kind, &g.PetID, &g.UserID, &g.Payload, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return record.Generic{}, err
	}
	return g, nil
}

func (s *Store) CreateRecord(ctx context.Context, g record.Generic) (record.Generic, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO health_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.Kind, g.PetID, g.UserID, g.Payload, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return record.Generic{}, err
	}
	return g, nil
}

func (s *Store) GetRecord(ctx context.Context, kind record.Kind, id string) (record.Generic, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM health_records WHERE id = $1 AND kind = $2
	`, id, kind)
	g, err := scanRecord(row)
	return g, mapNotFound(err)
}

func (s *Store) ListRecordsByUser(ctx context.Context, kind record.Kind, userID string) ([]record.Generic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM health_records
		WHERE kind = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, kind, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []record.Generic
	for rows.Next() {
		g, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) UpdateRecord(ctx context.Context, g record.Generic) (record.Generic, error) {
	existing, err := s.GetRecord(ctx, g.Kind, g.ID)
	if err != nil {
		return record.Generic{}, err
	}

	g.PetID = existing.PetID
	g.UserID = existing.UserID
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE health_records SET payload = $3, updated_at = $4
		WHERE id = $1 AND kind = $2
	`, g.ID, g.Kind, g.Payload, g.UpdatedAt)
	if err != nil {
		return record.Generic{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return record.Generic{}, storage.ErrNotFound
	}
	return g, nil
}

func (s *Store) DeleteRecord(ctx context.Context, kind record.Kind, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM health_records WHERE id = $1 AND kind = $2
	`, id, kind)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- TicketStore ------------------------------------------------------------

const ticketColumns = `id, user_id, subject, body, reply, status, created_at, updated_at`

func scanTicket(row interface{ Scan(...interface{}) error }) (ticket.Ticket, error) {
	var t ticket.Ticket
	if err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Body, &t.Reply, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return ticket.Ticket{}, err
	}
	return t, nil
}

func (s *Store) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (`+ticketColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.ID, t.UserID, t.Subject, t.Body, t.Reply, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return ticket.Ticket{}, err
	}
	return t, nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (ticket.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+` FROM tickets WHERE id = $1
	`, id)
	t, err := scanTicket(row)
	return t, mapNotFound(err)
}

func (s *Store) ListTicketsByUser(ctx context.Context, userID string) ([]ticket.Ticket, error) {
	return s.listTickets(ctx, `WHERE user_id = $1`, userID)
}

func (s *Store) ListTickets(ctx context.Context) ([]ticket.Ticket, error) {
	return s.listTickets(ctx, ``)
}

func (s *Store) listTickets(ctx context.Context, where string, args ...interface{}) ([]ticket.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+ticketColumns+` FROM tickets `+where+` ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ticket.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	existing, err := s.GetTicket(ctx, t.ID)
	if err != nil {
		return ticket.Ticket{}, err
	}

	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tickets SET subject = $2, body = $3, reply = $4, status = $5, updated_at = $6
		WHERE id = $1
	`, t.ID, t.Subject, t.Body, t.Reply, t.Status, t.UpdatedAt)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ticket.Ticket{}, storage.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTicket(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
