// Package records implements health record management. Creating a record
// is billable: the per-kind cost is charged against the owner's token
// ledger in the same operation, and the updated balance is returned so the
// transport layer can embed it in the mutation response.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/server/storage"
	"github.com/pawsync/pawsync/pkg/logger"
)

var (
	// ErrUnknownKind is returned for a record kind the backend does not track.
	ErrUnknownKind = errors.New("unknown record kind")
	// ErrPetRequired is returned when the payload carries no pet reference.
	ErrPetRequired = errors.New("pet_id is required")
	// ErrForbidden is returned when the record or pet belongs to another user.
	ErrForbidden = errors.New("record belongs to another user")
	// ErrInvalidPayload is returned when the record body is not a JSON object.
	// Anything else would be stored but could never be flattened back into a
	// record on the way out.
	ErrInvalidPayload = errors.New("payload must be a JSON object")
)

// isObject reports whether payload is a well-formed JSON object.
func isObject(payload []byte) bool {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(payload)
}

// Costs is the token price of creating one record of each kind.
var Costs = map[record.Kind]int64{
	record.KindFeeding:     1,
	record.KindWater:       1,
	record.KindMedication:  2,
	record.KindPainScore:   1,
	record.KindSeizure:     2,
	record.KindVitals:      2,
	record.KindMovement:    1,
	record.KindAppointment: 2,
	record.KindBloodSugar:  2,
	record.KindGallery:     5,
}

// Ledger charges and refunds token costs on an account.
type Ledger interface {
	Charge(ctx context.Context, id string, cost int64) (user.User, error)
	Refund(ctx context.Context, id string, cost int64) (user.User, error)
}

// Service manages health records.
type Service struct {
	store  storage.RecordStore
	pets   storage.PetStore
	ledger Ledger
	log    *logger.Logger
}

func New(store storage.RecordStore, pets storage.PetStore, ledger Ledger, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("records")
	}
	return &Service{store: store, pets: pets, ledger: ledger, log: log}
}

// Create stores a record and charges its kind's cost. The record payload is
// kept opaque; only the pet reference is read out of it.
func (s *Service) Create(ctx context.Context, userID string, kind record.Kind, petID string, payload []byte) (record.Generic, user.User, error) {
	cost, ok := Costs[kind]
	if !ok {
		return record.Generic{}, user.User{}, ErrUnknownKind
	}
	if !isObject(payload) {
		return record.Generic{}, user.User{}, ErrInvalidPayload
	}
	if petID == "" {
		petID = gjson.GetBytes(payload, "pet_id").String()
	}
	if petID == "" {
		return record.Generic{}, user.User{}, ErrPetRequired
	}

	p, err := s.pets.GetPet(ctx, petID)
	if err != nil {
		return record.Generic{}, user.User{}, err
	}
	if p.UserID != userID {
		return record.Generic{}, user.User{}, ErrForbidden
	}

	charged, err := s.ledger.Charge(ctx, userID, cost)
	if err != nil {
		return record.Generic{}, user.User{}, err
	}

	created, err := s.store.CreateRecord(ctx, record.Generic{
		Kind:    kind,
		PetID:   petID,
		UserID:  userID,
		Payload: payload,
	})
	if err != nil {
		if refunded, rerr := s.ledger.Refund(ctx, userID, cost); rerr == nil {
			charged = refunded
		} else {
			s.log.WithError(rerr).WithField("user_id", userID).Error("refund after failed create")
		}
		return record.Generic{}, charged, err
	}

	s.log.WithFields(map[string]interface{}{
		"record_id": created.ID,
		"kind":      string(kind),
		"cost":      cost,
	}).Debug("record created")
	return created, charged, nil
}

// Get returns the record if it belongs to userID.
func (s *Service) Get(ctx context.Context, userID string, kind record.Kind, id string) (record.Generic, error) {
	g, err := s.store.GetRecord(ctx, kind, id)
	if err != nil {
		return record.Generic{}, err
	}
	if g.UserID != userID {
		return record.Generic{}, ErrForbidden
	}
	return g, nil
}

// List returns the user's records of one kind, newest first.
func (s *Service) List(ctx context.Context, userID string, kind record.Kind) ([]record.Generic, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	return s.store.ListRecordsByUser(ctx, kind, userID)
}

// Update replaces the payload of a record owned by userID. Updates are not
// billable.
func (s *Service) Update(ctx context.Context, userID string, kind record.Kind, id string, payload []byte) (record.Generic, error) {
	if !isObject(payload) {
		return record.Generic{}, ErrInvalidPayload
	}
	if _, err := s.Get(ctx, userID, kind, id); err != nil {
		return record.Generic{}, err
	}
	return s.store.UpdateRecord(ctx, record.Generic{ID: id, Kind: kind, Payload: payload})
}

// Delete removes a record owned by userID. Deletes are not billable and do
// not restore tokens.
func (s *Service) Delete(ctx context.Context, userID string, kind record.Kind, id string) error {
	if _, err := s.Get(ctx, userID, kind, id); err != nil {
		return err
	}
	return s.store.DeleteRecord(ctx, kind, id)
}
