// Package pets implements pet profile management with ownership checks.
package pets

import (
	"context"
	"errors"
	"strings"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/server/storage"
	"github.com/pawsync/pawsync/pkg/logger"
)

var (
	// ErrForbidden is returned when the caller does not own the pet.
	ErrForbidden = errors.New("pet belongs to another user")
	// ErrNameRequired is returned when a pet is created without a name.
	ErrNameRequired = errors.New("pet name is required")
)

// Service manages pet profiles.
type Service struct {
	store storage.PetStore
	log   *logger.Logger
}

func New(store storage.PetStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("pets")
	}
	return &Service{store: store, log: log}
}

// Create stores a new pet owned by userID.
func (s *Service) Create(ctx context.Context, userID string, p pet.Pet) (pet.Pet, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return pet.Pet{}, ErrNameRequired
	}
	p.UserID = userID
	created, err := s.store.CreatePet(ctx, p)
	if err != nil {
		return pet.Pet{}, err
	}
	s.log.WithFields(map[string]interface{}{"pet_id": created.ID, "user_id": userID}).Info("pet created")
	return created, nil
}

// Get returns the pet if it belongs to userID.
func (s *Service) Get(ctx context.Context, userID, id string) (pet.Pet, error) {
	p, err := s.store.GetPet(ctx, id)
	if err != nil {
		return pet.Pet{}, err
	}
	if p.UserID != userID {
		return pet.Pet{}, ErrForbidden
	}
	return p, nil
}

// List returns the pets owned by userID in creation order.
func (s *Service) List(ctx context.Context, userID string) ([]pet.Pet, error) {
	return s.store.ListPetsByUser(ctx, userID)
}

// Update applies profile changes to a pet owned by userID.
func (s *Service) Update(ctx context.Context, userID string, p pet.Pet) (pet.Pet, error) {
	if _, err := s.Get(ctx, userID, p.ID); err != nil {
		return pet.Pet{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return pet.Pet{}, ErrNameRequired
	}
	return s.store.UpdatePet(ctx, p)
}

// Delete removes a pet owned by userID together with its records.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.store.DeletePet(ctx, id)
}
