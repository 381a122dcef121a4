package sync

import (
	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/store"
)

// StoreSet bundles the per-kind resource stores for one session. Stores are
// constructed once and shared by reference; only dispatchers and the bulk
// sync controller write to them.
type StoreSet struct {
	Pets         *store.Store[pet.Pet]
	Feedings     *store.Store[record.Feeding]
	Water        *store.Store[record.Water]
	Medications  *store.Store[record.Medication]
	PainScores   *store.Store[record.PainScore]
	Seizures     *store.Store[record.Seizure]
	Vitals       *store.Store[record.Vitals]
	Movements    *store.Store[record.Movement]
	Appointments *store.Store[record.Appointment]
	BloodSugar   *store.Store[record.BloodSugar]
	Gallery      *store.Store[record.GalleryItem]
	Tickets      *store.Store[ticket.Ticket]
}

// NewStoreSet creates empty stores for every known resource kind.
func NewStoreSet() *StoreSet {
	return &StoreSet{
		Pets:         store.New[pet.Pet](),
		Feedings:     store.New[record.Feeding](),
		Water:        store.New[record.Water](),
		Medications:  store.New[record.Medication](),
		PainScores:   store.New[record.PainScore](),
		Seizures:     store.New[record.Seizure](),
		Vitals:       store.New[record.Vitals](),
		Movements:    store.New[record.Movement](),
		Appointments: store.New[record.Appointment](),
		BloodSugar:   store.New[record.BloodSugar](),
		Gallery:      store.New[record.GalleryItem](),
		Tickets:      store.New[ticket.Ticket](),
	}
}

// clearErrors empties every store's error slot. A successful bulk sync
// settles resource-scoped failures even when the snapshot content has not
// changed.
func (s *StoreSet) clearErrors() {
	s.Pets.ClearError()
	s.Feedings.ClearError()
	s.Water.ClearError()
	s.Medications.ClearError()
	s.PainScores.ClearError()
	s.Seizures.ClearError()
	s.Vitals.ClearError()
	s.Movements.ClearError()
	s.Appointments.ClearError()
	s.BloodSugar.ClearError()
	s.Gallery.ClearError()
	s.Tickets.ClearError()
}

// clearAll empties every store. Used when the session ends.
func (s *StoreSet) clearAll() {
	s.Pets.ReplaceAll(nil)
	s.Feedings.ReplaceAll(nil)
	s.Water.ReplaceAll(nil)
	s.Medications.ReplaceAll(nil)
	s.PainScores.ReplaceAll(nil)
	s.Seizures.ReplaceAll(nil)
	s.Vitals.ReplaceAll(nil)
	s.Movements.ReplaceAll(nil)
	s.Appointments.ReplaceAll(nil)
	s.BloodSugar.ReplaceAll(nil)
	s.Gallery.ReplaceAll(nil)
	s.Tickets.ReplaceAll(nil)
}
