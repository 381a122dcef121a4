package api

import (
	"context"
	"net/http"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/ticket"
	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/store"
	"github.com/pawsync/pawsync/internal/sync"
)

const apiPrefix = "/api/v1"

// mutationEnvelope mirrors the backend's mutation response: the entity plus,
// when tokens were charged, the updated balance pair.
type mutationEnvelope[E any] struct {
	Entity     E      `json:"entity"`
	Tokens     *int64 `json:"tokens,omitempty"`
	TokensUsed *int64 `json:"tokens_used,omitempty"`
}

func (m mutationEnvelope[E]) delta() *user.LedgerDelta {
	if m.Tokens == nil || m.TokensUsed == nil {
		return nil
	}
	return &user.LedgerDelta{Tokens: *m.Tokens, TokensUsed: *m.TokensUsed}
}

// resource implements sync.Remote for one kind. Routes are built by the
// closures supplied at construction; create paths may depend on the entity
// (health records post under their pet).
type resource[E store.Entity] struct {
	c          *Client
	createPath func(e E) string
	itemPath   func(id string) string
}

func (r resource[E]) Create(ctx context.Context, e E) (sync.Result[E], error) {
	return r.mutate(ctx, http.MethodPost, r.createPath(e), e)
}

func (r resource[E]) Update(ctx context.Context, e E) (sync.Result[E], error) {
	return r.mutate(ctx, http.MethodPatch, r.itemPath(e.EntityID()), e)
}

func (r resource[E]) Delete(ctx context.Context, id string) (sync.Result[E], error) {
	return r.mutate(ctx, http.MethodDelete, r.itemPath(id), nil)
}

func (r resource[E]) mutate(ctx context.Context, method, path string, body interface{}) (sync.Result[E], error) {
	resp, err := r.c.Do(ctx, method, path, body)
	if err != nil {
		return sync.Result[E]{}, err
	}
	var envelope mutationEnvelope[E]
	if err := DecodeResponse(resp, &envelope); err != nil {
		return sync.Result[E]{}, err
	}
	return sync.Result[E]{Entity: envelope.Entity, Ledger: envelope.delta()}, nil
}

// Remotes produces the per-kind sync.Remote implementations and the
// snapshot source backed by one client.
type Remotes struct {
	c *Client
}

// NewRemotes wraps the client.
func NewRemotes(c *Client) *Remotes { return &Remotes{c: c} }

// FetchSnapshot loads the composite snapshot for the current session. The
// raw response bytes feed the controller's content-hash guard.
func (r *Remotes) FetchSnapshot(ctx context.Context) (*sync.Snapshot, []byte, error) {
	resp, err := r.c.Get(ctx, apiPrefix+"/sync/snapshot")
	if err != nil {
		return nil, nil, err
	}
	var snap sync.Snapshot
	raw, err := decodeBody(resp, &snap)
	if err != nil {
		return nil, nil, err
	}
	return &snap, raw, nil
}

// Pets is the pet collection remote.
func (r *Remotes) Pets() sync.Remote[pet.Pet] {
	return resource[pet.Pet]{
		c:          r.c,
		createPath: func(pet.Pet) string { return apiPrefix + "/pets" },
		itemPath:   func(id string) string { return apiPrefix + "/pets/" + id },
	}
}

// Tickets is the support-ticket remote.
func (r *Remotes) Tickets() sync.Remote[ticket.Ticket] {
	return resource[ticket.Ticket]{
		c:          r.c,
		createPath: func(ticket.Ticket) string { return apiPrefix + "/tickets" },
		itemPath:   func(id string) string { return apiPrefix + "/tickets/" + id },
	}
}

// recordRemote builds the remote for one health-record kind. Creates post
// under the owning pet; updates and deletes address the record directly.
func recordRemote[E store.Entity](c *Client, kind record.Kind, petID func(E) string) sync.Remote[E] {
	return resource[E]{
		c: c,
		createPath: func(e E) string {
			return apiPrefix + "/pets/" + petID(e) + "/" + string(kind)
		},
		itemPath: func(id string) string {
			return apiPrefix + "/records/" + string(kind) + "/" + id
		},
	}
}

func (r *Remotes) Feedings() sync.Remote[record.Feeding] {
	return recordRemote(r.c, record.KindFeeding, func(e record.Feeding) string { return e.PetID })
}

func (r *Remotes) Water() sync.Remote[record.Water] {
	return recordRemote(r.c, record.KindWater, func(e record.Water) string { return e.PetID })
}

func (r *Remotes) Medications() sync.Remote[record.Medication] {
	return recordRemote(r.c, record.KindMedication, func(e record.Medication) string { return e.PetID })
}

func (r *Remotes) PainScores() sync.Remote[record.PainScore] {
	return recordRemote(r.c, record.KindPainScore, func(e record.PainScore) string { return e.PetID })
}

func (r *Remotes) Seizures() sync.Remote[record.Seizure] {
	return recordRemote(r.c, record.KindSeizure, func(e record.Seizure) string { return e.PetID })
}

func (r *Remotes) Vitals() sync.Remote[record.Vitals] {
	return recordRemote(r.c, record.KindVitals, func(e record.Vitals) string { return e.PetID })
}

func (r *Remotes) Movements() sync.Remote[record.Movement] {
	return recordRemote(r.c, record.KindMovement, func(e record.Movement) string { return e.PetID })
}

func (r *Remotes) Appointments() sync.Remote[record.Appointment] {
	return recordRemote(r.c, record.KindAppointment, func(e record.Appointment) string { return e.PetID })
}

func (r *Remotes) BloodSugar() sync.Remote[record.BloodSugar] {
	return recordRemote(r.c, record.KindBloodSugar, func(e record.BloodSugar) string { return e.PetID })
}

func (r *Remotes) Gallery() sync.Remote[record.GalleryItem] {
	return recordRemote(r.c, record.KindGallery, func(e record.GalleryItem) string { return e.PetID })
}
