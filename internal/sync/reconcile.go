// Package sync implements the client-side data synchronization layer:
// optimistic mutations with confirm/rollback reconciliation, the token
// ledger side channel, and the bulk snapshot controller.
package sync

import "github.com/pawsync/pawsync/internal/store"

// Op identifies the mutation being reconciled.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Reconciler applies tentative mutations to one resource store and settles
// them once the backend responds. One reconciler exists per resource kind,
// constructed eagerly at session start; every dispatcher reuses the same
// apply/confirm/rollback logic instead of duplicating it per kind.
//
// Settlements run in response-arrival order, not issue order: a confirm or
// rollback mutates whatever the store currently holds for that id. A stale
// delete rollback can therefore be overwritten by a later-arriving update
// confirmation, which is the intended at-most-last-writer-wins behavior.
type Reconciler[E store.Entity] struct {
	store *store.Store[E]
}

// NewReconciler binds a reconciler to its store.
func NewReconciler[E store.Entity](s *store.Store[E]) *Reconciler[E] {
	return &Reconciler[E]{store: s}
}

// Pending is the state captured when a mutation was applied optimistically.
// Exactly one of Confirm or Rollback must be called once the backend
// response arrives.
type Pending[E store.Entity] struct {
	rec         *Reconciler[E]
	op          Op
	id          string
	correlation string
	prev        E
	hadPrev     bool
}

// ApplyCreate inserts the tentative entity newest-first under a correlation
// key and returns the pending settlement.
func (r *Reconciler[E]) ApplyCreate(correlation string, tentative E) Pending[E] {
	r.store.PrependTentative(correlation, tentative)
	return Pending[E]{rec: r, op: OpCreate, correlation: correlation}
}

// ApplyUpdate makes the proposed value visible immediately, capturing the
// prior value for rollback. If the id is not present the proposal is
// appended and rollback removes it again.
func (r *Reconciler[E]) ApplyUpdate(proposed E) Pending[E] {
	id := proposed.EntityID()
	prev, had := r.store.Get(id)
	r.store.UpsertByID(id, proposed)
	return Pending[E]{rec: r, op: OpUpdate, id: id, prev: prev, hadPrev: had}
}

// ApplyDelete removes the entity immediately, capturing it for rollback.
func (r *Reconciler[E]) ApplyDelete(id string) Pending[E] {
	prev, had := r.store.Get(id)
	r.store.RemoveByID(id)
	return Pending[E]{rec: r, op: OpDelete, id: id, prev: prev, hadPrev: had}
}

// Confirm settles the pending mutation with the authoritative entity.
// For a create the tentative entity is replaced in place; if a bulk load
// superseded it, the authoritative entity is upserted by id so the
// collection never holds a duplicate. For an update the entity is replaced
// by id. For a delete the removal is already final.
func (p Pending[E]) Confirm(server E) {
	switch p.op {
	case OpCreate:
		if !p.rec.store.UpsertByCorrelation(p.correlation, server) {
			p.rec.store.UpsertByID(server.EntityID(), server)
		}
	case OpUpdate:
		p.rec.store.UpsertByID(server.EntityID(), server)
	case OpDelete:
	}
}

// Rollback restores the state captured at apply time. A deleted entity is
// re-inserted via upsert, so its position may differ from the original.
func (p Pending[E]) Rollback() {
	switch p.op {
	case OpCreate:
		p.rec.store.RemoveByCorrelation(p.correlation)
	case OpUpdate:
		if p.hadPrev {
			p.rec.store.UpsertByID(p.id, p.prev)
		} else {
			p.rec.store.RemoveByID(p.id)
		}
	case OpDelete:
		if p.hadPrev {
			p.rec.store.UpsertByID(p.id, p.prev)
		}
	}
}
