package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/store"
	"github.com/pawsync/pawsync/pkg/logger"
)

// Result is a successful mutation response: the authoritative entity plus,
// for billable kinds, the updated token balance.
type Result[E store.Entity] struct {
	Entity E
	Ledger *user.LedgerDelta
}

// Remote issues the network call backing one mutation. Implementations live
// in the API client; the dispatcher only requires that a response
// distinguishes success (entity plus optional ledger delta) from failure.
type Remote[E store.Entity] interface {
	Create(ctx context.Context, e E) (Result[E], error)
	Update(ctx context.Context, e E) (Result[E], error)
	Delete(ctx context.Context, id string) (Result[E], error)
}

// Dispatcher runs the optimistic mutation lifecycle for one resource kind:
// tentative apply, network call, then confirm or rollback in
// response-arrival order. Mutations against different kinds are fully
// independent; mutations against the same entity id are not coordinated and
// settle last-response-wins.
type Dispatcher[E store.Entity] struct {
	store    *store.Store[E]
	rec      *Reconciler[E]
	remote   Remote[E]
	ledger   *Ledger
	billable bool
	log      *logger.Logger
}

// DispatcherOption configures a dispatcher.
type DispatcherOption[E store.Entity] func(*Dispatcher[E])

// Billable marks the kind as token-charged: successful responses carry a
// ledger delta that is applied to the session user before the mutation
// resolves.
func Billable[E store.Entity]() DispatcherOption[E] {
	return func(d *Dispatcher[E]) { d.billable = true }
}

// NewDispatcher builds the dispatcher and its reconciler for one kind.
func NewDispatcher[E store.Entity](s *store.Store[E], remote Remote[E], ledger *Ledger, log *logger.Logger, opts ...DispatcherOption[E]) *Dispatcher[E] {
	if log == nil {
		log = logger.NewDefault("sync")
	}
	d := &Dispatcher[E]{
		store:  s,
		rec:    NewReconciler[E](s),
		remote: remote,
		ledger: ledger,
		log:    log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Store exposes the read side of the dispatcher's collection.
func (d *Dispatcher[E]) Store() *store.Store[E] { return d.store }

// Create shows the tentative entity immediately and swaps it for the
// authoritative one once the backend confirms. On rejection the tentative
// entity is removed again and the error is recorded resource-scoped.
func (d *Dispatcher[E]) Create(ctx context.Context, e E) (E, error) {
	correlation := uuid.NewString()
	pending := d.rec.ApplyCreate(correlation, e)
	return d.settle(ctx, pending, func(ctx context.Context) (Result[E], error) {
		return d.remote.Create(ctx, e)
	})
}

// Update makes the proposed value visible immediately, reverting to the
// captured prior value if the backend rejects it.
func (d *Dispatcher[E]) Update(ctx context.Context, e E) (E, error) {
	var zero E
	if e.EntityID() == "" {
		return zero, fmt.Errorf("update %T: missing id", e)
	}
	pending := d.rec.ApplyUpdate(e)
	return d.settle(ctx, pending, func(ctx context.Context) (Result[E], error) {
		return d.remote.Update(ctx, e)
	})
}

// Delete removes the entity immediately and re-inserts the captured value
// if the backend rejects the deletion.
func (d *Dispatcher[E]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("delete: missing id")
	}
	pending := d.rec.ApplyDelete(id)
	_, err := d.settle(ctx, pending, func(ctx context.Context) (Result[E], error) {
		return d.remote.Delete(ctx, id)
	})
	return err
}

// settle runs the network call bracketed by the loading flag, then finishes
// the pending mutation. On success the ledger delta (billable kinds only)
// is applied before control returns, so no caller observes a confirmed
// mutation without the matching balance.
func (d *Dispatcher[E]) settle(ctx context.Context, pending Pending[E], call func(context.Context) (Result[E], error)) (E, error) {
	d.store.BeginMutation()
	defer d.store.EndMutation()

	res, err := call(ctx)
	if err != nil {
		pending.Rollback()
		d.store.SetError(err)
		d.log.WithError(err).Warnf("%s rejected, rolled back", pending.op)
		var zero E
		return zero, err
	}

	pending.Confirm(res.Entity)
	if d.billable && res.Ledger != nil {
		d.ledger.ApplyDelta(*res.Ledger)
	}
	d.store.ClearError()
	return res.Entity, nil
}
