package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/domain/record"
	"github.com/pawsync/pawsync/internal/domain/user"
	"github.com/pawsync/pawsync/internal/store"
)

type stubRemote[E store.Entity] struct {
	createFn func(ctx context.Context, e E) (Result[E], error)
	updateFn func(ctx context.Context, e E) (Result[E], error)
	deleteFn func(ctx context.Context, id string) (Result[E], error)
}

func (s stubRemote[E]) Create(ctx context.Context, e E) (Result[E], error) {
	return s.createFn(ctx, e)
}

func (s stubRemote[E]) Update(ctx context.Context, e E) (Result[E], error) {
	return s.updateFn(ctx, e)
}

func (s stubRemote[E]) Delete(ctx context.Context, id string) (Result[E], error) {
	return s.deleteFn(ctx, id)
}

func TestCreateConfirmed(t *testing.T) {
	st := store.New[pet.Pet]()
	st.ReplaceAll([]pet.Pet{{ID: "existing", Name: "Old"}})

	remote := stubRemote[pet.Pet]{
		createFn: func(_ context.Context, e pet.Pet) (Result[pet.Pet], error) {
			e.ID = "server-1"
			return Result[pet.Pet]{Entity: e}, nil
		},
	}
	d := NewDispatcher[pet.Pet](st, remote, NewLedger(), nil)

	created, err := d.Create(context.Background(), pet.Pet{Name: "Rex"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "server-1" {
		t.Fatalf("authoritative id not returned: %s", created.ID)
	}

	list := st.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 pets, got %d", len(list))
	}
	if list[0].ID != "server-1" {
		t.Fatalf("confirmed entity not at the tentative position: %v", list)
	}
	if st.LastError() != nil {
		t.Fatalf("error slot should be clear: %v", st.LastError())
	}
}

func TestCreateRejected(t *testing.T) {
	st := store.New[pet.Pet]()
	rejection := errors.New("quota exceeded")
	remote := stubRemote[pet.Pet]{
		createFn: func(context.Context, pet.Pet) (Result[pet.Pet], error) {
			return Result[pet.Pet]{}, rejection
		},
	}
	d := NewDispatcher[pet.Pet](st, remote, NewLedger(), nil)

	if _, err := d.Create(context.Background(), pet.Pet{Name: "Rex"}); !errors.Is(err, rejection) {
		t.Fatalf("expected the rejection, got %v", err)
	}
	if !st.IsEmpty() {
		t.Fatalf("tentative entity survived rollback: %v", st.List())
	}
	if !errors.Is(st.LastError(), rejection) {
		t.Fatalf("rejection not recorded resource-scoped: %v", st.LastError())
	}
}

func TestUpdateRollbackRestoresPrior(t *testing.T) {
	st := store.New[pet.Pet]()
	st.ReplaceAll([]pet.Pet{{ID: "p1", Name: "Rex", WeightKg: 10}})

	remote := stubRemote[pet.Pet]{
		updateFn: func(context.Context, pet.Pet) (Result[pet.Pet], error) {
			return Result[pet.Pet]{}, errors.New("validation failed")
		},
	}
	d := NewDispatcher[pet.Pet](st, remote, NewLedger(), nil)

	if _, err := d.Update(context.Background(), pet.Pet{ID: "p1", Name: "Rex", WeightKg: 99}); err == nil {
		t.Fatal("expected rejection")
	}
	got, ok := st.Get("p1")
	if !ok || got.WeightKg != 10 {
		t.Fatalf("prior value not restored: %+v", got)
	}
}

func TestDeleteRollbackReinserts(t *testing.T) {
	st := store.New[pet.Pet]()
	st.ReplaceAll([]pet.Pet{{ID: "p1", Name: "Rex"}})

	calls := 0
	remote := stubRemote[pet.Pet]{
		deleteFn: func(_ context.Context, id string) (Result[pet.Pet], error) {
			calls++
			return Result[pet.Pet]{}, errors.New("conflict")
		},
	}
	d := NewDispatcher[pet.Pet](st, remote, NewLedger(), nil)

	if err := d.Delete(context.Background(), "p1"); err == nil {
		t.Fatal("expected rejection")
	}
	if calls != 1 {
		t.Fatalf("expected one network call, got %d", calls)
	}
	if _, ok := st.Get("p1"); !ok {
		t.Fatalf("deleted entity not restored: %v", st.List())
	}
}

func TestBillableAppliesLedgerWithConfirmation(t *testing.T) {
	st := store.New[record.Feeding]()
	ledger := NewLedger()
	ledger.Set(user.User{ID: "u1", Tokens: 100, TokensUsed: 0})

	remote := stubRemote[record.Feeding]{
		createFn: func(_ context.Context, e record.Feeding) (Result[record.Feeding], error) {
			e.ID = "f1"
			return Result[record.Feeding]{
				Entity: e,
				Ledger: &user.LedgerDelta{Tokens: 99, TokensUsed: 1},
			}, nil
		},
	}
	d := NewDispatcher[record.Feeding](st, remote, ledger, nil, Billable[record.Feeding]())

	if _, err := d.Create(context.Background(), record.Feeding{PetID: "p1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	u, ok := ledger.User()
	if !ok {
		t.Fatal("session user lost")
	}
	if u.Tokens != 99 || u.TokensUsed != 1 {
		t.Fatalf("balance pair not applied together: tokens=%d used=%d", u.Tokens, u.TokensUsed)
	}
}

func TestBillableRejectionLeavesLedgerUntouched(t *testing.T) {
	st := store.New[record.Feeding]()
	ledger := NewLedger()
	ledger.Set(user.User{ID: "u1", Tokens: 100})

	remote := stubRemote[record.Feeding]{
		createFn: func(context.Context, record.Feeding) (Result[record.Feeding], error) {
			return Result[record.Feeding]{}, errors.New("insufficient tokens")
		},
	}
	d := NewDispatcher[record.Feeding](st, remote, ledger, nil, Billable[record.Feeding]())

	if _, err := d.Create(context.Background(), record.Feeding{PetID: "p1"}); err == nil {
		t.Fatal("expected rejection")
	}
	u, _ := ledger.User()
	if u.Tokens != 100 || u.TokensUsed != 0 {
		t.Fatalf("rejected mutation moved the balance: %+v", u)
	}
}

func TestNonBillableIgnoresLedgerDelta(t *testing.T) {
	st := store.New[pet.Pet]()
	ledger := NewLedger()
	ledger.Set(user.User{ID: "u1", Tokens: 100})

	remote := stubRemote[pet.Pet]{
		createFn: func(_ context.Context, e pet.Pet) (Result[pet.Pet], error) {
			e.ID = "p1"
			return Result[pet.Pet]{Entity: e, Ledger: &user.LedgerDelta{Tokens: 1, TokensUsed: 1}}, nil
		},
	}
	d := NewDispatcher[pet.Pet](st, remote, ledger, nil)

	if _, err := d.Create(context.Background(), pet.Pet{Name: "Rex"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	u, _ := ledger.User()
	if u.Tokens != 100 {
		t.Fatalf("non-billable kind moved the balance: %+v", u)
	}
}

// TestLastResponseWins issues two updates against the same entity whose
// responses arrive out of order; the collection must settle on the
// later-arriving response.
func TestLastResponseWins(t *testing.T) {
	st := store.New[pet.Pet]()
	st.ReplaceAll([]pet.Pet{{ID: "p1", Name: "Rex", WeightKg: 10}})

	firstSent := make(chan struct{})
	release := make(chan struct{})
	remote := stubRemote[pet.Pet]{
		updateFn: func(_ context.Context, e pet.Pet) (Result[pet.Pet], error) {
			if e.WeightKg == 11 {
				close(firstSent)
				<-release
			}
			return Result[pet.Pet]{Entity: e}, nil
		},
	}
	d := NewDispatcher[pet.Pet](st, remote, NewLedger(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := d.Update(context.Background(), pet.Pet{ID: "p1", Name: "Rex", WeightKg: 11}); err != nil {
			t.Errorf("slow update: %v", err)
		}
	}()

	<-firstSent
	if _, err := d.Update(context.Background(), pet.Pet{ID: "p1", Name: "Rex", WeightKg: 12}); err != nil {
		t.Fatalf("fast update: %v", err)
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("slow update never settled")
	}

	got, _ := st.Get("p1")
	if got.WeightKg != 11 {
		t.Fatalf("expected the later-arriving confirmation to win, got %+v", got)
	}
}

func TestLoadingSpansOverlappingMutations(t *testing.T) {
	st := store.New[pet.Pet]()
	st.ReplaceAll([]pet.Pet{{ID: "p1"}, {ID: "p2"}})

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	remote := stubRemote[pet.Pet]{
		deleteFn: func(_ context.Context, id string) (Result[pet.Pet], error) {
			started <- struct{}{}
			<-release
			return Result[pet.Pet]{}, nil
		},
	}
	d := NewDispatcher[pet.Pet](st, remote, NewLedger(), nil)

	errs := make(chan error, 2)
	for _, id := range []string{"p1", "p2"} {
		go func(id string) { errs <- d.Delete(context.Background(), id) }(id)
	}
	<-started
	<-started

	if !st.IsLoading() {
		t.Fatal("loading flag not set while mutations are in flight")
	}
	close(release)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	if st.IsLoading() {
		t.Fatal("loading flag stuck after the last mutation settled")
	}
}

func TestUpdateMissingID(t *testing.T) {
	d := NewDispatcher[pet.Pet](store.New[pet.Pet](), stubRemote[pet.Pet]{}, NewLedger(), nil)
	if _, err := d.Update(context.Background(), pet.Pet{}); err == nil {
		t.Fatal("expected an error for a missing id")
	}
	if err := d.Delete(context.Background(), ""); err == nil {
		t.Fatal("expected an error for a missing id")
	}
}

func TestMutationsAcrossKindsIndependent(t *testing.T) {
	petStore := store.New[pet.Pet]()
	feedStore := store.New[record.Feeding]()

	petRemote := stubRemote[pet.Pet]{
		createFn: func(context.Context, pet.Pet) (Result[pet.Pet], error) {
			return Result[pet.Pet]{}, fmt.Errorf("pets are failing")
		},
	}
	feedRemote := stubRemote[record.Feeding]{
		createFn: func(_ context.Context, e record.Feeding) (Result[record.Feeding], error) {
			e.ID = "f1"
			return Result[record.Feeding]{Entity: e}, nil
		},
	}
	ledger := NewLedger()
	pets := NewDispatcher[pet.Pet](petStore, petRemote, ledger, nil)
	feedings := NewDispatcher[record.Feeding](feedStore, feedRemote, ledger, nil)

	if _, err := pets.Create(context.Background(), pet.Pet{Name: "Rex"}); err == nil {
		t.Fatal("expected pet create to fail")
	}
	if _, err := feedings.Create(context.Background(), record.Feeding{PetID: "p"}); err != nil {
		t.Fatalf("feeding create: %v", err)
	}

	if petStore.LastError() == nil {
		t.Fatal("pet failure not recorded")
	}
	if feedStore.LastError() != nil {
		t.Fatalf("failure leaked across kinds: %v", feedStore.LastError())
	}
}
