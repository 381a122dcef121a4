package pets

import (
	"context"
	"errors"
	"testing"

	"github.com/pawsync/pawsync/internal/domain/pet"
	"github.com/pawsync/pawsync/internal/server/storage/memory"
)

func TestServiceOwnership(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "user-1", pet.Pet{Name: " Rex ", Species: "dog"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Rex" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
	if created.UserID != "user-1" {
		t.Fatalf("owner not set: %s", created.UserID)
	}

	if _, err := svc.Get(ctx, "user-2", created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, "user-2", created.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}

	list, err := svc.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 pet, got %d", len(list))
	}

	created.Name = "Rexy"
	updated, err := svc.Update(ctx, "user-1", created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Rexy" {
		t.Fatalf("update not applied: %s", updated.Name)
	}

	if err := svc.Delete(ctx, "user-1", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestCreateRequiresName(t *testing.T) {
	svc := New(memory.New(), nil)
	if _, err := svc.Create(context.Background(), "user-1", pet.Pet{Name: "  "}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
}
