package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/errs"
	"github.com/keepsake-app/keepsake/internal/model"
	"github.com/keepsake-app/keepsake/internal/repository/memstore"
)

func TestRoomService_Create_AssignsTokenAndHonorsProvisionalID(t *testing.T) {
	store := memstore.New()
	svc := NewRoomService(store.Rooms())
	owner := uuid.Must(uuid.NewV4())
	prov := uuid.Must(uuid.NewV4())

	room, err := svc.Create(context.Background(), owner, model.RoomSpec{
		ProvisionalID: prov,
		Name:          "roadtrip",
		Visibility:    model.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.ID != prov {
		t.Fatalf("provisional id not honored: got %s", room.ID)
	}
	if room.ShareToken == "" {
		t.Fatal("share token not assigned")
	}
	if room.CreatedAt.IsZero() {
		t.Fatal("created-at not stamped")
	}
}

func TestRoomService_Create_RejectsInvalidSpec(t *testing.T) {
	store := memstore.New()
	svc := NewRoomService(store.Rooms())
	owner := uuid.Must(uuid.NewV4())

	_, err := svc.Create(context.Background(), owner, model.RoomSpec{
		Name:       "  ",
		Visibility: model.VisibilityPublic,
	})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestRoomService_Patch_OwnerOnly(t *testing.T) {
	store := memstore.New()
	svc := NewRoomService(store.Rooms())
	owner := uuid.Must(uuid.NewV4())
	stranger := uuid.Must(uuid.NewV4())

	room, err := svc.Create(context.Background(), owner, model.RoomSpec{
		Name: "attic", Visibility: model.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "new attic"
	if _, err := svc.Patch(context.Background(), stranger, room.ID, model.RoomPatch{Name: &name}); !errors.Is(err, errs.ErrRejected) {
		t.Fatalf("stranger patch: want rejection, got %v", err)
	}

	got, err := svc.Patch(context.Background(), owner, room.ID, model.RoomPatch{Name: &name})
	if err != nil {
		t.Fatalf("owner patch: %v", err)
	}
	if got.Name != "new attic" {
		t.Fatalf("patch not applied: %q", got.Name)
	}
}

func TestRoomService_Patch_CapsuleCheckedAgainstEditTime(t *testing.T) {
	store := memstore.New()
	svc := NewRoomService(store.Rooms())
	owner := uuid.Must(uuid.NewV4())

	room, err := svc.Create(context.Background(), owner, model.RoomSpec{
		Name: "sealed later", Visibility: model.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	past := model.CapsuleConfig{Mode: model.ModeFixedDate, FixedUnlockAt: time.Now().Add(-time.Hour)}
	if _, err := svc.Patch(context.Background(), owner, room.ID, model.RoomPatch{Capsule: &past}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("past fixed date: want validation error, got %v", err)
	}

	future := model.CapsuleConfig{Mode: model.ModeFixedDate, FixedUnlockAt: time.Now().Add(time.Hour)}
	got, err := svc.Patch(context.Background(), owner, room.ID, model.RoomPatch{Capsule: &future})
	if err != nil {
		t.Fatalf("future fixed date: %v", err)
	}
	if got.Capsule == nil || !got.Capsule.FixedUnlockAt.Equal(future.FixedUnlockAt) {
		t.Fatal("capsule not attached")
	}
}

func TestRoomService_ResolveShareLink_TokenIsNotAuthorization(t *testing.T) {
	store := memstore.New()
	svc := NewRoomService(store.Rooms())
	owner := uuid.Must(uuid.NewV4())
	stranger := uuid.Must(uuid.NewV4())

	room, err := svc.Create(context.Background(), owner, model.RoomSpec{
		Name: "private", Visibility: model.VisibilityPrivate,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.ResolveShareLink(context.Background(), stranger, room.ShareToken); !errors.Is(err, errs.ErrRejected) {
		t.Fatalf("stranger resolve: want rejection, got %v", err)
	}
	got, err := svc.ResolveShareLink(context.Background(), owner, room.ShareToken)
	if err != nil {
		t.Fatalf("owner resolve: %v", err)
	}
	if got.ID != room.ID {
		t.Fatal("wrong room resolved")
	}
}

func TestRoomService_Delete_RemovesRoom(t *testing.T) {
	store := memstore.New()
	svc := NewRoomService(store.Rooms())
	owner := uuid.Must(uuid.NewV4())

	room, err := svc.Create(context.Background(), owner, model.RoomSpec{
		Name: "gone", Visibility: model.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), owner, room.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), owner, room.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("after delete: want not-found, got %v", err)
	}
}
