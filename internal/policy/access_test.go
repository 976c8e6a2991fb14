package policy

import (
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/model"
)

func TestCanView_PublicAdmitsAnyone(t *testing.T) {
	room := &model.Room{
		Owner:      uuid.Must(uuid.NewV4()),
		Visibility: model.VisibilityPublic,
	}
	if !CanView(uuid.Must(uuid.NewV4()), room) {
		t.Fatalf("public room must admit any principal")
	}
	if !CanView(uuid.Nil, room) {
		t.Fatalf("public room must admit anonymous principals")
	}
}

func TestCanView_PrivateOwnerAndAllowListOnly(t *testing.T) {
	owner := uuid.Must(uuid.NewV4())
	friend := uuid.Must(uuid.NewV4())
	stranger := uuid.Must(uuid.NewV4())

	room := &model.Room{
		Owner:      owner,
		Visibility: model.VisibilityPrivate,
		AllowList:  []uuid.UUID{friend},
	}

	if !CanView(owner, room) {
		t.Fatalf("owner must view a private room")
	}
	if !CanView(friend, room) {
		t.Fatalf("allow-listed principal must view a private room")
	}
	if CanView(stranger, room) {
		t.Fatalf("stranger must not view a private room")
	}
	if CanView(uuid.Nil, room) {
		t.Fatalf("anonymous principal must not view a private room")
	}
}

func TestCanView_ShareTokenIsNotAuthorization(t *testing.T) {
	// Possessing the room record (and with it the share token) must not
	// grant access on its own.
	room := &model.Room{
		Owner:      uuid.Must(uuid.NewV4()),
		Visibility: model.VisibilityPrivate,
		ShareToken: "tok-123",
	}
	if CanView(uuid.Must(uuid.NewV4()), room) {
		t.Fatalf("share token possession must not grant access")
	}
}
