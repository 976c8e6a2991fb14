// Package policy contains the pure access and retention rules.
package policy

import (
	"github.com/gofrs/uuid/v5"

	"github.com/keepsake-app/keepsake/internal/model"
)

// CanView reports whether principal may view room's contents. Public rooms
// are visible to anyone. Private rooms admit only the owner and explicit
// allow-list members. Possession of a share link or room id is never
// sufficient: every content read path, including share-link resolution,
// must pass through this gate.
func CanView(principal uuid.UUID, room *model.Room) bool {
	if room.Visibility == model.VisibilityPublic {
		return true
	}
	if principal == uuid.Nil {
		return false
	}
	if principal == room.Owner {
		return true
	}
	for _, p := range room.AllowList {
		if p == principal {
			return true
		}
	}
	return false
}
