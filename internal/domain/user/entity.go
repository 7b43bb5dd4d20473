package user

import (
	"database/sql"

	"github.com/google/uuid"
)

// Profile is the read-only view of a user owned by the profile subsystem.
type Profile struct {
	ID        uuid.UUID
	Username  string
	AvatarRef sql.NullString
	Verified  bool
}
