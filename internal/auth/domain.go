// Package auth verifies credentials and resolves bearer-token sessions
// into request actors.
package auth

import (
	"time"

	"github.com/andino-transportes/andino/internal/shared"
)

// User represents an authenticated user account. A nil LocationID means
// the user is unbound and operates with administrative reach.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	Admin        bool
	LocationID   *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor projects the user into the request-scoped identity.
func (u *User) Actor() shared.Actor {
	return shared.Actor{
		UserID:     u.ID,
		Name:       u.Name,
		LocationID: u.LocationID,
		Admin:      u.Admin,
	}
}
