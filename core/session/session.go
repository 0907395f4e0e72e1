package session

import (
	"context"
	"errors"
)

// Local storage keys mirrored by the Store.
const (
	KeyToken     = "token"
	KeyStudentID = "student_id"
	KeyEmail     = "email"
)

var (
	// LegacyKeys are no longer written but still cleared on logout.
	LegacyKeys = []string{"role", "username", "person_id"}

	// ErrNoItem is returned by a Storage when the requested key is not set.
	ErrNoItem = errors.New("local storage item not found")
)

// Session is the authorization context of one client.
type Session struct {
	Token     string
	StudentID string
	Email     string
}

// IsAuthenticated reports whether a token is present. Token validity is never checked locally.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// Storage is a per-client key/value item store, the server-side equivalent of browser local storage.
type Storage interface {
	// GetItem returns ErrNoItem if key is not set for clientID.
	GetItem(ctx context.Context, clientID, key string) (string, error)
	SetItem(ctx context.Context, clientID, key, value string) error
	// RemoveItem is a noop if key is not set.
	RemoveItem(ctx context.Context, clientID, key string) error
}
