// README: Identifier type shared by every module (uuid strings, firebase uids for users).
package types

import "github.com/google/uuid"

type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string { return string(id) }

// Ptr returns nil for the zero ID so optional foreign keys map to NULL.
func (id ID) Ptr() *string {
	if id == "" {
		return nil
	}
	s := string(id)
	return &s
}

func IDFromPtr(s *string) ID {
	if s == nil {
		return ""
	}
	return ID(*s)
}
