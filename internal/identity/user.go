package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// Validate enforces that the staff user id is a UUID.
func (s Staff) Validate() error {
	if s.UserID == "" {
		return ErrMissingIdentity
	}
	if _, err := uuid.Parse(s.UserID); err != nil {
		return fmt.Errorf("%w: invalid user id", ErrMissingIdentity)
	}
	return nil
}
