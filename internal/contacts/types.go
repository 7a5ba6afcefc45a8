package contacts

import "time"

type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the key an event or form submission carries for a contact.
// CreatedBy is recorded only when a new contact is inserted.
type Identity struct {
	Phone     string
	Email     string
	Name      string
	CreatedBy string
}
