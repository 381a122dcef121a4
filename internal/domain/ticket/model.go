package ticket

import "time"

// Ticket statuses.
const (
	StatusOpen     = "open"
	StatusAnswered = "answered"
	StatusClosed   = "closed"
)

// Ticket is a support request raised by a user and answered by an admin.
type Ticket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Reply     string    `json:"reply,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the server-assigned identifier.
func (t Ticket) EntityID() string { return t.ID }
