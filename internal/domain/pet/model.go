package pet

import "time"

// Pet is a guardian's animal. All health records reference a pet through
// PetID back-references; the pet itself belongs to the owning user.
type Pet struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Species   string     `json:"species"`
	Breed     string     `json:"breed,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	WeightKg  float64    `json:"weight_kg,omitempty"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// EntityID returns the server-assigned identifier.
func (p Pet) EntityID() string { return p.ID }
