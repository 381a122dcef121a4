package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Generic is the backend's kind-agnostic form of a health record: the
// envelope fields every kind shares plus the kind-specific fields as an
// opaque JSON object. The backend stores and serves records in this form;
// only the client decodes them into the typed structs above.
type Generic struct {
	ID        string
	Kind      Kind
	PetID     string
	UserID    string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntityID returns the server-assigned identifier.
func (g Generic) EntityID() string { return g.ID }

// MarshalJSON flattens the payload and the envelope fields into one object,
// matching the shape of the typed record structs.
func (g Generic) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(g.Payload) > 0 {
		if err := json.Unmarshal(g.Payload, &fields); err != nil {
			return nil, fmt.Errorf("record %s payload: %w", g.ID, err)
		}
	}

	for key, value := range map[string]interface{}{
		"id":         g.ID,
		"pet_id":     g.PetID,
		"created_at": g.CreatedAt,
		"updated_at": g.UpdatedAt,
	} {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		fields[key] = raw
	}

	return json.Marshal(fields)
}
