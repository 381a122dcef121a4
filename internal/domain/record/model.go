// Package record defines the health-record entities guardians log against
// their pets. Beyond the id and the pet back-reference the synchronization
// core treats these fields as an opaque payload; they are typed here for the
// API surface and the reference backend.
package record

import "time"

// Kind identifies one health-record category. Each kind has its own
// resource collection on the client and its own REST sub-path.
type Kind string

const (
	KindFeeding     Kind = "feedings"
	KindWater       Kind = "water"
	KindMedication  Kind = "medications"
	KindPainScore   Kind = "pain-scores"
	KindSeizure     Kind = "seizures"
	KindVitals      Kind = "vitals"
	KindMovement    Kind = "movements"
	KindAppointment Kind = "appointments"
	KindBloodSugar  Kind = "blood-sugar"
	KindGallery     Kind = "gallery"
)

// Kinds lists every known record kind in a stable order. The bulk sync
// controller and the reference backend iterate this instead of hard-coding
// the set in several places.
var Kinds = []Kind{
	KindFeeding, KindWater, KindMedication, KindPainScore, KindSeizure,
	KindVitals, KindMovement, KindAppointment, KindBloodSugar, KindGallery,
}

// Valid reports whether k names a known record kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Feeding logs a meal.
type Feeding struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	FoodType  string    `json:"food_type"`
	Amount    float64   `json:"amount"`
	Unit      string    `json:"unit"`
	Notes     string    `json:"notes,omitempty"`
	FedAt     time.Time `json:"fed_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Feeding) EntityID() string { return r.ID }

// Water logs water intake.
type Water struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	Amount    float64   `json:"amount"`
	Unit      string    `json:"unit"`
	DrankAt   time.Time `json:"drank_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Water) EntityID() string { return r.ID }

// Medication logs an administered dose.
type Medication struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	Name      string    `json:"name"`
	Dosage    float64   `json:"dosage"`
	Unit      string    `json:"unit"`
	Notes     string    `json:"notes,omitempty"`
	GivenAt   time.Time `json:"given_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Medication) EntityID() string { return r.ID }

// PainScore records a subjective pain assessment on a fixed scale.
type PainScore struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	Score     int       `json:"score"`
	Notes     string    `json:"notes,omitempty"`
	ScoredAt  time.Time `json:"scored_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r PainScore) EntityID() string { return r.ID }

// Seizure records a seizure episode.
type Seizure struct {
	ID          string    `json:"id"`
	PetID       string    `json:"pet_id"`
	DurationSec int       `json:"duration_sec"`
	Severity    string    `json:"severity"`
	Trigger     string    `json:"trigger,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r Seizure) EntityID() string { return r.ID }

// Vitals records a set of vital-sign measurements.
type Vitals struct {
	ID          string    `json:"id"`
	PetID       string    `json:"pet_id"`
	Temperature float64   `json:"temperature,omitempty"`
	HeartRate   int       `json:"heart_rate,omitempty"`
	RespRate    int       `json:"resp_rate,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	TakenAt     time.Time `json:"taken_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r Vitals) EntityID() string { return r.ID }

// Movement logs activity such as walks or physiotherapy.
type Movement struct {
	ID          string    `json:"id"`
	PetID       string    `json:"pet_id"`
	Activity    string    `json:"activity"`
	DurationMin int       `json:"duration_min,omitempty"`
	DistanceKm  float64   `json:"distance_km,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	MovedAt     time.Time `json:"moved_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r Movement) EntityID() string { return r.ID }

// Appointment is a scheduled vet or care visit.
type Appointment struct {
	ID           string    `json:"id"`
	PetID        string    `json:"pet_id"`
	Title        string    `json:"title"`
	Location     string    `json:"location,omitempty"`
	Veterinarian string    `json:"veterinarian,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r Appointment) EntityID() string { return r.ID }

// BloodSugar records a glucose measurement.
type BloodSugar struct {
	ID         string    `json:"id"`
	PetID      string    `json:"pet_id"`
	Level      float64   `json:"level"`
	Unit       string    `json:"unit"`
	Notes      string    `json:"notes,omitempty"`
	MeasuredAt time.Time `json:"measured_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r BloodSugar) EntityID() string { return r.ID }

// GalleryItem references an uploaded photo or video. Upload mechanics are
// handled elsewhere; the record only carries the resulting URL.
type GalleryItem struct {
	ID        string    `json:"id"`
	PetID     string    `json:"pet_id"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption,omitempty"`
	TakenAt   time.Time `json:"taken_at,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r GalleryItem) EntityID() string { return r.ID }
