package models

import "time"

// Chart is the clinical record of one attention episode. It is created
// inside the box assignment transaction, mutated field by field through
// autosave batches, and finalized exactly once.
type Chart struct {
	ID             int64  `json:"id"`
	PatientID      int64  `json:"patient_id"`
	ProfessionalID int64  `json:"professional_id"`
	BoxID          int64  `json:"box_id"`

	Reason       *string  `json:"reason"`
	Evolution    *string  `json:"evolution"`
	Examination  *string  `json:"examination"`
	Diagnosis    *string  `json:"diagnosis"`
	Treatment    *string  `json:"treatment"`
	Notes        *string  `json:"notes"`
	WeightKg     *float64 `json:"weight_kg"`
	HeightCm     *float64 `json:"height_cm"`
	TemperatureC *float64 `json:"temperature_c"`
	HeartRate    *int64   `json:"heart_rate"`
	NextVisit    *string  `json:"next_visit"`
	Fasting      *bool    `json:"fasting"`

	Finalized       bool      `json:"finalized"`
	DurationSeconds *int64    `json:"duration_seconds"`
	OpenedAt        time.Time `json:"opened_at"`
}

// Hygiene is the habits sub-record of a patient. It does not exist until the
// first autosave write routed to the hygiene category creates it.
type Hygiene struct {
	ID             int64     `json:"id"`
	PatientID      int64     `json:"patient_id"`
	Diet           *string   `json:"diet"`
	Sleep          *string   `json:"sleep"`
	Exercise       *string   `json:"exercise"`
	Smoking        *bool     `json:"smoking"`
	Alcohol        *bool     `json:"alcohol"`
	BrushingPerDay *int64    `json:"brushing_per_day"`
	UpdatedAt      time.Time `json:"updated_at"`
}
