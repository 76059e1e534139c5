package models

import "time"

// Patient is created once at intake and mutated by professionals through
// chart autosave; patients are never deleted.
type Patient struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	NationalID   string     `json:"national_id"`
	Phone        string     `json:"phone"`
	BirthDate    *string    `json:"birth_date"`
	Allergies    *string    `json:"allergies"`
	Antecedents  *string    `json:"antecedents"`
	Medications  *string    `json:"medications"`
	BirthHistory *string    `json:"birth_history"`
	CreatedAt    time.Time  `json:"created_at"`
}
