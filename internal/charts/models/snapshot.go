package models

import (
	"encoding/json"
	"time"
)

// Operation tags for visit snapshots.
const (
	OperationVisitCompleted = "visit-completed"
)

// VisitSnapshot is the immutable audit copy of a finalized visit: the
// patient's clinical attributes and the chart content as they were at
// finalize time, plus display metadata denormalized so historical queries
// never have to join back into the clinical store. Rows are appended by the
// finalize path and never updated.
type VisitSnapshot struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	PatientID        int64           `gorm:"index" json:"patient_id"`
	ChartID          int64           `gorm:"index" json:"chart_id"`
	ProfessionalID   int64           `json:"professional_id"`
	ProfessionalName string          `gorm:"size:255" json:"professional_name"`
	BoxNumber        int             `json:"box_number"`
	Operation        string          `gorm:"size:64;index" json:"operation"`
	DurationSeconds  int64           `json:"duration_seconds"`
	PatientState     json.RawMessage `gorm:"type:json" json:"patient_state"`
	ChartContent     json.RawMessage `gorm:"type:json" json:"chart_content"`
	TakenAt          time.Time       `gorm:"index" json:"taken_at"`
}

func (VisitSnapshot) TableName() string {
	return "visit_snapshots"
}
