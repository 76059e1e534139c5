package models

import "time"

// Arrival is a queue entry for a checked-in patient. PickedUpAt is set
// exactly once, inside the box assignment transaction that consumes it; an
// arrival with a pickup time is no longer visible in the waiting queue.
type Arrival struct {
	ID          int64      `json:"id"`
	PatientID   int64      `json:"patient_id"`
	CheckedInAt time.Time  `json:"checked_in_at"`
	PickedUpAt  *time.Time `json:"picked_up_at"`
}
