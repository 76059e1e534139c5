package models

import "time"

// Box is a physical treatment room, the unit of allocation. Occupancy lives
// on the row itself; "free" is derived by IsFree, never stored as a flag.
// Version is the optimistic-lock counter: Assign and Finalize bump it and
// their UPDATEs guard on the value they read, so two racing writers can
// never both win.
type Box struct {
	ID               int64
	Number           int
	PatientID        *int64
	ProfessionalID   *int64
	StartedAt        *time.Time
	EstimatedMinutes *int
	CompletedAt      *time.Time
	Version          int64
}

// IsFree is the derived occupancy predicate:
//
//	free ⇔ no occupant ∨ completion time set ∨ no start time ∨ elapsed ≥ estimate
//
// A set completion time always wins over the elapsed-time clause. The same
// predicate is recomputed by readers (including offline clients rendering a
// progress bar from the last known row), but only the Assign/Finalize path's
// evaluation gates authoritative state: a Box whose estimate lapses without
// a Finalize keeps its stale occupant fields in storage and is simply
// assignable again.
func (b *Box) IsFree(now time.Time) bool {
	if b.PatientID == nil {
		return true
	}
	if b.CompletedAt != nil {
		return true
	}
	if b.StartedAt == nil {
		return true
	}
	if b.EstimatedMinutes == nil {
		return false
	}
	return now.Sub(*b.StartedAt) >= time.Duration(*b.EstimatedMinutes)*time.Minute
}

// EstimatedFreeAt returns the moment the elapsed-time clause flips the box
// to free, or nil when the box carries no running occupancy. Presentation
// only; Finalize can free the box earlier.
func (b *Box) EstimatedFreeAt() *time.Time {
	if b.StartedAt == nil || b.EstimatedMinutes == nil || b.CompletedAt != nil {
		return nil
	}
	t := b.StartedAt.Add(time.Duration(*b.EstimatedMinutes) * time.Minute)
	return &t
}
