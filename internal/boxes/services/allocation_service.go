package services

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/atmedrano/clinibox-backend/internal/boxes/models"
	chartmodels "github.com/atmedrano/clinibox-backend/internal/charts/models"
	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
	"github.com/atmedrano/clinibox-backend/pkg/metrics"
)

// SnapshotWriter is the finalize path's hook into the audit subsystem.
// Capture failures are logged and swallowed; the lifecycle transition is
// authoritative and must never depend on the audit store.
type SnapshotWriter interface {
	CaptureVisit(patientID, chartID int64, operation string) error
}

type AllocationService struct {
	DB        *sql.DB
	Snapshots SnapshotWriter
}

func NewAllocationService(db *sql.DB, snapshots SnapshotWriter) *AllocationService {
	return &AllocationService{DB: db, Snapshots: snapshots}
}

// Assign atomically occupies a box for a patient and professional and
// consumes the patient's waiting arrival. The precondition is the derived
// free predicate; the write itself is a compare-and-swap on the box row's
// version, so of two racing assignments exactly one commits and the loser
// never consumes the arrival's pickup slot.
func (s *AllocationService) Assign(boxID, patientID, professionalID int64, estimatedMinutes int) error {
	if estimatedMinutes <= 0 {
		return fmt.Errorf("%w: estimated minutes must be greater than zero", apperr.ErrValidation)
	}

	var id int64
	if err := s.DB.QueryRow("SELECT id FROM patients WHERE id = ?", patientID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: patient %d does not exist", apperr.ErrValidation, patientID)
		}
		return err
	}
	if err := s.DB.QueryRow("SELECT id FROM professionals WHERE id = ?", professionalID).Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: professional %d does not exist", apperr.ErrValidation, professionalID)
		}
		return err
	}

	now := time.Now()
	box, err := s.getBox(boxID)
	if err != nil {
		return err
	}
	if !box.IsFree(now) {
		return fmt.Errorf("%w: box %d is occupied", apperr.ErrConflict, box.Number)
	}

	// Today's oldest unconsumed arrival for the patient.
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)
	var arrivalID int64
	err = s.DB.QueryRow(`
		SELECT id FROM arrivals
		WHERE patient_id = ? AND picked_up_at IS NULL
		  AND checked_in_at >= ? AND checked_in_at < ?
		ORDER BY checked_in_at ASC, id ASC
		LIMIT 1
	`, patientID, startOfDay, endOfDay).Scan(&arrivalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: patient %d has no waiting arrival", apperr.ErrNotFound, patientID)
		}
		return err
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}

	// Compare-and-swap on the version read above. Zero rows affected means
	// another assignment (or a finalize) got there first.
	res, err := tx.Exec(`
		UPDATE boxes
		SET patient_id = ?, professional_id = ?, started_at = ?,
		    estimated_minutes = ?, completed_at = NULL, version = version + 1
		WHERE id = ? AND version = ?
	`, patientID, professionalID, now, estimatedMinutes, box.ID, box.Version)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: box %d was taken by another assignment", apperr.ErrConflict, box.Number)
	}

	// The pickup slot is set exactly once; the IS NULL guard keeps a racing
	// assignment from consuming it twice.
	res, err = tx.Exec("UPDATE arrivals SET picked_up_at = ? WHERE id = ? AND picked_up_at IS NULL", now, arrivalID)
	if err != nil {
		tx.Rollback()
		return err
	}
	affected, err = res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return err
	}
	if affected == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: arrival %d was already picked up", apperr.ErrConflict, arrivalID)
	}

	if _, err := tx.Exec(`
		INSERT INTO charts (patient_id, professional_id, box_id, finalized, opened_at)
		VALUES (?, ?, ?, 0, ?)
	`, patientID, professionalID, box.ID, now); err != nil {
		tx.Rollback()
		return err
	}

	if _, err := tx.Exec("UPDATE clinic_activity SET updated_at = ? WHERE id = 1", now); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// FinalizeResult reports whether the call closed the episode or found it
// already closed (client retry; a no-op, not an error).
type FinalizeResult struct {
	ChartID          int64
	BoxNumber        int
	DurationSeconds  int64
	AlreadyFinalized bool
}

// Finalize ends the open attention episode for the patient: completion time
// set, occupant fields cleared, chart finalized with its computed duration.
// Snapshot capture runs after commit and is best-effort.
// professionalID > 0 restricts the lookup to that professional's open chart.
func (s *AllocationService) Finalize(patientID, professionalID int64) (*FinalizeResult, error) {
	// The box must still be occupied by this patient. A chart left open after
	// a lapsed-estimate reassignment joins a box that now belongs to someone
	// else; releasing it here would end the new occupant's visit.
	query := `
		SELECT c.id, c.box_id, b.number, b.started_at, b.version
		FROM charts c
		JOIN boxes b ON c.box_id = b.id AND b.patient_id = c.patient_id
		WHERE c.patient_id = ? AND c.finalized = 0
	`
	args := []interface{}{patientID}
	if professionalID > 0 {
		query += " AND c.professional_id = ?"
		args = append(args, professionalID)
	}
	query += " ORDER BY c.opened_at DESC LIMIT 1"

	var (
		chartID, boxID int64
		boxNumber      int
		startedAt      sql.NullTime
		version        int64
	)
	err := s.DB.QueryRow(query, args...).Scan(&chartID, &boxID, &boxNumber, &startedAt, &version)
	if err == sql.ErrNoRows {
		return s.finalizeStaleChart(patientID, professionalID)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var durationSeconds int64
	if startedAt.Valid {
		durationSeconds = int64(now.Sub(startedAt.Time).Seconds())
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}

	res, err := tx.Exec(`
		UPDATE boxes
		SET patient_id = NULL, professional_id = NULL, completed_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`, now, boxID, version)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if affected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: box %d changed under finalize", apperr.ErrConflict, boxNumber)
	}

	res, err = tx.Exec("UPDATE charts SET finalized = 1, duration_seconds = ? WHERE id = ? AND finalized = 0",
		durationSeconds, chartID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	affected, err = res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if affected == 0 {
		// Another finalize won between lookup and update.
		tx.Rollback()
		return &FinalizeResult{ChartID: chartID, BoxNumber: boxNumber, AlreadyFinalized: true}, nil
	}

	if _, err := tx.Exec("UPDATE clinic_activity SET updated_at = ? WHERE id = 1", now); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// Audit is secondary: failures are counted and logged, never returned.
	if s.Snapshots != nil {
		if err := s.Snapshots.CaptureVisit(patientID, chartID, chartmodels.OperationVisitCompleted); err != nil {
			metrics.SnapshotFailures.Inc()
			log.Printf("snapshot capture failed for chart %d: %v", chartID, err)
		}
	}

	return &FinalizeResult{ChartID: chartID, BoxNumber: boxNumber, DurationSeconds: durationSeconds}, nil
}

// finalizeStaleChart handles an open chart whose box has moved on to another
// patient. The episode effectively ended when the box was reassigned, so the
// chart row is closed on its own and the box is left untouched; the caller
// sees it as already finalized.
func (s *AllocationService) finalizeStaleChart(patientID, professionalID int64) (*FinalizeResult, error) {
	query := `
		SELECT c.id, b.number
		FROM charts c
		JOIN boxes b ON c.box_id = b.id
		WHERE c.patient_id = ? AND c.finalized = 0
	`
	args := []interface{}{patientID}
	if professionalID > 0 {
		query += " AND c.professional_id = ?"
		args = append(args, professionalID)
	}
	query += " ORDER BY c.opened_at DESC LIMIT 1"

	var (
		chartID   int64
		boxNumber int
	)
	err := s.DB.QueryRow(query, args...).Scan(&chartID, &boxNumber)
	if err == sql.ErrNoRows {
		return s.finalizeNoOp(patientID, professionalID)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec("UPDATE charts SET finalized = 1 WHERE id = ? AND finalized = 0", chartID); err != nil {
		tx.Rollback()
		return nil, err
	}
	if _, err := tx.Exec("UPDATE clinic_activity SET updated_at = ? WHERE id = 1", now); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &FinalizeResult{ChartID: chartID, BoxNumber: boxNumber, AlreadyFinalized: true}, nil
}

// finalizeNoOp distinguishes a client retry against an already finalized
// chart from a patient who never had one.
func (s *AllocationService) finalizeNoOp(patientID, professionalID int64) (*FinalizeResult, error) {
	query := `
		SELECT c.id, b.number, c.duration_seconds
		FROM charts c
		JOIN boxes b ON c.box_id = b.id
		WHERE c.patient_id = ? AND c.finalized = 1
	`
	args := []interface{}{patientID}
	if professionalID > 0 {
		query += " AND c.professional_id = ?"
		args = append(args, professionalID)
	}
	query += " ORDER BY c.opened_at DESC LIMIT 1"

	var (
		chartID   int64
		boxNumber int
		duration  sql.NullInt64
	)
	err := s.DB.QueryRow(query, args...).Scan(&chartID, &boxNumber, &duration)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no open chart for patient %d", apperr.ErrNotFound, patientID)
	}
	if err != nil {
		return nil, err
	}
	return &FinalizeResult{
		ChartID:          chartID,
		BoxNumber:        boxNumber,
		DurationSeconds:  duration.Int64,
		AlreadyFinalized: true,
	}, nil
}

// ListBoxes returns the floor view: every box with its occupant metadata and
// the derived free state. Read-only; the free value here is the same
// presentation predicate clients recompute locally and it never gates an
// assignment on its own.
func (s *AllocationService) ListBoxes() ([]map[string]interface{}, error) {
	rows, err := s.DB.Query(`
		SELECT b.id, b.number, b.patient_id, b.professional_id,
		       b.started_at, b.estimated_minutes, b.completed_at, b.version,
		       p.name
		FROM boxes b
		LEFT JOIN patients p ON b.patient_id = p.id
		ORDER BY b.number ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	var result []map[string]interface{}
	for rows.Next() {
		var (
			box         models.Box
			patientID   sql.NullInt64
			profID      sql.NullInt64
			startedAt   sql.NullTime
			estimated   sql.NullInt64
			completedAt sql.NullTime
			patientName sql.NullString
		)
		if err := rows.Scan(&box.ID, &box.Number, &patientID, &profID,
			&startedAt, &estimated, &completedAt, &box.Version, &patientName); err != nil {
			return nil, err
		}
		if patientID.Valid {
			box.PatientID = &patientID.Int64
		}
		if profID.Valid {
			box.ProfessionalID = &profID.Int64
		}
		if startedAt.Valid {
			box.StartedAt = &startedAt.Time
		}
		if estimated.Valid {
			v := int(estimated.Int64)
			box.EstimatedMinutes = &v
		}
		if completedAt.Valid {
			box.CompletedAt = &completedAt.Time
		}

		entry := map[string]interface{}{
			"box_id":            box.ID,
			"number":            box.Number,
			"free":              box.IsFree(now),
			"patient_id":        nil,
			"patient_name":      nil,
			"professional_id":   nil,
			"started_at":        nil,
			"estimated_minutes": nil,
			"estimated_free_at": nil,
		}
		if box.PatientID != nil {
			entry["patient_id"] = *box.PatientID
		}
		if patientName.Valid {
			entry["patient_name"] = patientName.String
		}
		if box.ProfessionalID != nil {
			entry["professional_id"] = *box.ProfessionalID
		}
		if box.StartedAt != nil {
			entry["started_at"] = *box.StartedAt
		}
		if box.EstimatedMinutes != nil {
			entry["estimated_minutes"] = *box.EstimatedMinutes
		}
		if t := box.EstimatedFreeAt(); t != nil {
			entry["estimated_free_at"] = *t
		}
		result = append(result, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LastMutation returns the clinic-wide last mutation timestamp used by the
// catch-up reconciliation check.
func (s *AllocationService) LastMutation() (time.Time, error) {
	var updatedAt time.Time
	err := s.DB.QueryRow("SELECT updated_at FROM clinic_activity WHERE id = 1").Scan(&updatedAt)
	if err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

func (s *AllocationService) getBox(boxID int64) (*models.Box, error) {
	var (
		box         models.Box
		patientID   sql.NullInt64
		profID      sql.NullInt64
		startedAt   sql.NullTime
		estimated   sql.NullInt64
		completedAt sql.NullTime
	)
	err := s.DB.QueryRow(`
		SELECT id, number, patient_id, professional_id, started_at,
		       estimated_minutes, completed_at, version
		FROM boxes WHERE id = ?
	`, boxID).Scan(&box.ID, &box.Number, &patientID, &profID,
		&startedAt, &estimated, &completedAt, &box.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: box %d does not exist", apperr.ErrValidation, boxID)
		}
		return nil, err
	}
	if patientID.Valid {
		box.PatientID = &patientID.Int64
	}
	if profID.Valid {
		box.ProfessionalID = &profID.Int64
	}
	if startedAt.Valid {
		box.StartedAt = &startedAt.Time
	}
	if estimated.Valid {
		v := int(estimated.Int64)
		box.EstimatedMinutes = &v
	}
	if completedAt.Valid {
		box.CompletedAt = &completedAt.Time
	}
	return &box, nil
}
