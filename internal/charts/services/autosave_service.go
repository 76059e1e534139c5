package services

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atmedrano/clinibox-backend/internal/charts/models"
	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
)

type AutosaveService struct {
	DB *sql.DB
}

func NewAutosaveService(db *sql.DB) *AutosaveService {
	return &AutosaveService{DB: db}
}

// BatchResult reports which fields a batch touched and any values that were
// degraded to NULL by coercion.
type BatchResult struct {
	ChartID       int64
	UpdatedFields []string
	Details       []string
}

// ApplyBatch applies one coalesced autosave batch. Field paths are resolved
// through the static schema (never interpolated from client input), values
// are coerced per the field's rule, and the whole batch lands in a single
// transaction: one UPDATE per touched aggregate plus the activity bump.
// Overlapping batches for the same field are last-arrival-wins.
func (s *AutosaveService) ApplyBatch(patientID, chartID int64, changes map[string]interface{}) (*BatchResult, error) {
	if patientID == 0 {
		return nil, fmt.Errorf("%w: patientId is required", apperr.ErrValidation)
	}
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: changes must not be empty", apperr.ErrValidation)
	}

	// Validate every path up front; an unknown category or field rejects the
	// batch before anything is written.
	paths := make([]string, 0, len(changes))
	for path := range changes {
		if _, ok := models.LookupField(path); !ok {
			if !models.KnownCategory(path) {
				return nil, fmt.Errorf("%w: unknown field category in %q", apperr.ErrValidation, path)
			}
			return nil, fmt.Errorf("%w: unknown field %q", apperr.ErrValidation, path)
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	resolvedChartID, err := s.resolveOpenChart(patientID, chartID)
	if err != nil {
		return nil, err
	}

	chartSet := map[string]interface{}{}
	patientSet := map[string]interface{}{}
	hygieneSet := map[string]interface{}{}
	var details []string

	for _, path := range paths {
		spec, _ := models.LookupField(path)
		value, degraded := Coerce(spec.Kind, changes[path])
		if degraded {
			details = append(details, fmt.Sprintf("%s: value could not be parsed, stored as null", path))
		}
		switch spec.Aggregate {
		case models.AggregateChart:
			chartSet[spec.Column] = value
		case models.AggregatePatient:
			patientSet[spec.Column] = value
		case models.AggregateHygiene:
			hygieneSet[spec.Column] = value
		}
	}

	now := time.Now()
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}

	if len(chartSet) > 0 {
		setClause, args := buildSet(chartSet)
		args = append(args, resolvedChartID)
		res, err := tx.Exec("UPDATE charts SET "+setClause+" WHERE id = ? AND finalized = 0", args...)
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
			// The chart was finalized between resolution and write; a late
			// debounce flush after finalize lands here.
			tx.Rollback()
			return nil, fmt.Errorf("%w: chart %d is no longer open", apperr.ErrNotFound, resolvedChartID)
		}
	}

	if len(patientSet) > 0 {
		setClause, args := buildSet(patientSet)
		args = append(args, patientID)
		if _, err := tx.Exec("UPDATE patients SET "+setClause+" WHERE id = ?", args...); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if len(hygieneSet) > 0 {
		// The hygiene sub-record is created on the first write that routes to
		// it. The guarded INSERT..SELECT makes creation a no-op when the row
		// already exists, so two batches racing on the first write cannot trip
		// the UNIQUE(patient_id) constraint.
		if _, err := tx.Exec(`
			INSERT INTO patient_hygiene (patient_id, updated_at)
			SELECT p.id, ? FROM patients p
			WHERE p.id = ?
			  AND NOT EXISTS (SELECT 1 FROM patient_hygiene h WHERE h.patient_id = p.id)
		`, now, patientID); err != nil {
			tx.Rollback()
			return nil, err
		}

		hygieneSet["updated_at"] = now
		setClause, args := buildSet(hygieneSet)
		args = append(args, patientID)
		if _, err := tx.Exec("UPDATE patient_hygiene SET "+setClause+" WHERE patient_id = ?", args...); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if _, err := tx.Exec("UPDATE clinic_activity SET updated_at = ? WHERE id = 1", now); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &BatchResult{
		ChartID:       resolvedChartID,
		UpdatedFields: paths,
		Details:       details,
	}, nil
}

// GetChart loads the chart row, for the initial chart-open fetch.
func (s *AutosaveService) GetChart(chartID int64) (*models.Chart, error) {
	var (
		chart        models.Chart
		reason       sql.NullString
		evolution    sql.NullString
		examination  sql.NullString
		diagnosis    sql.NullString
		treatment    sql.NullString
		notes        sql.NullString
		weight       sql.NullFloat64
		height       sql.NullFloat64
		temperature  sql.NullFloat64
		heartRate    sql.NullInt64
		nextVisit    sql.NullString
		fasting      sql.NullBool
		durationSecs sql.NullInt64
	)
	err := s.DB.QueryRow(`
		SELECT id, patient_id, professional_id, box_id,
		       reason, evolution, examination, diagnosis, treatment, notes,
		       weight_kg, height_cm, temperature_c, heart_rate, next_visit, fasting,
		       finalized, duration_seconds, opened_at
		FROM charts WHERE id = ?
	`, chartID).Scan(
		&chart.ID, &chart.PatientID, &chart.ProfessionalID, &chart.BoxID,
		&reason, &evolution, &examination, &diagnosis, &treatment, &notes,
		&weight, &height, &temperature, &heartRate, &nextVisit, &fasting,
		&chart.Finalized, &durationSecs, &chart.OpenedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: chart %d", apperr.ErrNotFound, chartID)
		}
		return nil, err
	}
	if reason.Valid {
		chart.Reason = &reason.String
	}
	if evolution.Valid {
		chart.Evolution = &evolution.String
	}
	if examination.Valid {
		chart.Examination = &examination.String
	}
	if diagnosis.Valid {
		chart.Diagnosis = &diagnosis.String
	}
	if treatment.Valid {
		chart.Treatment = &treatment.String
	}
	if notes.Valid {
		chart.Notes = &notes.String
	}
	if weight.Valid {
		chart.WeightKg = &weight.Float64
	}
	if height.Valid {
		chart.HeightCm = &height.Float64
	}
	if temperature.Valid {
		chart.TemperatureC = &temperature.Float64
	}
	if heartRate.Valid {
		chart.HeartRate = &heartRate.Int64
	}
	if nextVisit.Valid {
		chart.NextVisit = &nextVisit.String
	}
	if fasting.Valid {
		chart.Fasting = &fasting.Bool
	}
	if durationSecs.Valid {
		chart.DurationSeconds = &durationSecs.Int64
	}
	return &chart, nil
}

func (s *AutosaveService) resolveOpenChart(patientID, chartID int64) (int64, error) {
	if chartID > 0 {
		var owner int64
		var finalized bool
		err := s.DB.QueryRow("SELECT patient_id, finalized FROM charts WHERE id = ?", chartID).Scan(&owner, &finalized)
		if err != nil {
			if err == sql.ErrNoRows {
				return 0, fmt.Errorf("%w: chart %d", apperr.ErrNotFound, chartID)
			}
			return 0, err
		}
		if owner != patientID {
			return 0, fmt.Errorf("%w: chart %d does not belong to patient %d", apperr.ErrValidation, chartID, patientID)
		}
		if finalized {
			return 0, fmt.Errorf("%w: chart %d is no longer open", apperr.ErrNotFound, chartID)
		}
		return chartID, nil
	}

	var id int64
	err := s.DB.QueryRow(`
		SELECT id FROM charts
		WHERE patient_id = ? AND finalized = 0
		ORDER BY opened_at DESC LIMIT 1
	`, patientID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: no open chart for patient %d", apperr.ErrNotFound, patientID)
		}
		return 0, err
	}
	return id, nil
}

// buildSet renders "col1 = ?, col2 = ?" in sorted column order. Column names
// come from the field schema only, never from the request.
func buildSet(set map[string]interface{}) (string, []interface{}) {
	columns := make([]string, 0, len(set))
	for column := range set {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		parts = append(parts, column+" = ?")
		args = append(args, set[column])
	}
	return strings.Join(parts, ", "), args
}
