package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atmedrano/clinibox-backend/internal/charts/models"
	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SnapshotService owns the audit snapshot store. It reads from the clinical
// store and appends to the audit store; the two never share a transaction,
// so an audit failure cannot touch the lifecycle.
type SnapshotService struct {
	Clinical *sql.DB
	Audit    *gorm.DB
}

func NewSnapshotService(clinical *sql.DB, audit *gorm.DB) *SnapshotService {
	return &SnapshotService{Clinical: clinical, Audit: audit}
}

// Migrate creates the audit store tables.
func (s *SnapshotService) Migrate() error {
	return s.Audit.AutoMigrate(&models.VisitSnapshot{})
}

// CaptureVisit synthesizes the immutable snapshot of a finalized visit: the
// patient's clinical attributes and the chart content as they are right now,
// tagged with the operation and the duration the finalize computed.
func (s *SnapshotService) CaptureVisit(patientID, chartID int64, operation string) error {
	chart, err := s.readChart(chartID)
	if err != nil {
		return err
	}

	patientState, professionalName, boxNumber, err := s.readContext(patientID, chart)
	if err != nil {
		return err
	}

	chartContent, err := json.Marshal(map[string]interface{}{
		"reason":        chart.Reason,
		"evolution":     chart.Evolution,
		"examination":   chart.Examination,
		"diagnosis":     chart.Diagnosis,
		"treatment":     chart.Treatment,
		"notes":         chart.Notes,
		"weight_kg":     chart.WeightKg,
		"height_cm":     chart.HeightCm,
		"temperature_c": chart.TemperatureC,
		"heart_rate":    chart.HeartRate,
		"next_visit":    chart.NextVisit,
		"fasting":       chart.Fasting,
	})
	if err != nil {
		return err
	}

	var durationSeconds int64
	if chart.DurationSeconds != nil {
		durationSeconds = *chart.DurationSeconds
	}

	snapshot := models.VisitSnapshot{
		ID:               uuid.New().String(),
		PatientID:        patientID,
		ChartID:          chartID,
		ProfessionalID:   chart.ProfessionalID,
		ProfessionalName: professionalName,
		BoxNumber:        boxNumber,
		Operation:        operation,
		DurationSeconds:  durationSeconds,
		PatientState:     patientState,
		ChartContent:     chartContent,
		TakenAt:          time.Now(),
	}
	return s.Audit.Create(&snapshot).Error
}

// HistoryResult carries one page of snapshots plus the pagination envelope.
type HistoryResult struct {
	Items      []models.VisitSnapshot
	Total      int64
	Page       int
	Limit      int
	TotalPages int64
	HasNext    bool
	HasPrev    bool
}

// History queries the audit store read-only: newest first, filterable by
// operation tag and date range. from is inclusive, to exclusive.
func (s *SnapshotService) History(patientID int64, page, limit int, operation string, from, to *time.Time) (*HistoryResult, error) {
	if patientID == 0 {
		return nil, fmt.Errorf("%w: patientId is required", apperr.ErrValidation)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	query := s.Audit.Model(&models.VisitSnapshot{}).Where("patient_id = ?", patientID)
	if operation != "" {
		query = query.Where("operation = ?", operation)
	}
	if from != nil {
		query = query.Where("taken_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("taken_at < ?", *to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.VisitSnapshot
	if err := query.
		Order("taken_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	return &HistoryResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		HasNext:    int64(page*limit) < total,
		HasPrev:    page > 1,
	}, nil
}

func (s *SnapshotService) readChart(chartID int64) (*models.Chart, error) {
	// Reuse the autosave read path; both live on the clinical store.
	return (&AutosaveService{DB: s.Clinical}).GetChart(chartID)
}

// readContext gathers the patient's clinical attributes (with the hygiene
// sub-record when present) and the display metadata denormalized into the
// snapshot row.
func (s *SnapshotService) readContext(patientID int64, chart *models.Chart) (json.RawMessage, string, int, error) {
	var (
		name, nationalID sql.NullString
		birthDate        sql.NullString
		allergies        sql.NullString
		antecedents      sql.NullString
		medications      sql.NullString
		birthHistory     sql.NullString
	)
	err := s.Clinical.QueryRow(`
		SELECT name, national_id, birth_date, allergies, antecedents, medications, birth_history
		FROM patients WHERE id = ?
	`, patientID).Scan(&name, &nationalID, &birthDate, &allergies, &antecedents, &medications, &birthHistory)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", 0, fmt.Errorf("%w: patient %d", apperr.ErrNotFound, patientID)
		}
		return nil, "", 0, err
	}

	state := map[string]interface{}{
		"name":          nullableString(name),
		"national_id":   nullableString(nationalID),
		"birth_date":    nullableString(birthDate),
		"allergies":     nullableString(allergies),
		"antecedents":   nullableString(antecedents),
		"medications":   nullableString(medications),
		"birth_history": nullableString(birthHistory),
	}

	var (
		diet, sleep, exercise sql.NullString
		smoking, alcohol      sql.NullBool
		brushing              sql.NullInt64
	)
	err = s.Clinical.QueryRow(`
		SELECT diet, sleep, exercise, smoking, alcohol, brushing_per_day
		FROM patient_hygiene WHERE patient_id = ?
	`, patientID).Scan(&diet, &sleep, &exercise, &smoking, &alcohol, &brushing)
	if err == nil {
		hygiene := map[string]interface{}{
			"diet":     nullableString(diet),
			"sleep":    nullableString(sleep),
			"exercise": nullableString(exercise),
		}
		if smoking.Valid {
			hygiene["smoking"] = smoking.Bool
		}
		if alcohol.Valid {
			hygiene["alcohol"] = alcohol.Bool
		}
		if brushing.Valid {
			hygiene["brushing_per_day"] = brushing.Int64
		}
		state["hygiene"] = hygiene
	} else if err != sql.ErrNoRows {
		return nil, "", 0, err
	}

	patientState, err := json.Marshal(state)
	if err != nil {
		return nil, "", 0, err
	}

	var professionalName string
	if err := s.Clinical.QueryRow("SELECT name FROM professionals WHERE id = ?", chart.ProfessionalID).
		Scan(&professionalName); err != nil && err != sql.ErrNoRows {
		return nil, "", 0, err
	}

	var boxNumber int
	if err := s.Clinical.QueryRow("SELECT number FROM boxes WHERE id = ?", chart.BoxID).
		Scan(&boxNumber); err != nil && err != sql.ErrNoRows {
		return nil, "", 0, err
	}

	return patientState, professionalName, boxNumber, nil
}

func nullableString(v sql.NullString) interface{} {
	if v.Valid {
		return v.String
	}
	return nil
}
