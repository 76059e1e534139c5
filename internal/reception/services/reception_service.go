package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
	"github.com/atmedrano/clinibox-backend/internal/reception/models"
)

type ReceptionService struct {
	DB *sql.DB
}

func NewReceptionService(db *sql.DB) *ReceptionService {
	return &ReceptionService{DB: db}
}

// RegisterPatient creates a patient at intake. The national id is the
// uniqueness key; registering it twice is a validation failure, not an
// upsert.
func (s *ReceptionService) RegisterPatient(p models.Patient) (int64, error) {
	var existingID int64
	err := s.DB.QueryRow("SELECT id FROM patients WHERE national_id = ?", p.NationalID).Scan(&existingID)
	if err == nil {
		return 0, fmt.Errorf("%w: national id already registered", apperr.ErrValidation)
	} else if err != sql.ErrNoRows {
		return 0, err
	}

	result, err := s.DB.Exec(`
		INSERT INTO patients (name, national_id, phone, birth_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, p.NationalID, p.Phone, p.BirthDate, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CheckIn creates an Arrival for the patient, placing them in the waiting
// queue. The pickup slot stays empty until a box assignment consumes it.
func (s *ReceptionService) CheckIn(patientID int64) (int64, error) {
	var exists int64
	err := s.DB.QueryRow("SELECT id FROM patients WHERE id = ?", patientID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: patient %d", apperr.ErrNotFound, patientID)
		}
		return 0, err
	}

	now := time.Now()
	tx, err := s.DB.Begin()
	if err != nil {
		return 0, err
	}

	result, err := tx.Exec(`
		INSERT INTO arrivals (patient_id, checked_in_at, picked_up_at)
		VALUES (?, ?, NULL)
	`, patientID, now)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	arrivalID, err := result.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	if _, err := tx.Exec("UPDATE clinic_activity SET updated_at = ? WHERE id = 1", now); err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return arrivalID, nil
}

// WaitingQueue lists today's arrivals that have not been picked up yet,
// oldest first. The day range is computed in the application's timezone.
func (s *ReceptionService) WaitingQueue() ([]map[string]interface{}, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := s.DB.Query(`
		SELECT a.id, a.patient_id, p.name, p.national_id, a.checked_in_at
		FROM arrivals a
		JOIN patients p ON a.patient_id = p.id
		WHERE a.picked_up_at IS NULL
		  AND a.checked_in_at >= ? AND a.checked_in_at < ?
		ORDER BY a.checked_in_at ASC, a.id ASC
	`, startOfDay, endOfDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []map[string]interface{}
	for rows.Next() {
		var (
			arrivalID, patientID int64
			name, nationalID     string
			checkedInAt          time.Time
		)
		if err := rows.Scan(&arrivalID, &patientID, &name, &nationalID, &checkedInAt); err != nil {
			return nil, err
		}
		result = append(result, map[string]interface{}{
			"arrival_id":    arrivalID,
			"patient_id":    patientID,
			"name":          name,
			"national_id":   nationalID,
			"checked_in_at": checkedInAt,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPatient returns the full patient row, including the clinical
// attributes edited through autosave.
func (s *ReceptionService) GetPatient(patientID int64) (*models.Patient, error) {
	var (
		p            models.Patient
		birthDate    sql.NullString
		allergies    sql.NullString
		antecedents  sql.NullString
		medications  sql.NullString
		birthHistory sql.NullString
	)
	err := s.DB.QueryRow(`
		SELECT id, name, national_id, phone, birth_date,
		       allergies, antecedents, medications, birth_history, created_at
		FROM patients WHERE id = ?
	`, patientID).Scan(
		&p.ID, &p.Name, &p.NationalID, &p.Phone, &birthDate,
		&allergies, &antecedents, &medications, &birthHistory, &p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: patient %d", apperr.ErrNotFound, patientID)
		}
		return nil, err
	}
	if birthDate.Valid {
		p.BirthDate = &birthDate.String
	}
	if allergies.Valid {
		p.Allergies = &allergies.String
	}
	if antecedents.Valid {
		p.Antecedents = &antecedents.String
	}
	if medications.Valid {
		p.Medications = &medications.String
	}
	if birthHistory.Valid {
		p.BirthHistory = &birthHistory.String
	}
	return &p, nil
}
