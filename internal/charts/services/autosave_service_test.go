package services

import (
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
	"github.com/stretchr/testify/assert"
)

func TestApplyBatchRoutesAggregates(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	result, err := svc.ApplyBatch(patientID, chartID, map[string]interface{}{
		"reason":            "fever and cough",
		"temperature":       "38.2",
		"heart_rate":        float64(92),
		"patient.allergies": "penicillin",
		"hygiene.smoking":   "false",
	})
	assert.NoError(t, err)
	assert.Equal(t, chartID, result.ChartID)
	assert.Equal(t, []string{
		"heart_rate", "hygiene.smoking", "patient.allergies", "reason", "temperature",
	}, result.UpdatedFields)
	assert.Empty(t, result.Details)

	var reason string
	var temperature float64
	var heartRate int64
	err = db.QueryRow("SELECT reason, temperature_c, heart_rate FROM charts WHERE id = ?", chartID).
		Scan(&reason, &temperature, &heartRate)
	assert.NoError(t, err)
	assert.Equal(t, "fever and cough", reason)
	assert.Equal(t, 38.2, temperature)
	assert.EqualValues(t, 92, heartRate)

	var allergies string
	err = db.QueryRow("SELECT allergies FROM patients WHERE id = ?", patientID).Scan(&allergies)
	assert.NoError(t, err)
	assert.Equal(t, "penicillin", allergies)

	// The hygiene sub-record was created by the first write that routed to it.
	var smoking bool
	err = db.QueryRow("SELECT smoking FROM patient_hygiene WHERE patient_id = ?", patientID).Scan(&smoking)
	assert.NoError(t, err)
	assert.False(t, smoking)
}

func TestApplyBatchResolvesChartByPatient(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	// No chartId in the request: the open chart is found by patient.
	result, err := svc.ApplyBatch(patientID, 0, map[string]interface{}{
		"diagnosis": "acute bronchitis",
	})
	assert.NoError(t, err)
	assert.Equal(t, chartID, result.ChartID)
}

func TestApplyBatchRejectsUnknownCategory(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	_, err := svc.ApplyBatch(patientID, chartID, map[string]interface{}{
		"billing.amount": "120",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.ApplyBatch(patientID, chartID, map[string]interface{}{
		"no_such_field": "x",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestApplyBatchDegradesMalformedValues(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	// A malformed field degrades to null; the rest of the batch still lands.
	result, err := svc.ApplyBatch(patientID, chartID, map[string]interface{}{
		"heart_rate": "not-a-number",
		"diagnosis":  "flu",
	})
	assert.NoError(t, err)
	assert.Len(t, result.Details, 1)
	assert.Contains(t, result.Details[0], "heart_rate")

	var heartRate sql.NullInt64
	var diagnosis string
	err = db.QueryRow("SELECT heart_rate, diagnosis FROM charts WHERE id = ?", chartID).
		Scan(&heartRate, &diagnosis)
	assert.NoError(t, err)
	assert.False(t, heartRate.Valid)
	assert.Equal(t, "flu", diagnosis)
}

func TestApplyBatchClearsWithEmptyString(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	_, err := svc.ApplyBatch(patientID, chartID, map[string]interface{}{"weight": "72.5"})
	assert.NoError(t, err)

	result, err := svc.ApplyBatch(patientID, chartID, map[string]interface{}{"weight": ""})
	assert.NoError(t, err)
	assert.Empty(t, result.Details, "clearing a field is not a degradation")

	var weight sql.NullFloat64
	err = db.QueryRow("SELECT weight_kg FROM charts WHERE id = ?", chartID).Scan(&weight)
	assert.NoError(t, err)
	assert.False(t, weight.Valid)
}

func TestApplyBatchRejectsFinalizedChart(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	_, err := db.Exec("UPDATE charts SET finalized = 1 WHERE id = ?", chartID)
	assert.NoError(t, err)

	// A late debounce flush after finalize has nowhere to land.
	_, err = svc.ApplyBatch(patientID, chartID, map[string]interface{}{"notes": "late"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.ApplyBatch(patientID, 0, map[string]interface{}{"notes": "late"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestApplyBatchConcurrentHygieneCreation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	// Several batches race on the first hygiene write; creation must be a
	// no-op for all but one of them, never a unique-constraint failure.
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.ApplyBatch(patientID, chartID, map[string]interface{}{
				"hygiene.diet": fmt.Sprintf("draft %d", i),
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM patient_hygiene WHERE patient_id = ?", patientID).Scan(&count)
	assert.NoError(t, err)
	assert.Equal(t, 1, count, "exactly one hygiene sub-record per patient")
}

func TestApplyBatchLastArrivalWins(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	// Two overlapping batches for the same field: whichever reaches the
	// server last owns the stored value, regardless of client intent order.
	_, err := svc.ApplyBatch(patientID, chartID, map[string]interface{}{"evolution": "first draft"})
	assert.NoError(t, err)
	_, err = svc.ApplyBatch(patientID, chartID, map[string]interface{}{"evolution": "stale but later"})
	assert.NoError(t, err)

	var evolution string
	err = db.QueryRow("SELECT evolution FROM charts WHERE id = ?", chartID).Scan(&evolution)
	assert.NoError(t, err)
	assert.Equal(t, "stale but later", evolution)
}

func TestApplyBatchValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewAutosaveService(db)
	patientID, _, _, chartID := seedEpisode(t, db)

	_, err := svc.ApplyBatch(0, chartID, map[string]interface{}{"notes": "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.ApplyBatch(patientID, chartID, map[string]interface{}{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.ApplyBatch(patientID+1, chartID, map[string]interface{}{"notes": "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation, "chart must belong to the patient in the request")
}
