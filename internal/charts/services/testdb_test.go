package services

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

const testSchema = `
CREATE TABLE professionals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'professional'
);
CREATE TABLE patients (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	national_id TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL DEFAULT '',
	birth_date TEXT,
	allergies TEXT,
	antecedents TEXT,
	medications TEXT,
	birth_history TEXT,
	created_at DATETIME NOT NULL
);
CREATE TABLE patient_hygiene (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL UNIQUE,
	diet TEXT, sleep TEXT, exercise TEXT,
	smoking BOOLEAN, alcohol BOOLEAN, brushing_per_day INTEGER,
	updated_at DATETIME NOT NULL
);
CREATE TABLE arrivals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL,
	checked_in_at DATETIME NOT NULL,
	picked_up_at DATETIME
);
CREATE TABLE boxes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number INTEGER NOT NULL UNIQUE,
	patient_id INTEGER,
	professional_id INTEGER,
	started_at DATETIME,
	estimated_minutes INTEGER,
	completed_at DATETIME,
	version INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE charts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	patient_id INTEGER NOT NULL,
	professional_id INTEGER NOT NULL,
	box_id INTEGER NOT NULL,
	reason TEXT, evolution TEXT, examination TEXT, diagnosis TEXT,
	treatment TEXT, notes TEXT,
	weight_kg REAL, height_cm REAL, temperature_c REAL,
	heart_rate INTEGER, next_visit TEXT, fasting BOOLEAN,
	finalized BOOLEAN NOT NULL DEFAULT 0,
	duration_seconds INTEGER,
	opened_at DATETIME NOT NULL
);
CREATE TABLE clinic_activity (
	id INTEGER PRIMARY KEY,
	updated_at DATETIME NOT NULL
);
`

var testDBSeq int64

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := fmt.Sprintf("charts_test_%d", atomic.AddInt64(&testDBSeq, 1))
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if _, err := db.Exec("INSERT INTO clinic_activity (id, updated_at) VALUES (1, ?)", time.Now()); err != nil {
		t.Fatalf("seed clinic_activity: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedEpisode creates a professional, a patient, a box and an open chart,
// mirroring the state a successful Assign leaves behind.
func seedEpisode(t *testing.T, db *sql.DB) (patientID, professionalID, boxID, chartID int64) {
	t.Helper()
	res, err := db.Exec("INSERT INTO professionals (name) VALUES (?)", "Dr. Soler")
	if err != nil {
		t.Fatalf("seed professional: %v", err)
	}
	professionalID, _ = res.LastInsertId()

	res, err = db.Exec("INSERT INTO patients (name, national_id, created_at) VALUES (?, ?, ?)",
		"Ana Pérez", "11111111A", time.Now())
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	patientID, _ = res.LastInsertId()

	now := time.Now()
	res, err = db.Exec(`
		INSERT INTO boxes (number, patient_id, professional_id, started_at, estimated_minutes, version)
		VALUES (3, ?, ?, ?, 45, 1)
	`, patientID, professionalID, now)
	if err != nil {
		t.Fatalf("seed box: %v", err)
	}
	boxID, _ = res.LastInsertId()

	res, err = db.Exec(`
		INSERT INTO charts (patient_id, professional_id, box_id, finalized, opened_at)
		VALUES (?, ?, ?, 0, ?)
	`, patientID, professionalID, boxID, now)
	if err != nil {
		t.Fatalf("seed chart: %v", err)
	}
	chartID, _ = res.LastInsertId()
	return
}
