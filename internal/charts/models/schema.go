package models

import "strings"

// Aggregate identifies which table an autosave field path writes to.
type Aggregate int

const (
	AggregateChart Aggregate = iota
	AggregatePatient
	AggregateHygiene
)

// Kind is the coercion rule applied to a raw value before storage.
// KindText passes the value through unmodified.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindDecimal
	KindDate
	KindBoolean
)

// FieldSpec binds one client field path to its owning aggregate, the column
// it lands in and its coercion rule. The table below is the whole routing
// surface: autosave never derives a column name from client input, so an
// unknown path can only be rejected, never interpolated into SQL.
type FieldSpec struct {
	Aggregate Aggregate
	Column    string
	Kind      Kind
}

// FieldSchema maps every autosavable field path. Bare paths belong to the
// chart; "patient." and "hygiene." prefixes route to the patient row and to
// the hygiene sub-record.
var FieldSchema = map[string]FieldSpec{
	"reason":      {AggregateChart, "reason", KindText},
	"evolution":   {AggregateChart, "evolution", KindText},
	"examination": {AggregateChart, "examination", KindText},
	"diagnosis":   {AggregateChart, "diagnosis", KindText},
	"treatment":   {AggregateChart, "treatment", KindText},
	"notes":       {AggregateChart, "notes", KindText},
	"weight":      {AggregateChart, "weight_kg", KindDecimal},
	"height":      {AggregateChart, "height_cm", KindDecimal},
	"temperature": {AggregateChart, "temperature_c", KindDecimal},
	"heart_rate":  {AggregateChart, "heart_rate", KindInteger},
	"next_visit":  {AggregateChart, "next_visit", KindDate},
	"fasting":     {AggregateChart, "fasting", KindBoolean},

	"patient.name":          {AggregatePatient, "name", KindText},
	"patient.national_id":   {AggregatePatient, "national_id", KindText},
	"patient.phone":         {AggregatePatient, "phone", KindText},
	"patient.birth_date":    {AggregatePatient, "birth_date", KindDate},
	"patient.allergies":     {AggregatePatient, "allergies", KindText},
	"patient.antecedents":   {AggregatePatient, "antecedents", KindText},
	"patient.medications":   {AggregatePatient, "medications", KindText},
	"patient.birth_history": {AggregatePatient, "birth_history", KindText},

	"hygiene.diet":             {AggregateHygiene, "diet", KindText},
	"hygiene.sleep":            {AggregateHygiene, "sleep", KindText},
	"hygiene.exercise":         {AggregateHygiene, "exercise", KindText},
	"hygiene.smoking":          {AggregateHygiene, "smoking", KindBoolean},
	"hygiene.alcohol":          {AggregateHygiene, "alcohol", KindBoolean},
	"hygiene.brushing_per_day": {AggregateHygiene, "brushing_per_day", KindInteger},
}

// LookupField resolves a field path against the schema. The second return
// distinguishes an unknown field inside a known category from an unknown
// category prefix; both are validation failures for the caller.
func LookupField(path string) (FieldSpec, bool) {
	spec, ok := FieldSchema[path]
	return spec, ok
}

// KnownCategory reports whether the path's category prefix is one the schema
// routes at all ("" for bare chart fields, "patient", "hygiene").
func KnownCategory(path string) bool {
	i := strings.IndexByte(path, '.')
	if i < 0 {
		return true
	}
	switch path[:i] {
	case "patient", "hygiene":
		return true
	}
	return false
}
