package services

import (
	"testing"

	"github.com/atmedrano/clinibox-backend/internal/charts/models"
	"github.com/stretchr/testify/assert"
)

func TestCoerceInteger(t *testing.T) {
	value, degraded := Coerce(models.KindInteger, "123")
	assert.False(t, degraded)
	assert.Equal(t, int64(123), value)

	value, degraded = Coerce(models.KindInteger, float64(72))
	assert.False(t, degraded)
	assert.Equal(t, int64(72), value)

	value, degraded = Coerce(models.KindInteger, "")
	assert.False(t, degraded, "empty string is a deliberate clear, not a parse failure")
	assert.Nil(t, value)

	value, degraded = Coerce(models.KindInteger, "abc")
	assert.True(t, degraded)
	assert.Nil(t, value)
}

func TestCoerceDecimal(t *testing.T) {
	value, degraded := Coerce(models.KindDecimal, "36.8")
	assert.False(t, degraded)
	assert.Equal(t, 36.8, value)

	value, degraded = Coerce(models.KindDecimal, "not-a-number")
	assert.True(t, degraded)
	assert.Nil(t, value)

	value, degraded = Coerce(models.KindDecimal, nil)
	assert.False(t, degraded)
	assert.Nil(t, value)
}

func TestCoerceBoolean(t *testing.T) {
	value, degraded := Coerce(models.KindBoolean, "TRUE")
	assert.False(t, degraded)
	assert.Equal(t, true, value)

	value, degraded = Coerce(models.KindBoolean, "False")
	assert.False(t, degraded)
	assert.Equal(t, false, value)

	value, degraded = Coerce(models.KindBoolean, true)
	assert.False(t, degraded)
	assert.Equal(t, true, value)

	value, degraded = Coerce(models.KindBoolean, "yes")
	assert.True(t, degraded)
	assert.Nil(t, value)
}

func TestCoerceDate(t *testing.T) {
	value, degraded := Coerce(models.KindDate, "2026-08-28")
	assert.False(t, degraded)
	assert.Equal(t, "2026-08-28", value, "a parseable date is stored as the original string")

	value, degraded = Coerce(models.KindDate, "2026-08-28T09:30:00Z")
	assert.False(t, degraded)
	assert.Equal(t, "2026-08-28T09:30:00Z", value)

	value, degraded = Coerce(models.KindDate, "not-a-date")
	assert.True(t, degraded)
	assert.Nil(t, value)
}

func TestCoerceNullishLiterals(t *testing.T) {
	for _, raw := range []interface{}{nil, "", "null", "undefined", "  "} {
		value, degraded := Coerce(models.KindInteger, raw)
		assert.Nil(t, value)
		assert.False(t, degraded)
	}
}

func TestCoerceTextPassthrough(t *testing.T) {
	value, degraded := Coerce(models.KindText, "free text with  spacing ")
	assert.False(t, degraded)
	assert.Equal(t, "free text with  spacing ", value)
}

func TestCoerceTextKeepsNullLiterals(t *testing.T) {
	// "null"/"undefined" are serialization artifacts for typed fields only;
	// typed into a notes field they are the words themselves.
	for _, raw := range []string{"null", "undefined", "  "} {
		value, degraded := Coerce(models.KindText, raw)
		assert.False(t, degraded)
		assert.Equal(t, raw, value)
	}

	value, degraded := Coerce(models.KindText, "")
	assert.False(t, degraded)
	assert.Nil(t, value, "an empty string still clears a text field")
}
