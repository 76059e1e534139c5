package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/atmedrano/clinibox-backend/internal/charts/models"
)

// Date layouts a client may send. A parseable date is stored as the original
// string; the layouts only validate it.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Coerce applies a field's coercion rule to a raw JSON value before storage.
// It never fails: empty strings and nulls become NULL, and a typed value that
// does not parse degrades to NULL as well (degraded=true) so one malformed
// field never blocks the rest of the batch. Text fields pass through
// unmodified; the "null"/"undefined" serialization artifacts are nullified
// only for typed fields, a professional typing the word "null" into a notes
// field means the word.
func Coerce(kind models.Kind, raw interface{}) (value interface{}, degraded bool) {
	if raw == nil {
		return nil, false
	}
	if s, ok := raw.(string); ok {
		if s == "" {
			return nil, false
		}
		if kind != models.KindText {
			trimmed := strings.TrimSpace(s)
			if trimmed == "" || trimmed == "null" || trimmed == "undefined" {
				return nil, false
			}
		}
	}

	switch kind {
	case models.KindText:
		return raw, false

	case models.KindInteger:
		switch v := raw.(type) {
		case float64: // every JSON number arrives as float64
			return int64(v), false
		case int:
			return int64(v), false
		case int64:
			return v, false
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, true
			}
			return n, false
		}
		return nil, true

	case models.KindDecimal:
		switch v := raw.(type) {
		case float64:
			return v, false
		case int:
			return float64(v), false
		case int64:
			return float64(v), false
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, true
			}
			return f, false
		}
		return nil, true

	case models.KindDate:
		s, ok := raw.(string)
		if !ok {
			return nil, true
		}
		s = strings.TrimSpace(s)
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return s, false
			}
		}
		return nil, true

	case models.KindBoolean:
		switch v := raw.(type) {
		case bool:
			return v, false
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return true, false
			case "false":
				return false, false
			}
			return nil, true
		}
		return nil, true
	}

	return raw, false
}
