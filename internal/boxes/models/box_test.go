package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptrInt64(v int64) *int64       { return &v }
func ptrInt(v int) *int             { return &v }
func ptrTime(t time.Time) *time.Time { return &t }

func TestBoxIsFree(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{
			name: "no occupant",
			box:  Box{Number: 1},
			want: true,
		},
		{
			name: "occupied within estimate",
			box: Box{
				Number:           2,
				PatientID:        ptrInt64(7),
				StartedAt:        ptrTime(now.Add(-10 * time.Minute)),
				EstimatedMinutes: ptrInt(45),
			},
			want: false,
		},
		{
			name: "completion time set overrides everything",
			box: Box{
				Number:           3,
				PatientID:        ptrInt64(7),
				StartedAt:        ptrTime(now.Add(-10 * time.Minute)),
				EstimatedMinutes: ptrInt(45),
				CompletedAt:      ptrTime(now.Add(-1 * time.Minute)),
			},
			want: true,
		},
		{
			name: "occupant without start time",
			box: Box{
				Number:    4,
				PatientID: ptrInt64(7),
			},
			want: true,
		},
		{
			name: "estimate elapsed",
			box: Box{
				Number:           5,
				PatientID:        ptrInt64(7),
				StartedAt:        ptrTime(now.Add(-60 * time.Minute)),
				EstimatedMinutes: ptrInt(45),
			},
			want: true,
		},
		{
			name: "estimate elapsed exactly",
			box: Box{
				Number:           6,
				PatientID:        ptrInt64(7),
				StartedAt:        ptrTime(now.Add(-45 * time.Minute)),
				EstimatedMinutes: ptrInt(45),
			},
			want: true,
		},
		{
			name: "occupied with no estimate stays occupied",
			box: Box{
				Number:    7,
				PatientID: ptrInt64(7),
				StartedAt: ptrTime(now.Add(-3 * time.Hour)),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.box.IsFree(now))
		})
	}
}

func TestBoxEstimatedFreeAt(t *testing.T) {
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	box := Box{
		Number:           3,
		PatientID:        ptrInt64(1),
		StartedAt:        ptrTime(now),
		EstimatedMinutes: ptrInt(45),
	}
	freeAt := box.EstimatedFreeAt()
	if assert.NotNil(t, freeAt) {
		assert.Equal(t, now.Add(45*time.Minute), *freeAt)
	}

	box.CompletedAt = ptrTime(now.Add(10 * time.Minute))
	assert.Nil(t, box.EstimatedFreeAt(), "a completed occupancy has no pending free time")

	assert.Nil(t, (&Box{Number: 9}).EstimatedFreeAt())
}
