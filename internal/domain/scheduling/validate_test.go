package scheduling

import (
	"testing"
	"time"

	"github.com/lazos/clinic/internal/platform/apperror"
)

// mk builds a test timestamp; Monday 2026-03-02 is the reference day.
func mk(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestValidateSlotAccepts(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"first slot of the day", mk(2026, 3, 2, 8, 0), mk(2026, 3, 2, 8, 30)},
		{"last slot of the day", mk(2026, 3, 2, 17, 30), mk(2026, 3, 2, 18, 0)},
		{"full hour ending at close", mk(2026, 3, 2, 17, 0), mk(2026, 3, 2, 18, 0)},
		{"ninety minutes", mk(2026, 3, 2, 9, 0), mk(2026, 3, 2, 10, 30)},
		{"friday", mk(2026, 3, 6, 10, 0), mk(2026, 3, 6, 10, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := validateSlot(tc.start, tc.end, time.UTC); err != nil {
				t.Errorf("validateSlot(%v, %v) = %v, want nil", tc.start, tc.end, err)
			}
		})
	}
}

func TestValidateSlotRejects(t *testing.T) {
	cases := []struct {
		name       string
		start, end time.Time
		field      string
	}{
		{"end before start", mk(2026, 3, 2, 10, 0), mk(2026, 3, 2, 9, 30), "end_at"},
		{"end equals start", mk(2026, 3, 2, 10, 0), mk(2026, 3, 2, 10, 0), "end_at"},
		{"saturday", mk(2026, 3, 7, 10, 0), mk(2026, 3, 7, 10, 30), "start_at"},
		{"sunday", mk(2026, 3, 8, 10, 0), mk(2026, 3, 8, 10, 30), "start_at"},
		{"off-grid start", mk(2026, 3, 2, 9, 15), mk(2026, 3, 2, 10, 0), "start_at"},
		{"off-grid quarter to six", mk(2026, 3, 2, 17, 45), mk(2026, 3, 2, 18, 0), "start_at"},
		{"before opening", mk(2026, 3, 2, 7, 30), mk(2026, 3, 2, 8, 0), "start_at"},
		{"start at close", mk(2026, 3, 2, 18, 0), mk(2026, 3, 2, 18, 30), "start_at"},
		{"end past close", mk(2026, 3, 2, 17, 30), mk(2026, 3, 2, 18, 30), "end_at"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSlot(tc.start, tc.end, time.UTC)
			appErr, ok := apperror.As(err)
			if !ok || appErr.Kind != apperror.KindValidation {
				t.Fatalf("validateSlot(%v, %v) = %v, want validation error", tc.start, tc.end, err)
			}
			if _, found := appErr.Fields[tc.field]; !found {
				t.Errorf("error fields = %v, want a message under %q", appErr.Fields, tc.field)
			}
		})
	}
}

func TestValidateSlotEvaluatesInClinicZone(t *testing.T) {
	// 11:00 UTC is 08:00 in a UTC-3 clinic: valid there, too early as
	// plain UTC would be irrelevant.
	clinic := time.FixedZone("clinic", -3*60*60)
	start := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC)

	if err := validateSlot(start, end, clinic); err != nil {
		t.Errorf("validateSlot in clinic zone = %v, want nil", err)
	}

	// 22:00 UTC is 19:00 clinic time, past closing.
	lateStart := time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC)
	lateEnd := time.Date(2026, 3, 2, 22, 30, 0, 0, time.UTC)
	if err := validateSlot(lateStart, lateEnd, clinic); err == nil {
		t.Error("expected validation error for a slot past closing time")
	}
}

func TestOverlaps(t *testing.T) {
	a1, a2 := mk(2026, 3, 2, 9, 0), mk(2026, 3, 2, 9, 30)
	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical", mk(2026, 3, 2, 9, 0), mk(2026, 3, 2, 9, 30), true},
		{"straddles start", mk(2026, 3, 2, 8, 30), mk(2026, 3, 2, 9, 15), true},
		{"contained", mk(2026, 3, 2, 9, 10), mk(2026, 3, 2, 9, 20), true},
		{"back to back after", mk(2026, 3, 2, 9, 30), mk(2026, 3, 2, 10, 0), false},
		{"back to back before", mk(2026, 3, 2, 8, 30), mk(2026, 3, 2, 9, 0), false},
		{"disjoint", mk(2026, 3, 2, 11, 0), mk(2026, 3, 2, 11, 30), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(a1, a2, tc.start, tc.end); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
		})
	}
}
