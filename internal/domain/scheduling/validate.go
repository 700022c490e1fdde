package scheduling

import (
	"time"

	"github.com/lazos/clinic/internal/platform/apperror"
)

// Clinic business hours, in local clinic time. Appointments sit on a
// half-hour grid: starts from 08:00 up to 17:30, ends up to 18:00.
const (
	openingHour   = 8
	lastStartHour = 17
	closingHour   = 18
	slotMinutes   = 30
)

// validateSlot checks an appointment interval against the booking
// rules, collecting every violation so the caller sees all of them at
// once. Both ends are evaluated in the clinic's timezone.
func validateSlot(startAt, endAt time.Time, loc *time.Location) error {
	v := apperror.NewValidation()

	start := startAt.In(loc)
	end := endAt.In(loc)

	if !end.After(start) {
		v.Add("end_at", "end time must be after start time")
		return v.Err()
	}

	switch start.Weekday() {
	case time.Saturday, time.Sunday:
		v.Add("start_at", "appointments are only available Monday through Friday")
	}

	if !onGrid(start) {
		v.Add("start_at", "start time must fall on the hour or half hour")
	}
	if !onGrid(end) {
		v.Add("end_at", "end time must fall on the hour or half hour")
	}

	if start.Hour() < openingHour || start.Hour() > lastStartHour {
		v.Add("start_at", "start time must be between 08:00 and 17:30")
	}
	if end.Hour() < openingHour || end.Hour() > closingHour ||
		(end.Hour() == closingHour && (end.Minute() != 0 || end.Second() != 0)) {
		v.Add("end_at", "end time must be between 08:30 and 18:00")
	}

	if onGrid(start) && onGrid(end) {
		if d := end.Sub(start); d%(slotMinutes*time.Minute) != 0 {
			v.Add("", "appointment duration must be a multiple of 30 minutes")
		}
	}

	return v.Err()
}

func onGrid(t time.Time) bool {
	return (t.Minute() == 0 || t.Minute() == slotMinutes) && t.Second() == 0 && t.Nanosecond() == 0
}

// Overlaps reports whether two half-open intervals intersect. Two
// appointments sharing only a boundary instant do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
