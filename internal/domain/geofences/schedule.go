package geofences

import (
	"sort"
	"time"

	"family-locator/internal/platform/validation"
)

// ActiveAt: weekday(t) ∈ Days y StartTime <= HH:MM(t) <= EndTime.
// Ventanas que cruzan medianoche (start > end) nunca están activas.
func (s *Schedule) ActiveAt(t time.Time) bool {
	if s == nil {
		return true
	}
	start, ok1 := validation.ParseHHMM(s.StartTime)
	end, ok2 := validation.ParseHHMM(s.EndTime)
	if !ok1 || !ok2 {
		return false
	}

	day := int(t.Weekday())
	found := false
	for _, d := range s.Days {
		if d == day {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	now := t.Hour()*60 + t.Minute()
	return now >= start && now <= end
}

// normalize valida y deja Days ordenado y sin duplicados.
func (s *Schedule) normalize() error {
	if s == nil {
		return nil
	}
	start, ok1 := validation.ParseHHMM(s.StartTime)
	end, ok2 := validation.ParseHHMM(s.EndTime)
	if !ok1 || !ok2 || start > end {
		return ErrInvalidSchedule
	}
	if len(s.Days) == 0 {
		return ErrInvalidSchedule
	}

	seen := make(map[int]struct{}, len(s.Days))
	days := make([]int, 0, len(s.Days))
	for _, d := range s.Days {
		if d < 0 || d > 6 {
			return ErrInvalidSchedule
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Ints(days)
	s.Days = days
	return nil
}
