package schedule

import (
	"time"

	"github.com/meetsync/MeetSync/pkg/models"
)

// NormalizeUTC rebases t to UTC. The instant is unchanged, so timestamps
// arriving in different zones compare and deduplicate correctly.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC()
}

// ValidateProposedDates checks an employee's candidate date set before any of
// it is persisted: 1..MaxProposedDates entries, all strictly in the future,
// no duplicates.
func ValidateProposedDates(dates []time.Time, now time.Time) error {
	if len(dates) == 0 {
		return models.NewValidationError("at least one proposed date is required")
	}
	if len(dates) > models.MaxProposedDates {
		return models.NewValidationError("at most %d proposed dates are allowed, got %d", models.MaxProposedDates, len(dates))
	}
	now = NormalizeUTC(now)
	seen := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		d = NormalizeUTC(d)
		if !d.After(now) {
			return models.NewValidationError("proposed date %s is not in the future", d.Format(time.RFC3339))
		}
		if _, ok := seen[d]; ok {
			return models.NewValidationError("duplicate proposed date %s", d.Format(time.RFC3339))
		}
		seen[d] = struct{}{}
	}
	return nil
}

// ValidateDuration bounds a meeting's length in minutes.
func ValidateDuration(minutes int) error {
	if minutes < models.MinDuration || minutes > models.MaxDuration {
		return models.NewValidationError("duration must be between %d and %d minutes, got %d", models.MinDuration, models.MaxDuration, minutes)
	}
	return nil
}

// MatchProposedDate finds the proposed date equal to selected, comparing the
// stored timestamps as instants.
func MatchProposedDate(proposed []models.ProposedDate, selected time.Time) (models.ProposedDate, bool) {
	selected = NormalizeUTC(selected)
	for _, p := range proposed {
		if NormalizeUTC(p.Date).Equal(selected) {
			return p, true
		}
	}
	return models.ProposedDate{}, false
}
