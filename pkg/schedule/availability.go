package schedule

import (
	"time"

	"github.com/meetsync/MeetSync/pkg/models"
)

// SlotLength is the availability-checking granule.
const SlotLength = 30 * time.Minute

// RoundToSlot rounds t down to the nearest slot boundary: minute < 30 goes
// to :00, everything else to :30.
func RoundToSlot(t time.Time) time.Time {
	minute := 0
	if t.Minute() >= 30 {
		minute = 30
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// Overlaps reports whether the slot [slotStart, slotStart+SlotLength)
// collides with a meeting starting at meetingStart and lasting
// durationMinutes. A meeting beginning exactly at the slot's end does not
// collide.
func Overlaps(slotStart, meetingStart time.Time, durationMinutes int) bool {
	slotEnd := slotStart.Add(SlotLength)
	meetingEnd := meetingStart.Add(time.Duration(durationMinutes) * time.Minute)

	switch {
	case !slotStart.Before(meetingStart) && slotStart.Before(meetingEnd):
		// slot starts inside the meeting
		return true
	case slotEnd.After(meetingStart) && !slotEnd.After(meetingEnd):
		// slot ends inside the meeting
		return true
	case !slotStart.After(meetingStart) && !slotEnd.Before(meetingEnd):
		// slot swallows the meeting whole
		return true
	}
	return false
}

// SlotAvailable checks one slot against a manager's calendar. Meetings
// without a scheduled date (pending requests before date selection) cannot
// block a slot.
func SlotAvailable(slotStart time.Time, meetings []models.Meeting) bool {
	for _, m := range meetings {
		if m.Date == nil {
			continue
		}
		if Overlaps(slotStart, *m.Date, m.Duration) {
			return false
		}
	}
	return true
}
