package schedule_test

import (
	"testing"
	"time"

	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/meetsync/MeetSync/pkg/schedule"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2030, 6, 10, hour, minute, 0, 0, time.UTC)
}

func TestRoundToSlot(t *testing.T) {
	tests := []struct {
		in   time.Time
		want time.Time
	}{
		{at(9, 0), at(9, 0)},
		{at(9, 29), at(9, 0)},
		{at(9, 30), at(9, 30)},
		{at(9, 45), at(9, 30)},
		{at(9, 59), at(9, 30)},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, schedule.RoundToSlot(tt.in), "rounding %s", tt.in)
	}
}

func TestOverlaps(t *testing.T) {
	meetingStart := at(10, 0) // meeting 10:00-10:30
	duration := 30

	tests := []struct {
		name string
		slot time.Time
		want bool
	}{
		{"slot before meeting", at(9, 30), false},
		{"slot equals meeting", at(10, 0), true},
		{"slot inside long meeting", at(10, 0), true},
		{"slot after meeting", at(10, 30), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, schedule.Overlaps(tt.slot, meetingStart, duration))
		})
	}

	// 09:45 rounds down to the [09:30,10:00) slot, which touches but does
	// not overlap a 10:00 meeting.
	slot := schedule.RoundToSlot(at(9, 45))
	require.Equal(t, at(9, 30), slot)
	require.False(t, schedule.Overlaps(slot, meetingStart, duration))

	// a slot fully containing a short meeting overlaps
	require.True(t, schedule.Overlaps(at(10, 0), at(10, 10), 10))
}

func TestSlotAvailable(t *testing.T) {
	d := at(10, 0)
	accepted := models.Meeting{Date: &d, Duration: 30, Status: models.StatusAccepted}
	unscheduled := models.Meeting{Date: nil, Duration: 60, Status: models.StatusPending}

	require.True(t, schedule.SlotAvailable(at(9, 30), []models.Meeting{accepted}))
	require.False(t, schedule.SlotAvailable(at(10, 0), []models.Meeting{accepted}))
	require.True(t, schedule.SlotAvailable(at(10, 0), []models.Meeting{unscheduled}))
	require.True(t, schedule.SlotAvailable(at(10, 0), nil))
}
