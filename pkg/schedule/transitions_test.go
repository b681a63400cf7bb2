package schedule_test

import (
	"testing"

	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/meetsync/MeetSync/pkg/schedule"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition(t *testing.T) {
	statuses := []models.Status{
		models.StatusPending,
		models.StatusAccepted,
		models.StatusRejected,
		models.StatusCancelled,
	}
	allowed := map[models.Status][]models.Status{
		models.StatusPending:  {models.StatusAccepted, models.StatusRejected, models.StatusCancelled},
		models.StatusAccepted: {models.StatusCancelled},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			from, to := from, to
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				err := schedule.ValidateTransition(from, to)
				ok := false
				for _, s := range allowed[from] {
					if s == to {
						ok = true
					}
				}
				if ok {
					require.NoError(t, err)
					return
				}
				require.Error(t, err)
				var terr *models.TransitionError
				require.ErrorAs(t, err, &terr)
				require.Equal(t, from, terr.From)
				require.Equal(t, to, terr.To)
			})
		}
	}
}

func TestValidateTransitionCaseInsensitive(t *testing.T) {
	require.NoError(t, schedule.ValidateTransition("Pending", "ACCEPTED"))
	require.Error(t, schedule.ValidateTransition("CANCELLED", "accepted"))
}

func TestValidateTransitionUnknownStatus(t *testing.T) {
	err := schedule.ValidateTransition("archived", models.StatusAccepted)
	var terr *models.TransitionError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, models.Status("archived"), terr.From)
}

func TestValidateTransitionNoSelfLoops(t *testing.T) {
	for _, s := range []models.Status{models.StatusPending, models.StatusAccepted, models.StatusRejected, models.StatusCancelled} {
		require.Error(t, schedule.ValidateTransition(s, s), "self transition from %s must fail", s)
	}
}
