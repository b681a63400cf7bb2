// Package schedule holds the pure meeting-scheduling rules: the status state
// machine, the 30-minute availability slot math and proposed-date checks.
// Nothing in here touches storage.
package schedule

import (
	"strings"

	"github.com/meetsync/MeetSync/pkg/models"
)

var allowedTransitions = map[models.Status][]models.Status{
	models.StatusPending:   {models.StatusAccepted, models.StatusRejected, models.StatusCancelled},
	models.StatusAccepted:  {models.StatusCancelled},
	models.StatusRejected:  {},
	models.StatusCancelled: {},
}

// ValidateTransition checks the status state machine. Input is canonicalized
// to lowercase; anything outside the transition table, including
// self-transitions and unknown current statuses, is rejected.
func ValidateTransition(current, requested models.Status) error {
	from := models.Status(strings.ToLower(string(current)))
	to := models.Status(strings.ToLower(string(requested)))

	allowed, ok := allowedTransitions[from]
	if !ok {
		return &models.TransitionError{From: from, To: to}
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return &models.TransitionError{From: from, To: to}
}
