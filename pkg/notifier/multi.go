package notifier

import (
	"context"
	"time"

	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/meetsync/MeetSync/pkg/service"
)

// MultiNotifier fans out to every configured channel and reports the first
// failure after trying them all.
type MultiNotifier struct {
	targets []service.Notifier
}

func NewMultiNotifier(targets ...service.Notifier) *MultiNotifier {
	return &MultiNotifier{targets: targets}
}

func (n *MultiNotifier) NotifyMeetingCreated(ctx context.Context, recipient, title string, dates []time.Time, location *string, actorName string) error {
	var first error
	for _, t := range n.targets {
		if err := t.NotifyMeetingCreated(ctx, recipient, title, dates, location, actorName); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (n *MultiNotifier) NotifyStatusChanged(ctx context.Context, recipient, title string, status models.Status, reason *string) error {
	var first error
	for _, t := range n.targets {
		if err := t.NotifyStatusChanged(ctx, recipient, title, status, reason); err != nil && first == nil {
			first = err
		}
	}
	return first
}
