package notifier

import (
	"context"
	"time"

	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/sirupsen/logrus"
)

// DummyNotifier logs instead of delivering. Used in tests and local runs.
type DummyNotifier struct {
	log *logrus.Entry
}

func NewDummyNotifier(log *logrus.Logger) *DummyNotifier {
	return &DummyNotifier{
		log: log.WithField("component", "notifier"),
	}
}

func (n *DummyNotifier) NotifyMeetingCreated(_ context.Context, recipient, title string, dates []time.Time, _ *string, actorName string) error {
	n.log.Infof("notifying %s: meeting %q by %s, %d date(s)", recipient, title, actorName, len(dates))
	return nil
}

func (n *DummyNotifier) NotifyStatusChanged(_ context.Context, recipient, title string, status models.Status, _ *string) error {
	n.log.Infof("notifying %s: meeting %q is now %s", recipient, title, status)
	return nil
}
