package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/meetsync/MeetSync/pkg/metrics"
	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/sirupsen/logrus"
)

// EmailNotifier sends plain-text mail via unauthenticated SMTP
// (Mailpit-compatible).
type EmailNotifier struct {
	log  *logrus.Entry
	addr string
	from string
}

func NewEmailNotifier(log *logrus.Logger, host, port, from string) *EmailNotifier {
	return &EmailNotifier{
		log:  log.WithField("component", "email"),
		addr: fmt.Sprintf("%s:%s", strings.TrimSpace(host), strings.TrimSpace(port)),
		from: strings.TrimSpace(from),
	}
}

func (n *EmailNotifier) NotifyMeetingCreated(_ context.Context, recipient, title string, dates []time.Time, location *string, actorName string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s scheduled the meeting %q.\n\n", actorName, title)
	if len(dates) == 1 {
		fmt.Fprintf(&b, "Date: %s\n", dates[0].Format(time.RFC1123))
	} else {
		b.WriteString("Proposed dates:\n")
		for _, d := range dates {
			fmt.Fprintf(&b, "  - %s\n", d.Format(time.RFC1123))
		}
	}
	if location != nil && *location != "" {
		fmt.Fprintf(&b, "Location: %s\n", *location)
	}
	return n.send(recipient, "New meeting: "+title, b.String())
}

func (n *EmailNotifier) NotifyStatusChanged(_ context.Context, recipient, title string, status models.Status, reason *string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "The meeting %q is now %s.\n", title, status)
	if reason != nil && *reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", *reason)
	}
	return n.send(recipient, fmt.Sprintf("Meeting %s: %s", status, title), b.String())
}

func (n *EmailNotifier) send(to, subject, body string) error {
	msg := buildMessage(n.from, to, subject, body)
	if err := smtp.SendMail(n.addr, nil, n.from, []string{to}, []byte(msg)); err != nil {
		metrics.NotifyErrCount.WithLabelValues("email").Inc()
		return fmt.Errorf("err sending mail to %s: %w", to, err)
	}
	n.log.Debugf("sent %q to %s", subject, to)
	return nil
}

func buildMessage(from, to, subject, body string) string {
	// minimal RFC 5322 message, enough for Mailpit and most relays
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from, to, subject, body,
	)
}
