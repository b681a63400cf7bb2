package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/meetsync/MeetSync/pkg/metrics"
	"github.com/meetsync/MeetSync/pkg/models"
	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

// TelegramNotifier mirrors every notification into an ops chat. Recipient
// emails stay in the message so on-call can see who was mailed.
type TelegramNotifier struct {
	log  *logrus.Entry
	bot  *tele.Bot
	chat tele.ChatID
}

func NewBot(token string) (*tele.Bot, error) {
	config := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(config)
	if err != nil {
		return nil, fmt.Errorf("new bot faild: %w", err)
	}
	return b, nil
}

func NewTelegramNotifier(log *logrus.Logger, bot *tele.Bot, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{
		log:  log.WithField("component", "telegram"),
		bot:  bot,
		chat: tele.ChatID(chatID),
	}
}

func (n *TelegramNotifier) NotifyMeetingCreated(_ context.Context, recipient, title string, dates []time.Time, _ *string, actorName string) error {
	msg := fmt.Sprintf("%s scheduled %q for %s (%d date(s))", actorName, title, recipient, len(dates))
	return n.send(msg)
}

func (n *TelegramNotifier) NotifyStatusChanged(_ context.Context, recipient, title string, status models.Status, _ *string) error {
	msg := fmt.Sprintf("meeting %q is now %s, %s notified", title, status, recipient)
	return n.send(msg)
}

func (n *TelegramNotifier) send(msg string) error {
	if _, err := n.bot.Send(n.chat, msg); err != nil {
		metrics.NotifyErrCount.WithLabelValues("telegram").Inc()
		return fmt.Errorf("tg send message faild: %w", err)
	}
	return nil
}
