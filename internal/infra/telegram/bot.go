package telegram

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// NewBot creates a long polling bot. An offline bot skips the getMe call and
// does not poll; it is used for sending only.
func NewBot(token string, offline bool, logger *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:   token,
		Poller:  &telebot.LongPoller{Timeout: 10 * time.Second},
		Offline: offline,
		OnError: ErrorHandler(logger),
	}
	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return b, nil
}

// ErrorHandler logs errors returned by handlers along with the update context.
func ErrorHandler(logger *logrus.Entry) func(error, telebot.Context) {
	return func(err error, c telebot.Context) {
		entry := logger.WithError(err)
		if c != nil {
			if chat := c.Chat(); chat != nil {
				entry = entry.WithField("chat_id", chat.ID)
			}
			if text := c.Text(); text != "" {
				entry = entry.WithField("text", text)
			}
		}
		entry.Error("Telegram handler failed")
	}
}
