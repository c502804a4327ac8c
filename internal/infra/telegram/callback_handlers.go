package telegram

import (
	"context"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func contactHandler(ctx context.Context, conv Conversation, logger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		msg := c.Message()
		if msg == nil || msg.Contact == nil || c.Chat() == nil {
			return nil
		}
		contact := msg.Contact

		// Only the sender's own contact may register a chat.
		if sender := c.Sender(); sender != nil && contact.UserID != 0 && contact.UserID != sender.ID {
			logger.WithFields(logrus.Fields{
				"chat_id":         c.Chat().ID,
				"sender_id":       sender.ID,
				"contact_user_id": contact.UserID,
			}).Warn("Ignoring contact that belongs to another user")
			return nil
		}

		reqCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		return conv.HandleContact(reqCtx, c.Chat().ID, contact.PhoneNumber, contact.FirstName)
	}
}

func callbackHandler(ctx context.Context, conv Conversation, logger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		if cb.Message == nil || cb.Message.Chat == nil {
			logger.WithField("callback", cb.Data).Warn("Callback without originating message, ignoring")
			return c.Respond()
		}

		reqCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		err := conv.HandleCallback(reqCtx, cb.Message.Chat.ID, cb.Data)

		// Acknowledge so the client stops showing the button as pending.
		if respErr := c.Respond(); respErr != nil && err == nil {
			err = respErr
		}
		return err
	}
}
