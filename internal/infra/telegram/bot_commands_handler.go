package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prayday_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const handlerTimeout = 30 * time.Second

// Conversation is the part of app.ConversationService the bot handlers drive.
type Conversation interface {
	Commands() []app.Command
	HandleCommand(ctx context.Context, chatID int64, name string) error
	HandleContact(ctx context.Context, chatID int64, phoneNumber, firstName string) error
	HandleCallback(ctx context.Context, chatID int64, data string) error
}

// Registrar is the subset of *telebot.Bot used to register handlers.
type Registrar interface {
	Handle(endpoint interface{}, h telebot.HandlerFunc, m ...telebot.MiddlewareFunc)
}

// RegisterBotCommands wires every conversation command, contact shares and
// inline button callbacks to conv.
func RegisterBotCommands(ctx context.Context, b Registrar, conv Conversation, baseLogger *logrus.Entry) {
	for _, cmd := range conv.Commands() {
		b.Handle(cmd.Name, commandHandler(ctx, conv, cmd.Name))
		baseLogger.WithField("command", cmd.Name).Debug("Registered command handler")
	}
	b.Handle(telebot.OnContact, contactHandler(ctx, conv, baseLogger.WithField("handler_group", "contact")))
	b.Handle(telebot.OnCallback, callbackHandler(ctx, conv, baseLogger.WithField("handler_group", "callback")))
}

// PublishCommands sets the command menu shown by Telegram clients.
func PublishCommands(b *telebot.Bot, conv Conversation) error {
	if err := b.SetCommands(MenuCommands(conv.Commands())); err != nil {
		return fmt.Errorf("failed to publish bot commands: %w", err)
	}
	return nil
}

// MenuCommands converts commands to the form Telegram expects, without the leading slash.
func MenuCommands(cmds []app.Command) []telebot.Command {
	out := make([]telebot.Command, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, telebot.Command{Text: strings.TrimPrefix(c.Name, "/"), Description: c.Description})
	}
	return out
}

func commandHandler(ctx context.Context, conv Conversation, name string) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if c.Chat() == nil {
			return nil
		}
		reqCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
		defer cancel()
		return conv.HandleCommand(reqCtx, c.Chat().ID, name)
	}
}
