package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"prayday_bot/internal/domain/member"
	domainTelegram "prayday_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Callback actions carried in inline button data as "<action>#<value>".
const (
	ActionSetTime   = "setTime"
	ActionSetNumber = "setNumber"

	callbackSeparator = "#"
)

// Command describes a chat command registered with the bot.
type Command struct {
	Name        string
	Description string
}

type commandHandler func(ctx context.Context, chatID int64) error

// linkedHandler runs for a chat that resolved to a member record.
type linkedHandler func(ctx context.Context, chatID int64, m *member.Member) error

type callbackHandler func(ctx context.Context, chatID int64, m *member.Member, value string) error

type commandEntry struct {
	Command
	handle commandHandler
}

// ConversationService maps inbound chat events to member updates and replies.
type ConversationService struct {
	members          member.Repository
	client           domainTelegram.Client
	rnd              *Randomizer
	openRegistration bool
	log              *logrus.Entry

	commands  []commandEntry
	callbacks map[string]callbackHandler
}

func NewConversationService(
	members member.Repository,
	client domainTelegram.Client,
	rnd *Randomizer,
	openRegistration bool,
	log *logrus.Entry,
) *ConversationService {
	s := &ConversationService{
		members:          members,
		client:           client,
		rnd:              rnd,
		openRegistration: openRegistration,
		log:              log,
	}
	s.commands = []commandEntry{
		{Command{"/start", "Register by sharing your phone number"}, s.handleStart},
		{Command{"/subscribe", "Start receiving daily prayer reminders"}, s.requireLink(s.handleSubscribe)},
		{Command{"/unsubscribe", "Stop receiving daily prayer reminders"}, s.requireLink(s.handleUnsubscribe)},
		{Command{"/settime", "Choose the hour of your daily reminder"}, s.requireLink(s.handleSetTime)},
		{Command{"/setnumber", "Choose how many members to pray for"}, s.requireLink(s.handleSetNumber)},
		{Command{"/settings", "Show your current settings"}, s.requireLink(s.handleSettings)},
		{Command{"/help", "Show this message"}, s.handleHelp},
	}
	s.callbacks = map[string]callbackHandler{
		ActionSetTime:   s.callbackSetTime,
		ActionSetNumber: s.callbackSetNumber,
	}
	return s
}

// Commands lists the supported commands in display order.
func (s *ConversationService) Commands() []Command {
	out := make([]Command, len(s.commands))
	for i, c := range s.commands {
		out[i] = c.Command
	}
	return out
}

// HandleCommand runs the handler registered for name. Unknown commands are ignored.
func (s *ConversationService) HandleCommand(ctx context.Context, chatID int64, name string) error {
	for _, c := range s.commands {
		if c.Name == name {
			s.log.WithFields(logrus.Fields{"chat_id": chatID, "command": name}).Info("Processing command")
			return c.handle(ctx, chatID)
		}
	}
	s.log.WithFields(logrus.Fields{"chat_id": chatID, "command": name}).Debug("Ignoring unknown command")
	return nil
}

// HandleContact registers the shared phone number against chatID.
func (s *ConversationService) HandleContact(ctx context.Context, chatID int64, phoneNumber, firstName string) error {
	phone := member.NormalizePhoneNumber(phoneNumber)
	logCtx := s.log.WithFields(logrus.Fields{"chat_id": chatID, "phone": phone})
	logCtx.Info("Checking for user with shared phone number")

	status, err := s.members.GetStatus(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to get status for %s: %w", phone, err)
	}

	if status == member.StatusUnrecognized {
		if !s.openRegistration {
			logCtx.Info("Phone number is not registered, registration is closed")
			return s.send(chatID, textUnrecognized, removeKeyboard())
		}
		logCtx.Info("Registering new phone number")
		status = member.StatusUnsubscribed
	}

	logCtx.Info("Saving chat ID to phone number")
	if err := s.members.LinkChat(ctx, phone, chatID, firstName); err != nil {
		return fmt.Errorf("failed to link chat %d to %s: %w", chatID, phone, err)
	}

	name := firstName
	if name == "" {
		name = "friend"
	}
	return s.send(chatID, contactReplyText(status, name), removeKeyboard())
}

// HandleCallback dispatches inline button data of the form "<action>#<value>".
// Malformed or unknown data is logged and dropped.
func (s *ConversationService) HandleCallback(ctx context.Context, chatID int64, data string) error {
	logCtx := s.log.WithFields(logrus.Fields{"chat_id": chatID, "callback": data})

	action, value, ok := strings.Cut(data, callbackSeparator)
	if !ok || value == "" {
		logCtx.Warn("Ignoring malformed callback data")
		return nil
	}
	handle, ok := s.callbacks[action]
	if !ok {
		logCtx.Warn("Ignoring unknown callback action")
		return nil
	}

	m, err := s.findLinked(ctx, chatID)
	if err != nil || m == nil {
		return err
	}
	return handle(ctx, chatID, m, value)
}

func (s *ConversationService) requireLink(h linkedHandler) commandHandler {
	return func(ctx context.Context, chatID int64) error {
		m, err := s.findLinked(ctx, chatID)
		if err != nil || m == nil {
			return err
		}
		return h(ctx, chatID, m)
	}
}

// findLinked returns nil, nil when the chat is not linked to any member.
func (s *ConversationService) findLinked(ctx context.Context, chatID int64) (*member.Member, error) {
	m, err := s.members.FindByChat(ctx, chatID)
	if errors.Is(err, member.ErrMemberNotFound) {
		s.log.WithField("chat_id", chatID).Debug("Chat is not linked to a member")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find member for chat %d: %w", chatID, err)
	}
	return m, nil
}

// ignoreNotFound treats a record that vanished between lookup and update as a no-op.
func (s *ConversationService) ignoreNotFound(err error, m *member.Member) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, member.ErrMemberNotFound) {
		s.log.WithField("phone", m.PhoneNumber).Warn("Member disappeared before update")
		return true, nil
	}
	return true, fmt.Errorf("failed to update member %s: %w", m.PhoneNumber, err)
}

func (s *ConversationService) handleStart(_ context.Context, chatID int64) error {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	markup.Reply(markup.Row(markup.Contact(shareContactButton)))
	return s.send(chatID, textStart, &telebot.SendOptions{ParseMode: telebot.ModeHTML, ReplyMarkup: markup})
}

func (s *ConversationService) handleHelp(_ context.Context, chatID int64) error {
	return s.send(chatID, helpText(s.Commands()), nil)
}

func (s *ConversationService) handleSubscribe(ctx context.Context, chatID int64, m *member.Member) error {
	s.log.WithFields(logrus.Fields{"chat_id": chatID, "phone": m.PhoneNumber}).Info("Subscribing user")
	if stop, err := s.ignoreNotFound(s.members.SetSubscribed(ctx, m.PhoneNumber, true), m); stop {
		return err
	}
	return s.send(chatID, subscribedText(s.affirmation()), nil)
}

func (s *ConversationService) handleUnsubscribe(ctx context.Context, chatID int64, m *member.Member) error {
	s.log.WithFields(logrus.Fields{"chat_id": chatID, "phone": m.PhoneNumber}).Info("Unsubscribing user")
	if stop, err := s.ignoreNotFound(s.members.SetSubscribed(ctx, m.PhoneNumber, false), m); stop {
		return err
	}
	return s.send(chatID, textUnsubscribed, nil)
}

func (s *ConversationService) handleSetTime(_ context.Context, chatID int64, _ *member.Member) error {
	markup := &telebot.ReplyMarkup{}
	labels := member.ReminderTimes()
	btns := make([]telebot.Btn, 0, len(labels))
	for _, t := range labels {
		btns = append(btns, markup.Data(t.String(), "", ActionSetTime+callbackSeparator+t.String()))
	}
	markup.Inline(markup.Split(4, btns)...)
	return s.send(chatID, textSetTimePrompt, &telebot.SendOptions{ReplyMarkup: markup})
}

func (s *ConversationService) handleSetNumber(_ context.Context, chatID int64, _ *member.Member) error {
	markup := &telebot.ReplyMarkup{}
	btns := make([]telebot.Btn, 0, member.MaxMemberCount)
	for n := member.MinMemberCount; n <= member.MaxMemberCount; n++ {
		btns = append(btns, markup.Data(strconv.Itoa(n), "", ActionSetNumber+callbackSeparator+strconv.Itoa(n)))
	}
	markup.Inline(markup.Row(btns...))
	return s.send(chatID, textSetNumberPrompt, &telebot.SendOptions{ReplyMarkup: markup})
}

func (s *ConversationService) handleSettings(ctx context.Context, chatID int64, m *member.Member) error {
	logCtx := s.log.WithFields(logrus.Fields{"chat_id": chatID, "phone": m.PhoneNumber})
	logCtx.Info("Retrieving settings for user")

	if !m.Subscribed {
		return s.send(chatID, textNotSubscribed, nil)
	}

	count := m.EffectiveMemberCount()
	if !m.MemberCount.Valid {
		logCtx.WithField("member_count", count).Info("Applying default member count")
		if stop, err := s.ignoreNotFound(s.members.SetMemberCount(ctx, m.PhoneNumber, count), m); stop {
			return err
		}
	}

	reminderTime := member.DefaultReminderTime
	if m.ReminderTime.Valid {
		parsed, err := member.ParseReminderTime(m.ReminderTime.String)
		if err != nil {
			logCtx.WithError(err).Warn("Stored reminder time is invalid, resetting to default")
		} else {
			reminderTime = parsed
		}
	}
	if !m.ReminderTime.Valid || reminderTime.String() != m.ReminderTime.String {
		logCtx.WithField("reminder_time", reminderTime).Info("Applying default reminder time")
		if stop, err := s.ignoreNotFound(s.members.SetReminderTime(ctx, m.PhoneNumber, reminderTime), m); stop {
			return err
		}
	}

	return s.send(chatID, settingsText(count, reminderTime), nil)
}

func (s *ConversationService) callbackSetTime(ctx context.Context, chatID int64, m *member.Member, value string) error {
	logCtx := s.log.WithFields(logrus.Fields{"chat_id": chatID, "phone": m.PhoneNumber})
	reminderTime, err := member.ParseReminderTime(value)
	if err != nil {
		logCtx.WithError(err).Warn("Ignoring invalid reminder time in callback")
		return nil
	}

	logCtx.WithField("reminder_time", reminderTime).Info("Setting reminder time")
	if stop, err := s.ignoreNotFound(s.members.SetReminderTime(ctx, m.PhoneNumber, reminderTime), m); stop {
		return err
	}
	return s.send(chatID, reminderTimeSetText(s.affirmation(), reminderTime), nil)
}

func (s *ConversationService) callbackSetNumber(ctx context.Context, chatID int64, m *member.Member, value string) error {
	logCtx := s.log.WithFields(logrus.Fields{"chat_id": chatID, "phone": m.PhoneNumber})
	n, err := strconv.Atoi(value)
	if err != nil || !member.ValidMemberCount(n) {
		logCtx.WithField("value", value).Warn("Ignoring invalid member count in callback")
		return nil
	}

	logCtx.WithField("member_count", n).Info("Setting member count")
	if stop, err := s.ignoreNotFound(s.members.SetMemberCount(ctx, m.PhoneNumber, n), m); stop {
		return err
	}
	return s.send(chatID, memberCountSetText(s.affirmation(), n), nil)
}

func (s *ConversationService) affirmation() string {
	return affirmations[s.rnd.IntN(len(affirmations))]
}

func (s *ConversationService) send(chatID int64, text string, opts *telebot.SendOptions) error {
	if err := s.client.SendMessage(chatID, text, opts); err != nil {
		return fmt.Errorf("failed to send reply to chat %d: %w", chatID, err)
	}
	return nil
}

func removeKeyboard() *telebot.SendOptions {
	return &telebot.SendOptions{ReplyMarkup: &telebot.ReplyMarkup{RemoveKeyboard: true}}
}
