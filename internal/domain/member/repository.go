package member

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Member records.
// Mutations against a phone number without a record return ErrMemberNotFound.
type Repository interface {
	GetStatus(ctx context.Context, phoneNumber string) (Status, error)
	Get(ctx context.Context, phoneNumber string) (*Member, error)
	// LinkChat upserts the chat ID for phoneNumber, creating the record when absent.
	// firstName is only stored if the record has none. Any other record holding
	// the same chat ID loses it.
	LinkChat(ctx context.Context, phoneNumber string, chatID int64, firstName string) error
	// FindByChat resolves a chat to its member. If several records carry the
	// chat ID the first one returned by the index wins.
	FindByChat(ctx context.Context, chatID int64) (*Member, error)
	SetSubscribed(ctx context.Context, phoneNumber string, subscribed bool) error
	SetReminderTime(ctx context.Context, phoneNumber string, reminderTime ReminderTime) error
	SetMemberCount(ctx context.Context, phoneNumber string, memberCount int) error
	// ListSubscribedAtTime returns subscribed members whose reminder time is reminderTime.
	ListSubscribedAtTime(ctx context.Context, reminderTime ReminderTime) ([]*Member, error)
}
