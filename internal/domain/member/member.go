package member

import (
	"database/sql"
	"fmt"
	"regexp"
	"time"
)

const (
	MinMemberCount     = 1
	MaxMemberCount     = 5
	DefaultMemberCount = 3
)

// ErrMemberNotFound is returned by repositories when no record exists for
// the given phone number or chat ID.
var ErrMemberNotFound = fmt.Errorf("member not found")

// Member is a registered user of the bot, keyed by phone number.
type Member struct {
	PhoneNumber  string
	FirstName    string
	LastName     string
	ChatID       sql.NullInt64 // Set once a Telegram chat shares this number
	Subscribed   bool
	ReminderTime sql.NullString // One of the ReminderTime labels
	MemberCount  sql.NullInt32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Link returns the chat link of the member. ok is false if no chat has been linked.
func (m *Member) Link() (ChatLink, bool) {
	if !m.ChatID.Valid {
		return ChatLink{}, false
	}
	return ChatLink{PhoneNumber: m.PhoneNumber, ChatID: m.ChatID.Int64}, true
}

// EffectiveMemberCount returns the configured count, or the default when unset.
func (m *Member) EffectiveMemberCount() int {
	if m.MemberCount.Valid {
		return int(m.MemberCount.Int32)
	}
	return DefaultMemberCount
}

// ChatLink associates a phone number with the chat currently linked to it.
type ChatLink struct {
	PhoneNumber string
	ChatID      int64
}

// Status describes whether a phone number is known and subscribed.
type Status string

const (
	StatusUnrecognized Status = "UNRECOGNIZED"
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusUnsubscribed Status = "UNSUBSCRIBED"
)

// StatusOf derives the status of an existing record.
func StatusOf(m *Member) Status {
	if m == nil {
		return StatusUnrecognized
	}
	if m.Subscribed {
		return StatusSubscribed
	}
	return StatusUnsubscribed
}

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhoneNumber strips everything but digits and prefixes a "+".
func NormalizePhoneNumber(phoneNumber string) string {
	return "+" + nonDigits.ReplaceAllString(phoneNumber, "")
}

// ValidMemberCount reports whether n is an allowed number of families per day.
func ValidMemberCount(n int) bool {
	return n >= MinMemberCount && n <= MaxMemberCount
}
