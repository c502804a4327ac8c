package member

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 123-0000", "+15551230000"},
		{"15551230000", "+15551230000"},
		{"+15551230000", "+15551230000"},
		{"  44 20 7946 0958 ", "+442079460958"},
		{"", "+"},
	}
	for _, tt := range tests {
		got := NormalizePhoneNumber(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, got, NormalizePhoneNumber(got), "normalize must be idempotent for %q", tt.in)
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusUnrecognized, StatusOf(nil))
	assert.Equal(t, StatusUnsubscribed, StatusOf(&Member{PhoneNumber: "+1"}))
	assert.Equal(t, StatusSubscribed, StatusOf(&Member{PhoneNumber: "+1", Subscribed: true}))
}

func TestEffectiveMemberCount(t *testing.T) {
	m := &Member{}
	assert.Equal(t, DefaultMemberCount, m.EffectiveMemberCount())

	m.MemberCount = sql.NullInt32{Int32: 5, Valid: true}
	assert.Equal(t, 5, m.EffectiveMemberCount())
}

func TestLink(t *testing.T) {
	m := &Member{PhoneNumber: "+15551230000"}
	_, ok := m.Link()
	assert.False(t, ok)

	m.ChatID = sql.NullInt64{Int64: 42, Valid: true}
	link, ok := m.Link()
	require.True(t, ok)
	assert.Equal(t, ChatLink{PhoneNumber: "+15551230000", ChatID: 42}, link)
}

func TestReminderTimes(t *testing.T) {
	times := ReminderTimes()
	require.Len(t, times, 24)
	assert.Equal(t, ReminderTime("12am"), times[0])
	assert.Equal(t, ReminderTime("11am"), times[11])
	assert.Equal(t, ReminderTime("12pm"), times[12])
	assert.Equal(t, ReminderTime("11pm"), times[23])

	seen := map[ReminderTime]bool{}
	for _, rt := range times {
		assert.False(t, seen[rt], "duplicate label %s", rt)
		seen[rt] = true
	}
}

func TestParseReminderTime(t *testing.T) {
	got, err := ParseReminderTime(" 8AM ")
	require.NoError(t, err)
	assert.Equal(t, ReminderTime("8am"), got)

	for _, bad := range []string{"", "13pm", "0am", "8", "8:00am", "noon"} {
		_, err := ParseReminderTime(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestReminderTimeAt(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	assert.Equal(t, ReminderTime("12am"), ReminderTimeAt(time.Date(2025, 3, 1, 0, 30, 0, 0, loc)))
	assert.Equal(t, ReminderTime("8am"), ReminderTimeAt(time.Date(2025, 3, 1, 8, 0, 0, 0, loc)))
	assert.Equal(t, ReminderTime("12pm"), ReminderTimeAt(time.Date(2025, 3, 1, 12, 59, 0, 0, loc)))
	assert.Equal(t, ReminderTime("3pm"), ReminderTimeAt(time.Date(2025, 3, 1, 15, 5, 0, 0, loc)))

	// 20:00 UTC is 3pm in New York in winter.
	utc := time.Date(2025, 1, 15, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, ReminderTime("3pm"), ReminderTimeAt(utc.In(loc)))
}

func TestValidMemberCount(t *testing.T) {
	assert.False(t, ValidMemberCount(0))
	assert.True(t, ValidMemberCount(1))
	assert.True(t, ValidMemberCount(5))
	assert.False(t, ValidMemberCount(6))
}
