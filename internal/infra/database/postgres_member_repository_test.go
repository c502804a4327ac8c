package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"prayday_bot/internal/domain/member"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ member.Repository = (*PostgresMemberRepository)(nil)

var memberRowColumns = []string{
	"phone_number", "first_name", "last_name", "telegram_chat_id", "subscribed",
	"reminder_time", "member_count", "created_at", "updated_at",
}

func newMemberRepoWithMock(t *testing.T) (*PostgresMemberRepository, sqlmock.Sqlmock, *test.Hook) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, hook := test.NewNullLogger()
	return NewPostgresMemberRepository(db, log.WithField("component", "test")), mock, hook
}

func TestGetStatus(t *testing.T) {
	tests := []struct {
		name   string
		expect func(sqlmock.Sqlmock)
		want   member.Status
	}{
		{
			name: "unrecognized",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT subscribed FROM members WHERE phone_number = \$1`).
					WithArgs("+15551230000").WillReturnError(sql.ErrNoRows)
			},
			want: member.StatusUnrecognized,
		},
		{
			name: "subscribed",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT subscribed FROM members`).
					WithArgs("+15551230000").WillReturnRows(sqlmock.NewRows([]string{"subscribed"}).AddRow(true))
			},
			want: member.StatusSubscribed,
		},
		{
			name: "unsubscribed",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(`SELECT subscribed FROM members`).
					WithArgs("+15551230000").WillReturnRows(sqlmock.NewRows([]string{"subscribed"}).AddRow(false))
			},
			want: member.StatusUnsubscribed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newMemberRepoWithMock(t)
			tt.expect(mock)

			got, err := repo.GetStatus(context.Background(), "+15551230000")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetStatus_DBError(t *testing.T) {
	repo, mock, _ := newMemberRepoWithMock(t)
	mock.ExpectQuery(`SELECT subscribed FROM members`).WillReturnError(errors.New("db down"))

	_, err := repo.GetStatus(context.Background(), "+1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestGet(t *testing.T) {
	repo, mock, _ := newMemberRepoWithMock(t)
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT phone_number, .* FROM members WHERE phone_number = \$1`).
		WithArgs("+15551230000").
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow("+15551230000", "Ann", "Lee", int64(42), true, "8am", int64(2), now, now))

	m, err := repo.Get(context.Background(), "+15551230000")
	require.NoError(t, err)
	assert.Equal(t, "Ann", m.FirstName)
	assert.Equal(t, sql.NullInt64{Int64: 42, Valid: true}, m.ChatID)
	assert.Equal(t, sql.NullString{String: "8am", Valid: true}, m.ReminderTime)
	assert.Equal(t, sql.NullInt32{Int32: 2, Valid: true}, m.MemberCount)
	assert.True(t, m.Subscribed)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, _ := newMemberRepoWithMock(t)
	mock.ExpectQuery(`(?s)SELECT phone_number, .* FROM members`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "+1")
	assert.ErrorIs(t, err, member.ErrMemberNotFound)
}

func TestLinkChat(t *testing.T) {
	repo, mock, hook := newMemberRepoWithMock(t)

	mock.ExpectExec(`(?s)UPDATE members SET telegram_chat_id = NULL.*WHERE telegram_chat_id = \$1 AND phone_number <> \$2`).
		WithArgs(int64(42), "+15551230000").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)INSERT INTO members \(phone_number, first_name, telegram_chat_id\).*ON CONFLICT \(phone_number\) DO UPDATE`).
		WithArgs("+15551230000", "Ann", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.LinkChat(context.Background(), "+15551230000", 42, "Ann"))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, hook.AllEntries())
}

func TestLinkChat_MovesChatFromOtherMember(t *testing.T) {
	repo, mock, hook := newMemberRepoWithMock(t)

	mock.ExpectExec(`UPDATE members SET telegram_chat_id = NULL`).
		WithArgs(int64(42), "+15551230000").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO members`).
		WithArgs("+15551230000", "", int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.LinkChat(context.Background(), "+15551230000", 42, ""))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLinkChat_DBError(t *testing.T) {
	repo, mock, _ := newMemberRepoWithMock(t)
	mock.ExpectExec(`UPDATE members SET telegram_chat_id = NULL`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO members`).WillReturnError(errors.New("boom"))

	err := repo.LinkChat(context.Background(), "+1", 1, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFindByChat(t *testing.T) {
	repo, mock, hook := newMemberRepoWithMock(t)
	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT phone_number, .* FROM members WHERE telegram_chat_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow("+15551230000", "Ann", "", int64(42), false, nil, nil, now, now))

	m, err := repo.FindByChat(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "+15551230000", m.PhoneNumber)
	assert.False(t, m.ReminderTime.Valid)
	assert.False(t, m.MemberCount.Valid)
	assert.Empty(t, hook.AllEntries())
}

func TestFindByChat_SeveralMatchesFirstWins(t *testing.T) {
	repo, mock, hook := newMemberRepoWithMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM members WHERE telegram_chat_id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow("+1000", "A", "", int64(42), true, nil, nil, now, now).
			AddRow("+2000", "B", "", int64(42), true, nil, nil, now, now))

	m, err := repo.FindByChat(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "+1000", m.PhoneNumber)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 2, hook.LastEntry().Data["matches"])
}

func TestFindByChat_NotFound(t *testing.T) {
	repo, mock, _ := newMemberRepoWithMock(t)
	mock.ExpectQuery(`FROM members WHERE telegram_chat_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(memberRowColumns))

	_, err := repo.FindByChat(context.Background(), 7)
	assert.ErrorIs(t, err, member.ErrMemberNotFound)
}

func TestSetters(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  any
		call   func(*PostgresMemberRepository) error
	}{
		{"subscribed", "subscribed", true, func(r *PostgresMemberRepository) error {
			return r.SetSubscribed(context.Background(), "+1", true)
		}},
		{"reminder time", "reminder_time", "3pm", func(r *PostgresMemberRepository) error {
			return r.SetReminderTime(context.Background(), "+1", "3pm")
		}},
		{"member count", "member_count", 4, func(r *PostgresMemberRepository) error {
			return r.SetMemberCount(context.Background(), "+1", 4)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newMemberRepoWithMock(t)
			mock.ExpectExec(`UPDATE members SET `+tt.column+` = \$1, updated_at = NOW\(\) WHERE phone_number = \$2`).
				WithArgs(tt.value, "+1").
				WillReturnResult(sqlmock.NewResult(0, 1))
			require.NoError(t, tt.call(repo))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
		t.Run(tt.name+" not found", func(t *testing.T) {
			repo, mock, _ := newMemberRepoWithMock(t)
			mock.ExpectExec(`UPDATE members SET ` + tt.column).
				WillReturnResult(sqlmock.NewResult(0, 0))
			assert.ErrorIs(t, tt.call(repo), member.ErrMemberNotFound)
		})
	}
}

func TestListSubscribedAtTime(t *testing.T) {
	repo, mock, _ := newMemberRepoWithMock(t)
	now := time.Now()
	mock.ExpectQuery(`FROM members WHERE reminder_time = \$1 AND subscribed = TRUE`).
		WithArgs("8am").
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow("+15551230000", "Ann", "", int64(42), true, "8am", int64(2), now, now).
			AddRow("+15551239999", "Bob", "", int64(43), true, "8am", nil, now, now))

	got, err := repo.ListSubscribedAtTime(context.Background(), "8am")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, m := range got {
		assert.True(t, m.Subscribed)
		assert.Equal(t, "8am", m.ReminderTime.String)
	}
	assert.Equal(t, member.DefaultMemberCount, got[1].EffectiveMemberCount())
}

func TestListSubscribedAtTime_Empty(t *testing.T) {
	repo, mock, _ := newMemberRepoWithMock(t)
	mock.ExpectQuery(`FROM members WHERE reminder_time`).
		WithArgs("2am").
		WillReturnRows(sqlmock.NewRows(memberRowColumns))

	got, err := repo.ListSubscribedAtTime(context.Background(), "2am")
	require.NoError(t, err)
	assert.Empty(t, got)
}
