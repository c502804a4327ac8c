package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prayday_bot/internal/domain/member"

	"github.com/sirupsen/logrus"
)

const memberColumns = `phone_number, first_name, last_name, telegram_chat_id, subscribed,
               reminder_time, member_count, created_at, updated_at`

type PostgresMemberRepository struct {
	db  *sql.DB
	log *logrus.Entry
}

func NewPostgresMemberRepository(db *sql.DB, log *logrus.Entry) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db, log: log}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*member.Member, error) {
	m := &member.Member{}
	err := row.Scan(&m.PhoneNumber, &m.FirstName, &m.LastName, &m.ChatID, &m.Subscribed,
		&m.ReminderTime, &m.MemberCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresMemberRepository) GetStatus(ctx context.Context, phoneNumber string) (member.Status, error) {
	query := `SELECT subscribed FROM members WHERE phone_number = $1`
	var subscribed bool
	err := r.db.QueryRowContext(ctx, query, phoneNumber).Scan(&subscribed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return member.StatusUnrecognized, nil
		}
		return "", fmt.Errorf("error getting member status: %w", err)
	}
	if subscribed {
		return member.StatusSubscribed, nil
	}
	return member.StatusUnsubscribed, nil
}

func (r *PostgresMemberRepository) Get(ctx context.Context, phoneNumber string) (*member.Member, error) {
	query := `SELECT ` + memberColumns + `
               FROM members WHERE phone_number = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, phoneNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, member.ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting member by phone number: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) LinkChat(ctx context.Context, phoneNumber string, chatID int64, firstName string) error {
	// One chat belongs to one member: detach it from anyone else first.
	unlink := `UPDATE members SET telegram_chat_id = NULL, updated_at = NOW()
               WHERE telegram_chat_id = $1 AND phone_number <> $2`
	res, err := r.db.ExecContext(ctx, unlink, chatID, phoneNumber)
	if err != nil {
		return fmt.Errorf("error unlinking chat from other members: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.log.WithFields(logrus.Fields{
			"chat_id":  chatID,
			"phone":    phoneNumber,
			"unlinked": n,
		}).Warn("Chat was linked to another member, moved to the new phone number")
	}

	upsert := `INSERT INTO members (phone_number, first_name, telegram_chat_id)
               VALUES ($1, $2, $3)
               ON CONFLICT (phone_number) DO UPDATE
               SET telegram_chat_id = EXCLUDED.telegram_chat_id,
                   first_name = CASE WHEN members.first_name = '' THEN EXCLUDED.first_name ELSE members.first_name END,
                   updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, upsert, phoneNumber, firstName, chatID); err != nil {
		return fmt.Errorf("error linking chat to member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) FindByChat(ctx context.Context, chatID int64) (*member.Member, error) {
	query := `SELECT ` + memberColumns + `
               FROM members WHERE telegram_chat_id = $1 ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("error finding member by chat ID: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0, 1)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member by chat ID: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members by chat ID: %w", err)
	}

	if len(members) == 0 {
		return nil, member.ErrMemberNotFound
	}
	if len(members) > 1 {
		r.log.WithFields(logrus.Fields{
			"chat_id": chatID,
			"matches": len(members),
			"phone":   members[0].PhoneNumber,
		}).Warn("Chat ID is linked to several members, using the first match")
	}
	return members[0], nil
}

func (r *PostgresMemberRepository) SetSubscribed(ctx context.Context, phoneNumber string, subscribed bool) error {
	return r.updateField(ctx, phoneNumber, "subscribed", subscribed)
}

func (r *PostgresMemberRepository) SetReminderTime(ctx context.Context, phoneNumber string, reminderTime member.ReminderTime) error {
	return r.updateField(ctx, phoneNumber, "reminder_time", string(reminderTime))
}

func (r *PostgresMemberRepository) SetMemberCount(ctx context.Context, phoneNumber string, memberCount int) error {
	return r.updateField(ctx, phoneNumber, "member_count", memberCount)
}

// updateField sets a single column. column must be a trusted constant.
func (r *PostgresMemberRepository) updateField(ctx context.Context, phoneNumber, column string, value any) error {
	query := fmt.Sprintf(`UPDATE members SET %s = $1, updated_at = NOW() WHERE phone_number = $2`, column)
	res, err := r.db.ExecContext(ctx, query, value, phoneNumber)
	if err != nil {
		return fmt.Errorf("error updating member %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for member %s: %w", column, err)
	}
	if n == 0 {
		return member.ErrMemberNotFound
	}
	return nil
}

func (r *PostgresMemberRepository) ListSubscribedAtTime(ctx context.Context, reminderTime member.ReminderTime) ([]*member.Member, error) {
	query := `SELECT ` + memberColumns + `
               FROM members WHERE reminder_time = $1 AND subscribed = TRUE ORDER BY phone_number`

	rows, err := r.db.QueryContext(ctx, query, string(reminderTime))
	if err != nil {
		return nil, fmt.Errorf("error listing members at reminder time: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member at reminder time: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members at reminder time: %w", err)
	}
	return members, nil
}
