// Package memstore keeps members and families in process memory.
// It backs local runs without a database and the service tests.
package memstore

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"prayday_bot/internal/domain/member"
)

type MemberRepository struct {
	mu      sync.RWMutex
	members map[string]*member.Member
	now     func() time.Time
}

func NewMemberRepository(seed ...*member.Member) *MemberRepository {
	r := &MemberRepository{
		members: make(map[string]*member.Member, len(seed)),
		now:     time.Now,
	}
	for _, m := range seed {
		c := *m
		r.members[c.PhoneNumber] = &c
	}
	return r
}

func (r *MemberRepository) GetStatus(_ context.Context, phoneNumber string) (member.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return member.StatusOf(r.members[phoneNumber]), nil
}

func (r *MemberRepository) Get(_ context.Context, phoneNumber string) (*member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[phoneNumber]
	if !ok {
		return nil, member.ErrMemberNotFound
	}
	c := *m
	return &c, nil
}

func (r *MemberRepository) LinkChat(_ context.Context, phoneNumber string, chatID int64, firstName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()

	for phone, m := range r.members {
		if phone != phoneNumber && m.ChatID.Valid && m.ChatID.Int64 == chatID {
			m.ChatID = sql.NullInt64{}
			m.UpdatedAt = now
		}
	}

	m, ok := r.members[phoneNumber]
	if !ok {
		m = &member.Member{PhoneNumber: phoneNumber, CreatedAt: now}
		r.members[phoneNumber] = m
	}
	if m.FirstName == "" {
		m.FirstName = firstName
	}
	m.ChatID = sql.NullInt64{Int64: chatID, Valid: true}
	m.UpdatedAt = now
	return nil
}

func (r *MemberRepository) FindByChat(_ context.Context, chatID int64) (*member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.sorted() {
		if m.ChatID.Valid && m.ChatID.Int64 == chatID {
			c := *m
			return &c, nil
		}
	}
	return nil, member.ErrMemberNotFound
}

func (r *MemberRepository) SetSubscribed(_ context.Context, phoneNumber string, subscribed bool) error {
	return r.update(phoneNumber, func(m *member.Member) { m.Subscribed = subscribed })
}

func (r *MemberRepository) SetReminderTime(_ context.Context, phoneNumber string, reminderTime member.ReminderTime) error {
	return r.update(phoneNumber, func(m *member.Member) {
		m.ReminderTime = sql.NullString{String: string(reminderTime), Valid: true}
	})
}

func (r *MemberRepository) SetMemberCount(_ context.Context, phoneNumber string, memberCount int) error {
	return r.update(phoneNumber, func(m *member.Member) {
		m.MemberCount = sql.NullInt32{Int32: int32(memberCount), Valid: true}
	})
}

func (r *MemberRepository) update(phoneNumber string, apply func(*member.Member)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[phoneNumber]
	if !ok {
		return member.ErrMemberNotFound
	}
	apply(m)
	m.UpdatedAt = r.now()
	return nil
}

func (r *MemberRepository) ListSubscribedAtTime(_ context.Context, reminderTime member.ReminderTime) ([]*member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*member.Member, 0)
	for _, m := range r.sorted() {
		if m.Subscribed && m.ReminderTime.Valid && m.ReminderTime.String == string(reminderTime) {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

// sorted returns members ordered by phone number. Callers hold the lock.
func (r *MemberRepository) sorted() []*member.Member {
	out := make([]*member.Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneNumber < out[j].PhoneNumber })
	return out
}

type FamilyRepository struct {
	mu       sync.RWMutex
	families []string
}

func NewFamilyRepository(families ...string) *FamilyRepository {
	return &FamilyRepository{families: append([]string(nil), families...)}
}

// Add appends descriptions to the pool.
func (r *FamilyRepository) Add(descriptions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families = append(r.families, descriptions...)
}

func (r *FamilyRepository) ListAll(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.families))
	copy(out, r.families)
	return out, nil
}
