package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"prayday_bot/internal/domain/family"
	"prayday_bot/internal/domain/member"
	domainTelegram "prayday_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const dateLayout = "Monday 1/2"

// Broadcaster runs one reminder broadcast for the current hour.
type Broadcaster interface {
	Broadcast(ctx context.Context) (BroadcastReport, error)
}

// BroadcastReport summarizes a single broadcast run.
type BroadcastReport struct {
	Label  member.ReminderTime
	Due    int
	Sent   int
	Failed int
}

type BroadcastOptions struct {
	Location   *time.Location
	Workers    int
	RatePerSec int // zero or less disables throttling
}

// BroadcastService assigns families to members due this hour and sends their reminders.
type BroadcastService struct {
	members  member.Repository
	families family.Repository
	client   domainTelegram.Client
	rnd      *Randomizer
	location *time.Location
	workers  int
	limiter  *rate.Limiter
	now      func() time.Time
	log      *logrus.Entry
}

func NewBroadcastService(
	members member.Repository,
	families family.Repository,
	client domainTelegram.Client,
	rnd *Randomizer,
	opts BroadcastOptions,
	log *logrus.Entry,
) *BroadcastService {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}
	return &BroadcastService{
		members:  members,
		families: families,
		client:   client,
		rnd:      rnd,
		location: loc,
		workers:  workers,
		limiter:  limiter,
		now:      time.Now,
		log:      log,
	}
}

type reminder struct {
	chatID int64
	phone  string
	text   string
}

// Broadcast sends today's reminder to every subscribed member whose reminder
// time matches the current hour. Individual send failures are counted, not returned.
func (s *BroadcastService) Broadcast(ctx context.Context) (BroadcastReport, error) {
	now := s.now().In(s.location)
	report := BroadcastReport{Label: member.ReminderTimeAt(now)}
	logCtx := s.log.WithFields(logrus.Fields{"reminder_time": report.Label, "time_zone": s.location.String()})

	logCtx.Info("Looking up users registered for the current hour")
	users, err := s.members.ListSubscribedAtTime(ctx, report.Label)
	if err != nil {
		return report, fmt.Errorf("failed to list members for %s: %w", report.Label, err)
	}
	report.Due = len(users)
	if len(users) == 0 {
		logCtx.Info("No users registered for the current hour")
		return report, nil
	}

	pool, err := s.families.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list families: %w", err)
	}
	if len(pool) == 0 {
		logCtx.WithField("due", report.Due).Error("No families available, skipping broadcast")
		return report, nil
	}

	date := now.Format(dateLayout)
	reminders := make([]reminder, 0, len(users))
	for _, u := range users {
		link, ok := u.Link()
		if !ok {
			logCtx.WithField("phone", u.PhoneNumber).Warn("Subscribed member has no linked chat, skipping")
			report.Failed++
			continue
		}
		batch := AssignBatch(pool, u.EffectiveMemberCount(), s.rnd)
		reminders = append(reminders, reminder{
			chatID: link.ChatID,
			phone:  link.PhoneNumber,
			text:   ComposeMessage(u.FirstName, date, batch),
		})
	}

	logCtx.WithField("count", len(reminders)).Info("Sending prayer reminders")
	sent, failed := s.dispatch(ctx, reminders, logCtx)
	report.Sent = sent
	report.Failed += failed

	logCtx.WithFields(logrus.Fields{
		"due":    report.Due,
		"sent":   report.Sent,
		"failed": report.Failed,
	}).Info("Broadcast finished")
	return report, nil
}

func (s *BroadcastService) dispatch(ctx context.Context, reminders []reminder, logCtx *logrus.Entry) (int, int) {
	var sent, failed atomic.Int64
	jobs := make(chan reminder)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				entry := logCtx.WithFields(logrus.Fields{"chat_id": r.chatID, "phone": r.phone})
				if err := s.limiter.Wait(ctx); err != nil {
					entry.WithError(err).Warn("Broadcast interrupted before send")
					failed.Add(1)
					continue
				}
				if err := s.client.SendMessage(r.chatID, r.text, nil); err != nil {
					entry.WithError(err).Error("Failed to send prayer reminder")
					failed.Add(1)
					continue
				}
				entry.Debug("Prayer reminder sent")
				sent.Add(1)
			}
		}()
	}

	for _, r := range reminders {
		jobs <- r
	}
	close(jobs)
	wg.Wait()

	return int(sent.Load()), int(failed.Load())
}

// AssignBatch draws min(k, len(pool)) distinct families from pool and sorts them.
// pool is left unchanged.
func AssignBatch(pool []string, k int, rnd *Randomizer) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if k > len(shuffled) {
		k = len(shuffled)
	}
	if k < 0 {
		k = 0
	}
	batch := shuffled[:k]
	sort.Strings(batch)
	return batch
}

// FormatBatch numbers the batch from 1, one family per line.
func FormatBatch(batch []string) string {
	lines := make([]string, len(batch))
	for i, f := range batch {
		lines[i] = fmt.Sprintf("%d. %s", i+1, f)
	}
	return strings.Join(lines, "\n")
}

// ComposeMessage builds the daily reminder text.
func ComposeMessage(firstName, date string, batch []string) string {
	if firstName == "" {
		firstName = "friend"
	}
	return fmt.Sprintf("Hi %s, today is %s. Please pray for:\n%s", firstName, date, FormatBatch(batch))
}
