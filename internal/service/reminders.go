package service

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
	"github.com/LeventeLantos/chat-reminders/internal/repo"
	"github.com/LeventeLantos/chat-reminders/internal/timeutil"
)

// IntentResolver is the external natural-language intent service boundary.
type IntentResolver interface {
	Resolve(ctx context.Context, text string, now time.Time, tz string) (*model.Intent, error)
}

const intentCreateReminder = "create_reminder"

// Reminders is the write path: it resolves free text into a message plus an
// absolute timestamp and persists the right kind of record.
type Reminders struct {
	repo          repo.ReminderRepository
	intent        IntentResolver
	loc           *time.Location
	confidenceMin float64
	now           func() time.Time
}

func NewReminders(r repo.ReminderRepository, intent IntentResolver, loc *time.Location, confidenceMin float64) *Reminders {
	return &Reminders{
		repo:          r,
		intent:        intent,
		loc:           loc,
		confidenceMin: confidenceMin,
		now:           time.Now,
	}
}

// Resolved is a reminder message plus its absolute fire time.
type Resolved struct {
	Message string
	At      time.Time
}

var (
	reRelative   = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+(min|mins|minute|minutes|hour|hours)\b`)
	reToday      = regexp.MustCompile(`(?i)\btoday\b`)
	reLeadRemind = regexp.MustCompile(`(?i)^\s*remind me( to)?\b`)
)

// ResolveTimestamp tries the intent service first and falls back to the
// relative-time parser. The confidence gate keeps low-certainty parses from
// turning small talk into reminders.
func (s *Reminders) ResolveTimestamp(ctx context.Context, text string) (*Resolved, bool) {
	now := s.now().In(s.loc)

	it, err := s.intent.Resolve(ctx, text, now, s.loc.String())
	if err != nil {
		slog.Debug("intent resolution failed, falling back", "err", err)
	}
	if it != nil &&
		it.Intent == intentCreateReminder &&
		it.Message != "" &&
		!it.Datetime.IsZero() &&
		it.Confidence >= s.confidenceMin {
		return &Resolved{Message: it.Message, At: it.Datetime.In(s.loc)}, true
	}

	return resolveRelative(now, text)
}

// resolveRelative matches "in <N> minutes/hours" and derives a cleaned
// message from the remaining text.
func resolveRelative(now time.Time, text string) (*Resolved, bool) {
	m := reRelative.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil, false
	}
	unit := time.Minute
	if strings.HasPrefix(strings.ToLower(m[2]), "hour") {
		unit = time.Hour
	}

	return &Resolved{
		Message: cleanMessage(text),
		At:      now.Add(time.Duration(n) * unit),
	}, true
}

// cleanMessage strips the duration phrase, the word "today" and a leading
// "remind me (to)". An empty result falls back to the original trimmed text
// so a reminder never ends up with an empty message.
func cleanMessage(text string) string {
	msg := reRelative.ReplaceAllString(text, " ")
	msg = reToday.ReplaceAllString(msg, " ")
	msg = reLeadRemind.ReplaceAllString(msg, " ")
	msg = strings.Join(strings.Fields(msg), " ")
	if msg == "" {
		return strings.TrimSpace(text)
	}
	return msg
}

var (
	monthlyPhrases = []string{"every month", "each month", "monthly"}
	dailyPhrases   = []string{"every day", "everyday", "daily"}
)

// DetectRecurrence inspects lowercase text for recurrence phrasing. Monthly
// wins when both kinds of phrasing appear; the reference system behaves this
// way and we keep it rather than second-guess the user.
func DetectRecurrence(lower string) (model.Recurrence, bool) {
	for _, p := range monthlyPhrases {
		if strings.Contains(lower, p) {
			return model.Monthly, true
		}
	}
	for _, p := range dailyPhrases {
		if strings.Contains(lower, p) {
			return model.Daily, true
		}
	}
	return "", false
}

// Created reports what CreateFromResolved persisted: exactly one of the two
// fields is set.
type Created struct {
	OneTime   *model.OneTimeReminder
	Recurring *model.RecurringReminder
}

// CreateFromResolved persists res for userID, as a recurring record when the
// original text carries recurrence phrasing and a one-time record otherwise.
// The recurring time-of-day comes from the resolved timestamp, not from
// separate parsing.
func (s *Reminders) CreateFromResolved(ctx context.Context, userID int64, originalText string, res *Resolved) (*Created, error) {
	at := res.At.In(s.loc)

	if kind, ok := DetectRecurrence(strings.ToLower(originalText)); ok {
		dayOfMonth := 0
		if kind == model.Monthly {
			dayOfMonth = at.Day()
		}
		rec, err := s.CreateRecurring(ctx, userID, res.Message, kind, timeutil.HHMM(at), dayOfMonth)
		if err != nil {
			return nil, err
		}
		return &Created{Recurring: rec}, nil
	}

	rem, err := s.repo.CreateOneTime(ctx, userID, res.Message, at)
	if err != nil {
		return nil, err
	}
	return &Created{OneTime: rem}, nil
}

// CreateOneTime persists a one-time reminder, bumping the user's counter in
// the same transaction (repo contract).
func (s *Reminders) CreateOneTime(ctx context.Context, userID int64, message string, at time.Time) (*model.OneTimeReminder, error) {
	return s.repo.CreateOneTime(ctx, userID, message, at)
}

// CreateRecurring validates the kind/day-of-month pairing before persisting.
func (s *Reminders) CreateRecurring(ctx context.Context, userID int64, message string, kind model.Recurrence, timeOfDay string, dayOfMonth int) (*model.RecurringReminder, error) {
	switch kind {
	case model.Monthly:
		if dayOfMonth < 1 || dayOfMonth > 31 {
			return nil, model.Validation("monthly reminders need a day of month between 1 and 31")
		}
	case model.Daily:
		if dayOfMonth != 0 {
			return nil, model.Validation("daily reminders must not carry a day of month")
		}
	default:
		return nil, model.Validation("unknown recurrence kind")
	}
	return s.repo.CreateRecurring(ctx, userID, message, kind, timeOfDay, dayOfMonth)
}
