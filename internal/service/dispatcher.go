package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
	"github.com/LeventeLantos/chat-reminders/internal/repo"
	"github.com/LeventeLantos/chat-reminders/internal/timeutil"
)

// Sender is the outbound-send collaborator boundary.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Dispatcher is the read path: one Tick per scheduler interval, three sweeps
// per tick. A failed item never stops the rest of its sweep, and a failed
// sweep never stops the next one.
//
// One-time delivery is at-most-once, not at-least-once: rows are deleted
// after the send attempt regardless of its outcome, so a transient send
// failure loses that reminder. That is the documented trade-off, not a bug
// to quietly fix here.
type Dispatcher struct {
	reminders repo.ReminderRepository
	weather   repo.WeatherRepository
	send      Sender
	lookup    WeatherLookup
	loc       *time.Location
	weatherAt string
	now       func() time.Time
}

func NewDispatcher(
	reminders repo.ReminderRepository,
	weather repo.WeatherRepository,
	send Sender,
	lookup WeatherLookup,
	loc *time.Location,
	weatherAt string,
) *Dispatcher {
	return &Dispatcher{
		reminders: reminders,
		weather:   weather,
		send:      send,
		lookup:    lookup,
		loc:       loc,
		weatherAt: weatherAt,
		now:       time.Now,
	}
}

// Tick runs the three sweeps against a single wall-clock reading.
func (d *Dispatcher) Tick(ctx context.Context) {
	now := d.now().In(d.loc)

	d.sweepOneTime(ctx, now)
	d.sweepRecurring(ctx, now)
	d.sweepWeather(ctx, now)
}

func (d *Dispatcher) sweepOneTime(ctx context.Context, now time.Time) {
	due, err := d.reminders.DueOneTime(ctx, now)
	if err != nil {
		slog.Error("one-time sweep query failed", "err", err)
		return
	}

	for _, r := range due {
		// Send first, then delete. The delete happens whether or not the
		// send worked: each row gets exactly one delivery attempt.
		if _, err := d.send.Send(ctx, r.Address, "Reminder: "+r.Message); err != nil {
			slog.Error("one-time send failed", "reminder_id", r.ID, "address", r.Address, "err", err)
		}
		if err := d.reminders.DeleteOneTime(ctx, r.ID); err != nil {
			slog.Error("one-time delete failed", "reminder_id", r.ID, "err", err)
		}
	}
}

func (d *Dispatcher) sweepRecurring(ctx context.Context, now time.Time) {
	due, err := d.reminders.DueRecurring(ctx, timeutil.HHMM(now))
	if err != nil {
		slog.Error("recurring sweep query failed", "err", err)
		return
	}

	for _, r := range due {
		if !shouldFire(r.RecurringReminder, now) {
			continue
		}

		// Mark triggered regardless of send outcome; this is the guard
		// against a second fire in the same day or month.
		if _, err := d.send.Send(ctx, r.Address, "Recurring reminder: "+r.Message); err != nil {
			slog.Error("recurring send failed", "reminder_id", r.ID, "address", r.Address, "err", err)
		}
		if err := d.reminders.MarkRecurringTriggered(ctx, r.ID, now); err != nil {
			slog.Error("recurring mark failed", "reminder_id", r.ID, "err", err)
		}
	}
}

// shouldFire applies the per-kind dedup bookkeeping. The caller already
// matched time-of-day.
func shouldFire(r model.RecurringReminder, now time.Time) bool {
	switch r.Kind {
	case model.Daily:
		return r.LastTriggeredAt == nil || !timeutil.SameDay(r.LastTriggeredAt.In(now.Location()), now)
	case model.Monthly:
		if now.Day() != r.DayOfMonth {
			return false
		}
		return r.LastTriggeredAt == nil || !timeutil.SameYearMonth(r.LastTriggeredAt.In(now.Location()), now)
	}
	return false
}

func (d *Dispatcher) sweepWeather(ctx context.Context, now time.Time) {
	if timeutil.HHMM(now) != d.weatherAt {
		return
	}

	subs, err := d.weather.Active(ctx)
	if err != nil {
		slog.Error("weather sweep query failed", "err", err)
		return
	}

	for _, s := range subs {
		if s.LastSentAt != nil && timeutil.SameDay(s.LastSentAt.In(now.Location()), now) {
			continue
		}

		cond, err := d.lookup.Lookup(ctx, s.City)
		if err != nil {
			// Skip without marking sent so the subscription is retried
			// while the send window lasts.
			slog.Error("weather lookup failed", "subscription_id", s.ID, "city", s.City, "err", err)
			continue
		}

		if _, err := d.send.Send(ctx, s.Address, "Daily weather update: "+weatherSummary(s.City, cond)); err != nil {
			slog.Error("weather send failed", "subscription_id", s.ID, "address", s.Address, "err", err)
		}
		if err := d.weather.MarkSent(ctx, s.ID, now); err != nil {
			slog.Error("weather mark failed", "subscription_id", s.ID, "err", err)
		}
	}
}
