package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/command"
	"github.com/LeventeLantos/chat-reminders/internal/model"
	"github.com/LeventeLantos/chat-reminders/internal/repo"
	"github.com/LeventeLantos/chat-reminders/internal/session"
	"github.com/LeventeLantos/chat-reminders/internal/timeutil"
)

// WeatherLookup is the external weather service boundary.
type WeatherLookup interface {
	Lookup(ctx context.Context, city string) (*model.Conditions, error)
}

// Inbound is one message delivered by the channel transport.
type Inbound struct {
	From        string
	Body        string
	DisplayName string
}

// Chat turns inbound messages into exactly one reply each. It owns the
// session store; nothing else mutates conversational state.
type Chat struct {
	users     repo.UserRepository
	reminders repo.ReminderRepository
	weather   repo.WeatherRepository
	engine    *Reminders
	lookup    WeatherLookup
	sessions  *session.Store
	loc       *time.Location
	weatherAt string
	now       func() time.Time
}

func NewChat(
	users repo.UserRepository,
	reminders repo.ReminderRepository,
	weather repo.WeatherRepository,
	engine *Reminders,
	lookup WeatherLookup,
	sessions *session.Store,
	loc *time.Location,
	weatherAt string,
) *Chat {
	return &Chat{
		users:     users,
		reminders: reminders,
		weather:   weather,
		engine:    engine,
		lookup:    lookup,
		sessions:  sessions,
		loc:       loc,
		weatherAt: weatherAt,
		now:       time.Now,
	}
}

// HandleInbound processes one message and always returns a reply, never an
// empty string: the transport contract is one outbound message per inbound.
func (c *Chat) HandleInbound(ctx context.Context, in Inbound) string {
	addr := in.From
	text := strings.TrimSpace(in.Body)

	user, err := c.users.Upsert(ctx, addr, in.DisplayName)
	if err != nil {
		slog.Error("user upsert failed", "address", addr, "err", err)
		return textDBError
	}

	// An open city prompt consumes the whole message before any
	// classification happens.
	if c.sessions.ConsumeCity(addr) {
		return c.subscribeWeather(ctx, user, text)
	}

	cmd := command.Classify(text)

	switch cmd.Kind {
	case command.Greeting:
		// Greeting always resets to a fresh guided flow.
		c.sessions.Put(addr, session.Session{State: session.AwaitingMessage})
		return textGreeting(user.DisplayName)

	case command.Help:
		return textHelp

	case command.List:
		return c.list(ctx, user)

	case command.Snooze:
		return c.snooze(ctx, user, cmd.SnoozeFor)

	case command.SnoozeInvalid:
		return textSnoozeHowTo

	case command.WeatherSubscribe:
		return c.subscribeWeather(ctx, user, cmd.City)

	case command.WeatherSubscribeBare:
		return c.subscribeWeatherBare(ctx, user)

	case command.WeatherCancel:
		return c.cancelWeather(ctx, user)

	case command.CancelOneTime:
		return c.cancelOneTime(ctx, user, cmd.CancelID)

	case command.CancelRecurring:
		return c.cancelRecurring(ctx, user, cmd.CancelID)
	}

	return c.freeText(ctx, user, text, cmd.LooksLikeReminder)
}

// freeText is the single routing function over {session-present,
// is-experienced, looks-like-reminder}. Experienced users (or anyone without
// an open session) get the NLP-first path for reminder-shaped text; a
// successful parse supersedes any open session.
func (c *Chat) freeText(ctx context.Context, user *model.User, text string, looksLikeReminder bool) string {
	sess, hasSession := c.sessions.Get(user.Address)
	experienced := user.ReminderCount > 0

	if (experienced || !hasSession) && looksLikeReminder {
		if res, ok := c.engine.ResolveTimestamp(ctx, text); ok {
			reply, err := c.createResolved(ctx, user, text, res)
			if err != nil {
				slog.Error("reminder creation failed", "address", user.Address, "err", err)
				return textDBError
			}
			c.sessions.Clear(user.Address)
			return reply
		}

		// A new user's reminder-shaped text that neither parser could
		// place becomes the pending message of a fresh guided flow; only
		// the time is still missing.
		if !experienced && !hasSession {
			c.sessions.Put(user.Address, session.Session{
				State:          session.AwaitingTime,
				PendingMessage: cleanMessage(text),
			})
			return textAskTime
		}
	}

	if hasSession {
		return c.guidedStep(ctx, user, sess, text)
	}
	return textDontKnow
}

func (c *Chat) createResolved(ctx context.Context, user *model.User, text string, res *Resolved) (string, error) {
	created, err := c.engine.CreateFromResolved(ctx, user.ID, text, res)
	if err != nil {
		return "", err
	}
	if created.Recurring != nil {
		return textRecurringSet(created.Recurring), nil
	}
	return textOneTimeSet(created.OneTime.Message, created.OneTime.FireAt.In(c.loc)), nil
}

// guidedStep advances the deterministic step-by-step flow.
func (c *Chat) guidedStep(ctx context.Context, user *model.User, sess session.Session, text string) string {
	switch sess.State {
	case session.AwaitingMessage:
		if text == "" {
			return textAskMessage
		}
		c.sessions.Put(user.Address, session.Session{
			State:          session.AwaitingTime,
			PendingMessage: text,
		})
		return textAskTime

	case session.AwaitingTime:
		hour, min, err := timeutil.ParseClock(text)
		if err != nil {
			// The one transition that keeps the session alive: re-prompt.
			return textBadTime
		}

		at := timeutil.NextToday(hour, min, c.now().In(c.loc))
		// The session ends here whether or not the save works; there is
		// no retry loop.
		c.sessions.Clear(user.Address)

		rem, err := c.engine.CreateOneTime(ctx, user.ID, sess.PendingMessage, at)
		if err != nil {
			slog.Error("guided reminder save failed", "address", user.Address, "err", err)
			return textSaveFailed
		}
		return textOneTimeSet(rem.Message, rem.FireAt.In(c.loc))
	}

	c.sessions.Clear(user.Address)
	return textDontKnow
}

func (c *Chat) snooze(ctx context.Context, user *model.User, d time.Duration) string {
	if user.LastReminderMessage == nil {
		return textNothingSnooze
	}

	at := c.now().In(c.loc).Add(d)
	if _, err := c.engine.CreateOneTime(ctx, user.ID, *user.LastReminderMessage, at); err != nil {
		slog.Error("snooze save failed", "address", user.Address, "err", err)
		return textDBError
	}
	return textSnoozed(at)
}

func (c *Chat) list(ctx context.Context, user *model.User) string {
	oneTime, err := c.reminders.ListOneTime(ctx, user.ID)
	if err != nil {
		slog.Error("list one-time failed", "address", user.Address, "err", err)
		return textDBError
	}
	recurring, err := c.reminders.ListRecurring(ctx, user.ID)
	if err != nil {
		slog.Error("list recurring failed", "address", user.Address, "err", err)
		return textDBError
	}
	sub, err := c.weather.Get(ctx, user.ID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		slog.Error("list subscription failed", "address", user.Address, "err", err)
		return textDBError
	}
	return textList(oneTime, recurring, sub, c.loc)
}

func (c *Chat) subscribeWeather(ctx context.Context, user *model.User, city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return textAskCity
	}

	sub, err := c.weather.Upsert(ctx, user.ID, city)
	if err != nil {
		slog.Error("weather subscribe failed", "address", user.Address, "err", err)
		return textDBError
	}
	return textWeatherOn(sub.City, c.weatherAt)
}

// subscribeWeatherBare reactivates a previously stored city when there is
// one, and prompts for a city otherwise.
func (c *Chat) subscribeWeatherBare(ctx context.Context, user *model.User) string {
	sub, err := c.weather.Get(ctx, user.ID)
	switch {
	case err == nil && sub.City != "":
		return c.subscribeWeather(ctx, user, sub.City)
	case err != nil && !errors.Is(err, model.ErrNotFound):
		slog.Error("weather lookup failed", "address", user.Address, "err", err)
		return textDBError
	}

	c.sessions.AwaitCity(user.Address)
	return textAskCity
}

func (c *Chat) cancelWeather(ctx context.Context, user *model.User) string {
	err := c.weather.Deactivate(ctx, user.ID)
	if errors.Is(err, model.ErrNotFound) {
		return textNoSubscription
	}
	if err != nil {
		slog.Error("weather cancel failed", "address", user.Address, "err", err)
		return textDBError
	}
	return textWeatherOff
}

func (c *Chat) cancelOneTime(ctx context.Context, user *model.User, seq int64) string {
	err := c.reminders.CancelOneTime(ctx, user.ID, seq)
	if errors.Is(err, model.ErrNotFound) {
		return textCancelNotFound(seq)
	}
	if err != nil {
		slog.Error("cancel one-time failed", "address", user.Address, "err", err)
		return textDBError
	}
	return textCancelled(seq)
}

func (c *Chat) cancelRecurring(ctx context.Context, user *model.User, seq int64) string {
	err := c.reminders.CancelRecurring(ctx, user.ID, seq)
	if errors.Is(err, model.ErrNotFound) {
		return textCancelNotFound(seq)
	}
	if err != nil {
		slog.Error("cancel recurring failed", "address", user.Address, "err", err)
		return textDBError
	}
	return textCancelled(seq)
}
