package repo

import (
	"context"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
)

// DueOneTime is a one-time reminder joined with its owner's channel address,
// as the dispatcher needs it.
type DueOneTime struct {
	model.OneTimeReminder
	Address string
}

// DueRecurring is an active recurring reminder joined with its owner's
// channel address.
type DueRecurring struct {
	model.RecurringReminder
	Address string
}

// DueSubscription is an active weather subscription joined with its owner's
// channel address.
type DueSubscription struct {
	model.WeatherSubscription
	Address string
}

type UserRepository interface {
	// Upsert creates the user on first contact and refreshes the display
	// name on every later one.
	Upsert(ctx context.Context, address, displayName string) (*model.User, error)
	GetByAddress(ctx context.Context, address string) (*model.User, error)
}

type ReminderRepository interface {
	// CreateOneTime inserts the reminder and bumps the owner's reminder
	// count and last-reminder snapshot in one transaction.
	CreateOneTime(ctx context.Context, userID int64, message string, fireAt time.Time) (*model.OneTimeReminder, error)
	// CreateRecurring has the same transactional contract as CreateOneTime.
	CreateRecurring(ctx context.Context, userID int64, message string, kind model.Recurrence, timeOfDay string, dayOfMonth int) (*model.RecurringReminder, error)

	ListOneTime(ctx context.Context, userID int64) ([]model.OneTimeReminder, error)
	ListRecurring(ctx context.Context, userID int64) ([]model.RecurringReminder, error)

	// CancelOneTime deletes the caller's reminder by per-user id. Returns
	// model.ErrNotFound when no such reminder is owned by userID, including
	// when the scheduler already consumed it.
	CancelOneTime(ctx context.Context, userID, seq int64) error
	// CancelRecurring soft-deletes via active=false.
	CancelRecurring(ctx context.Context, userID, seq int64) error

	DueOneTime(ctx context.Context, now time.Time) ([]DueOneTime, error)
	DueRecurring(ctx context.Context, timeOfDay string) ([]DueRecurring, error)

	DeleteOneTime(ctx context.Context, id int64) error
	MarkRecurringTriggered(ctx context.Context, id int64, at time.Time) error
}

type WeatherRepository interface {
	// Get returns the user's subscription, active or not, or
	// model.ErrNotFound.
	Get(ctx context.Context, userID int64) (*model.WeatherSubscription, error)
	// Upsert creates the subscription or updates its city and reactivates
	// it; at most one row per user.
	Upsert(ctx context.Context, userID int64, city string) (*model.WeatherSubscription, error)
	// Deactivate returns model.ErrNotFound when no active subscription
	// exists.
	Deactivate(ctx context.Context, userID int64) error

	Active(ctx context.Context) ([]DueSubscription, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
}
