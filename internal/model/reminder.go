package model

import "time"

// User is identified by its stable channel address (phone-style identifier).
// ReminderCount grows by one on every successful reminder creation and is used
// to tell first-time users apart from experienced ones.
type User struct {
	ID                  int64
	Address             string
	DisplayName         string
	ReminderCount       int
	LastReminderMessage *string
	LastReminderAt      *time.Time
	CreatedAt           time.Time
}

// OneTimeReminder fires once and is removed right after the delivery attempt.
// Seq is the per-user id users see in "list" and "cancel <id>".
type OneTimeReminder struct {
	ID        int64
	UserID    int64
	Seq       int64
	Message   string
	FireAt    time.Time
	CreatedAt time.Time
}

type Recurrence string

const (
	Daily   Recurrence = "daily"
	Monthly Recurrence = "monthly"
)

// RecurringReminder repeats daily or monthly at TimeOfDay (server wall clock,
// "15:04"). DayOfMonth is set iff Kind is Monthly. LastTriggeredAt guards
// against firing twice within the same day (daily) or month (monthly).
type RecurringReminder struct {
	ID              int64
	UserID          int64
	Seq             int64
	Message         string
	Kind            Recurrence
	TimeOfDay       string
	DayOfMonth      int
	Active          bool
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

// WeatherSubscription is at most one per user. Subscribing again updates the
// city and reactivates the existing row.
type WeatherSubscription struct {
	ID         int64
	UserID     int64
	City       string
	Active     bool
	LastSentAt *time.Time
}

// Intent is the structured result of the intent-resolution collaborator.
type Intent struct {
	Intent     string
	Message    string
	Datetime   time.Time
	Confidence float64
}

// Conditions is the result of a weather lookup for a city.
type Conditions struct {
	TempC       float64
	FeelsLikeC  float64
	Description string
	Humidity    int
}
