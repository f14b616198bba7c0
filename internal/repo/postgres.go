package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "embed"

	"github.com/LeventeLantos/chat-reminders/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the schema in a single transaction.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply schema: %w", err)
	}
	return tx.Commit()
}

type PostgresUserRepo struct {
	db *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

type PostgresReminderRepo struct {
	db *sql.DB
}

func NewPostgresReminderRepo(db *sql.DB) *PostgresReminderRepo {
	return &PostgresReminderRepo{db: db}
}

type PostgresWeatherRepo struct {
	db *sql.DB
}

func NewPostgresWeatherRepo(db *sql.DB) *PostgresWeatherRepo {
	return &PostgresWeatherRepo{db: db}
}

const userColumns = `id, address, display_name, reminder_count,
       last_reminder_message, last_reminder_at, created_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u       model.User
		lastMsg sql.NullString
		lastAt  sql.NullTime
	)
	if err := row.Scan(
		&u.ID, &u.Address, &u.DisplayName, &u.ReminderCount,
		&lastMsg, &lastAt, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	if lastMsg.Valid {
		s := lastMsg.String
		u.LastReminderMessage = &s
	}
	if lastAt.Valid {
		t := lastAt.Time
		u.LastReminderAt = &t
	}
	return &u, nil
}

func (r *PostgresUserRepo) Upsert(ctx context.Context, address, displayName string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (address, display_name)
		VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE
		SET display_name = CASE
			WHEN EXCLUDED.display_name <> '' THEN EXCLUDED.display_name
			ELSE users.display_name
		END
		RETURNING `+userColumns,
		address, displayName,
	)
	return scanUser(row)
}

func (r *PostgresUserRepo) GetByAddress(ctx context.Context, address string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE address = $1`,
		address,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return u, err
}

func (r *PostgresReminderRepo) CreateOneTime(ctx context.Context, userID int64, message string, fireAt time.Time) (*model.OneTimeReminder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rem := &model.OneTimeReminder{
		UserID:  userID,
		Message: message,
		FireAt:  fireAt,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO one_time_reminders (user_id, seq, message, fire_at)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM one_time_reminders WHERE user_id = $1),
			$2, $3
		)
		RETURNING id, seq, created_at`,
		userID, message, fireAt,
	).Scan(&rem.ID, &rem.Seq, &rem.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := bumpReminderCount(ctx, tx, userID, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rem, nil
}

func (r *PostgresReminderRepo) CreateRecurring(ctx context.Context, userID int64, message string, kind model.Recurrence, timeOfDay string, dayOfMonth int) (*model.RecurringReminder, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var dom sql.NullInt64
	if kind == model.Monthly {
		dom = sql.NullInt64{Int64: int64(dayOfMonth), Valid: true}
	}

	rem := &model.RecurringReminder{
		UserID:     userID,
		Message:    message,
		Kind:       kind,
		TimeOfDay:  timeOfDay,
		DayOfMonth: dayOfMonth,
		Active:     true,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO recurring_reminders (user_id, seq, message, kind, time_of_day, day_of_month)
		VALUES (
			$1,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM recurring_reminders WHERE user_id = $1),
			$2, $3, $4, $5
		)
		RETURNING id, seq, created_at`,
		userID, message, string(kind), timeOfDay, dom,
	).Scan(&rem.ID, &rem.Seq, &rem.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := bumpReminderCount(ctx, tx, userID, message); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rem, nil
}

// bumpReminderCount increments the usage counter and refreshes the
// last-reminder snapshot within the caller's transaction.
func bumpReminderCount(ctx context.Context, tx *sql.Tx, userID int64, message string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET reminder_count = reminder_count + 1,
		    last_reminder_message = $2,
		    last_reminder_at = now()
		WHERE id = $1`,
		userID, message,
	)
	return err
}

func (r *PostgresReminderRepo) ListOneTime(ctx context.Context, userID int64) ([]model.OneTimeReminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, seq, message, fire_at, created_at
		FROM one_time_reminders
		WHERE user_id = $1
		ORDER BY fire_at ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.OneTimeReminder
	for rows.Next() {
		var rem model.OneTimeReminder
		if err := rows.Scan(&rem.ID, &rem.UserID, &rem.Seq, &rem.Message, &rem.FireAt, &rem.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

func (r *PostgresReminderRepo) ListRecurring(ctx context.Context, userID int64) ([]model.RecurringReminder, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, seq, message, kind, time_of_day, day_of_month, active, last_triggered_at, created_at
		FROM recurring_reminders
		WHERE user_id = $1 AND active
		ORDER BY seq ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RecurringReminder
	for rows.Next() {
		rem, err := scanRecurring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

func scanRecurring(rows *sql.Rows) (model.RecurringReminder, error) {
	var (
		rem  model.RecurringReminder
		kind string
		dom  sql.NullInt64
		last sql.NullTime
	)
	if err := rows.Scan(
		&rem.ID, &rem.UserID, &rem.Seq, &rem.Message, &kind,
		&rem.TimeOfDay, &dom, &rem.Active, &last, &rem.CreatedAt,
	); err != nil {
		return rem, err
	}
	rem.Kind = model.Recurrence(kind)
	if dom.Valid {
		rem.DayOfMonth = int(dom.Int64)
	}
	if last.Valid {
		t := last.Time
		rem.LastTriggeredAt = &t
	}
	return rem, nil
}

func (r *PostgresReminderRepo) CancelOneTime(ctx context.Context, userID, seq int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM one_time_reminders
		WHERE user_id = $1 AND seq = $2`,
		userID, seq,
	)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

func (r *PostgresReminderRepo) CancelRecurring(ctx context.Context, userID, seq int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_reminders
		SET active = FALSE
		WHERE user_id = $1 AND seq = $2 AND active`,
		userID, seq,
	)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

func (r *PostgresReminderRepo) DueOneTime(ctx context.Context, now time.Time) ([]DueOneTime, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.seq, r.message, r.fire_at, r.created_at, u.address
		FROM one_time_reminders r
		JOIN users u ON u.id = r.user_id
		WHERE r.fire_at <= $1
		ORDER BY r.fire_at ASC`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueOneTime
	for rows.Next() {
		var d DueOneTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.Seq, &d.Message, &d.FireAt, &d.CreatedAt, &d.Address); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresReminderRepo) DueRecurring(ctx context.Context, timeOfDay string) ([]DueRecurring, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.user_id, r.seq, r.message, r.kind, r.time_of_day,
		       r.day_of_month, r.active, r.last_triggered_at, r.created_at,
		       u.address
		FROM recurring_reminders r
		JOIN users u ON u.id = r.user_id
		WHERE r.active AND r.time_of_day = $1`,
		timeOfDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueRecurring
	for rows.Next() {
		var (
			d    DueRecurring
			kind string
			dom  sql.NullInt64
			last sql.NullTime
		)
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.Seq, &d.Message, &kind, &d.TimeOfDay,
			&dom, &d.Active, &last, &d.CreatedAt, &d.Address,
		); err != nil {
			return nil, err
		}
		d.Kind = model.Recurrence(kind)
		if dom.Valid {
			d.DayOfMonth = int(dom.Int64)
		}
		if last.Valid {
			t := last.Time
			d.LastTriggeredAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresReminderRepo) DeleteOneTime(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM one_time_reminders
		WHERE id = $1`,
		id,
	)
	return err
}

func (r *PostgresReminderRepo) MarkRecurringTriggered(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recurring_reminders
		SET last_triggered_at = $2
		WHERE id = $1`,
		id, at,
	)
	return err
}

func (r *PostgresWeatherRepo) Get(ctx context.Context, userID int64) (*model.WeatherSubscription, error) {
	var (
		sub  model.WeatherSubscription
		last sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, city, active, last_sent_at
		FROM weather_subscriptions
		WHERE user_id = $1`,
		userID,
	).Scan(&sub.ID, &sub.UserID, &sub.City, &sub.Active, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		sub.LastSentAt = &t
	}
	return &sub, nil
}

func (r *PostgresWeatherRepo) Upsert(ctx context.Context, userID int64, city string) (*model.WeatherSubscription, error) {
	var (
		sub  model.WeatherSubscription
		last sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO weather_subscriptions (user_id, city)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET city = EXCLUDED.city, active = TRUE
		RETURNING id, user_id, city, active, last_sent_at`,
		userID, city,
	).Scan(&sub.ID, &sub.UserID, &sub.City, &sub.Active, &last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		t := last.Time
		sub.LastSentAt = &t
	}
	return &sub, nil
}

func (r *PostgresWeatherRepo) Deactivate(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE weather_subscriptions
		SET active = FALSE
		WHERE user_id = $1 AND active`,
		userID,
	)
	if err != nil {
		return err
	}
	return notFoundIfZero(res)
}

func (r *PostgresWeatherRepo) Active(ctx context.Context) ([]DueSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.user_id, s.city, s.active, s.last_sent_at, u.address
		FROM weather_subscriptions s
		JOIN users u ON u.id = s.user_id
		WHERE s.active`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueSubscription
	for rows.Next() {
		var (
			d    DueSubscription
			last sql.NullTime
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.City, &d.Active, &last, &d.Address); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			d.LastSentAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresWeatherRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE weather_subscriptions
		SET last_sent_at = $2
		WHERE id = $1`,
		id, at,
	)
	return err
}

func notFoundIfZero(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
