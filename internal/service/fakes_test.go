package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
	"github.com/LeventeLantos/chat-reminders/internal/repo"
)

var errBoom = errors.New("boom")

var (
	_ repo.UserRepository     = (*fakeUserRepo)(nil)
	_ repo.ReminderRepository = (*fakeReminderRepo)(nil)
	_ repo.WeatherRepository  = (*fakeWeatherRepo)(nil)
	_ Sender                  = (*fakeSender)(nil)
	_ IntentResolver          = (*fakeIntent)(nil)
	_ WeatherLookup           = (*fakeLookup)(nil)
)

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*model.User
	nextID int64
	fail   bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Upsert(_ context.Context, address, displayName string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, errBoom
	}
	u, ok := f.users[address]
	if !ok {
		f.nextID++
		u = &model.User{ID: f.nextID, Address: address, CreatedAt: time.Now()}
		f.users[address] = u
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByAddress(_ context.Context, address string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[address]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) addressOf(userID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	for addr, u := range f.users {
		if u.ID == userID {
			return addr
		}
	}
	return ""
}

type fakeReminderRepo struct {
	mu        sync.Mutex
	users     *fakeUserRepo
	oneTime   []model.OneTimeReminder
	recurring []model.RecurringReminder
	nextID    int64
	fail      bool
}

func newFakeReminderRepo(users *fakeUserRepo) *fakeReminderRepo {
	return &fakeReminderRepo{users: users}
}

func (f *fakeReminderRepo) bump(userID int64, message string) {
	if f.users == nil {
		return
	}
	f.users.mu.Lock()
	defer f.users.mu.Unlock()

	for _, u := range f.users.users {
		if u.ID == userID {
			u.ReminderCount++
			msg := message
			now := time.Now()
			u.LastReminderMessage = &msg
			u.LastReminderAt = &now
			return
		}
	}
}

func (f *fakeReminderRepo) CreateOneTime(_ context.Context, userID int64, message string, fireAt time.Time) (*model.OneTimeReminder, error) {
	f.mu.Lock()
	if f.fail {
		f.mu.Unlock()
		return nil, errBoom
	}

	f.nextID++
	var seq int64
	for _, r := range f.oneTime {
		if r.UserID == userID && r.Seq > seq {
			seq = r.Seq
		}
	}
	rem := model.OneTimeReminder{
		ID: f.nextID, UserID: userID, Seq: seq + 1,
		Message: message, FireAt: fireAt, CreatedAt: time.Now(),
	}
	f.oneTime = append(f.oneTime, rem)
	f.mu.Unlock()

	f.bump(userID, message)
	cp := rem
	return &cp, nil
}

func (f *fakeReminderRepo) CreateRecurring(_ context.Context, userID int64, message string, kind model.Recurrence, timeOfDay string, dayOfMonth int) (*model.RecurringReminder, error) {
	f.mu.Lock()
	if f.fail {
		f.mu.Unlock()
		return nil, errBoom
	}

	f.nextID++
	var seq int64
	for _, r := range f.recurring {
		if r.UserID == userID && r.Seq > seq {
			seq = r.Seq
		}
	}
	rem := model.RecurringReminder{
		ID: f.nextID, UserID: userID, Seq: seq + 1,
		Message: message, Kind: kind, TimeOfDay: timeOfDay,
		DayOfMonth: dayOfMonth, Active: true, CreatedAt: time.Now(),
	}
	f.recurring = append(f.recurring, rem)
	f.mu.Unlock()

	f.bump(userID, message)
	cp := rem
	return &cp, nil
}

func (f *fakeReminderRepo) ListOneTime(_ context.Context, userID int64) ([]model.OneTimeReminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.OneTimeReminder
	for _, r := range f.oneTime {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) ListRecurring(_ context.Context, userID int64) ([]model.RecurringReminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.RecurringReminder
	for _, r := range f.recurring {
		if r.UserID == userID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) CancelOneTime(_ context.Context, userID, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, r := range f.oneTime {
		if r.UserID == userID && r.Seq == seq {
			f.oneTime = append(f.oneTime[:i], f.oneTime[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *fakeReminderRepo) CancelRecurring(_ context.Context, userID, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, r := range f.recurring {
		if r.UserID == userID && r.Seq == seq && r.Active {
			f.recurring[i].Active = false
			return nil
		}
	}
	return model.ErrNotFound
}

func (f *fakeReminderRepo) DueOneTime(_ context.Context, now time.Time) ([]repo.DueOneTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, errBoom
	}
	var out []repo.DueOneTime
	for _, r := range f.oneTime {
		if !r.FireAt.After(now) {
			out = append(out, repo.DueOneTime{OneTimeReminder: r, Address: f.users.addressOf(r.UserID)})
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) DueRecurring(_ context.Context, timeOfDay string) ([]repo.DueRecurring, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, errBoom
	}
	var out []repo.DueRecurring
	for _, r := range f.recurring {
		if r.Active && r.TimeOfDay == timeOfDay {
			out = append(out, repo.DueRecurring{RecurringReminder: r, Address: f.users.addressOf(r.UserID)})
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) DeleteOneTime(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, r := range f.oneTime {
		if r.ID == id {
			f.oneTime = append(f.oneTime[:i], f.oneTime[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeReminderRepo) MarkRecurringTriggered(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, r := range f.recurring {
		if r.ID == id {
			t := at
			f.recurring[i].LastTriggeredAt = &t
			return nil
		}
	}
	return model.ErrNotFound
}

type fakeWeatherRepo struct {
	mu     sync.Mutex
	users  *fakeUserRepo
	subs   map[int64]*model.WeatherSubscription
	nextID int64
}

func newFakeWeatherRepo(users *fakeUserRepo) *fakeWeatherRepo {
	return &fakeWeatherRepo{users: users, subs: make(map[int64]*model.WeatherSubscription)}
}

func (f *fakeWeatherRepo) Get(_ context.Context, userID int64) (*model.WeatherSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.subs[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeWeatherRepo) Upsert(_ context.Context, userID int64, city string) (*model.WeatherSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.subs[userID]
	if !ok {
		f.nextID++
		s = &model.WeatherSubscription{ID: f.nextID, UserID: userID}
		f.subs[userID] = s
	}
	s.City = city
	s.Active = true
	cp := *s
	return &cp, nil
}

func (f *fakeWeatherRepo) Deactivate(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.subs[userID]
	if !ok || !s.Active {
		return model.ErrNotFound
	}
	s.Active = false
	return nil
}

func (f *fakeWeatherRepo) Active(_ context.Context) ([]repo.DueSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []repo.DueSubscription
	for _, s := range f.subs {
		if s.Active {
			out = append(out, repo.DueSubscription{WeatherSubscription: *s, Address: f.users.addressOf(s.UserID)})
		}
	}
	return out, nil
}

func (f *fakeWeatherRepo) MarkSent(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.subs {
		if s.ID == id {
			t := at
			s.LastSentAt = &t
			return nil
		}
	}
	return model.ErrNotFound
}

type sentMessage struct {
	To   string
	Body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (f *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return "", errBoom
	}
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return "msg-id", nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeIntent struct {
	intent *model.Intent
	err    error
}

func (f *fakeIntent) Resolve(context.Context, string, time.Time, string) (*model.Intent, error) {
	return f.intent, f.err
}

type fakeLookup struct {
	cond *model.Conditions
	err  error
}

func (f *fakeLookup) Lookup(context.Context, string) (*model.Conditions, error) {
	return f.cond, f.err
}
