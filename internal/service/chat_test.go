package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
	"github.com/LeventeLantos/chat-reminders/internal/session"
)

type chatFixture struct {
	chat      *Chat
	users     *fakeUserRepo
	reminders *fakeReminderRepo
	weather   *fakeWeatherRepo
	sessions  *session.Store
}

func newChatFixture(t *testing.T, intent IntentResolver) *chatFixture {
	t.Helper()

	users := newFakeUserRepo()
	reminders := newFakeReminderRepo(users)
	weather := newFakeWeatherRepo(users)
	sessions := session.NewStore(testNow, 30*time.Minute)

	engine := NewReminders(reminders, intent, testLoc, 0.6)
	engine.now = testNow

	chat := NewChat(users, reminders, weather, engine, &fakeLookup{}, sessions, testLoc, "09:00")
	chat.now = testNow

	return &chatFixture{
		chat:      chat,
		users:     users,
		reminders: reminders,
		weather:   weather,
		sessions:  sessions,
	}
}

func (f *chatFixture) send(t *testing.T, addr, body string) string {
	t.Helper()
	return f.chat.HandleInbound(context.Background(), Inbound{From: addr, Body: body})
}

func TestGuidedFlowRoundTrip(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	if got := f.send(t, "chat:1", "hi"); !strings.Contains(got, textAskMessage) {
		t.Fatalf("greeting reply = %q", got)
	}
	if got := f.send(t, "chat:1", "take out the trash"); got != textAskTime {
		t.Fatalf("message step reply = %q", got)
	}
	// An unparseable time re-prompts without losing the pending message.
	if got := f.send(t, "chat:1", "half past six"); got != textBadTime {
		t.Fatalf("bad time reply = %q", got)
	}
	got := f.send(t, "chat:1", "6:30 pm")
	if !strings.Contains(got, "take out the trash") {
		t.Fatalf("confirmation = %q", got)
	}

	rems, _ := f.reminders.ListOneTime(context.Background(), 1)
	if len(rems) != 1 {
		t.Fatalf("stored reminders = %d, want 1", len(rems))
	}
	want := time.Date(2025, 6, 10, 18, 30, 0, 0, testLoc)
	if !rems[0].FireAt.Equal(want) {
		t.Errorf("fireAt = %v, want %v", rems[0].FireAt, want)
	}

	// Session is gone: the same time text no longer means anything.
	if got := f.send(t, "chat:1", "6:30 pm"); got != textDontKnow {
		t.Errorf("post-flow reply = %q", got)
	}
}

func TestGuidedFlowEarlyTimeRollsToTomorrow(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	f.send(t, "chat:1", "hello")
	f.send(t, "chat:1", "morning run")
	f.send(t, "chat:1", "7:00")

	rems, _ := f.reminders.ListOneTime(context.Background(), 1)
	if len(rems) != 1 {
		t.Fatalf("stored reminders = %d, want 1", len(rems))
	}
	want := time.Date(2025, 6, 11, 7, 0, 0, 0, testLoc)
	if !rems[0].FireAt.Equal(want) {
		t.Errorf("fireAt = %v, want %v", rems[0].FireAt, want)
	}
}

func TestNLPPathForNewUser(t *testing.T) {
	at := testNow().Add(30 * time.Minute)
	intent := &fakeIntent{intent: &model.Intent{
		Intent: "create_reminder", Message: "call mom", Datetime: at, Confidence: 0.92,
	}}
	f := newChatFixture(t, intent)

	got := f.send(t, "chat:1", "remind me to call mom in 30 minutes")
	if !strings.Contains(got, "call mom") {
		t.Fatalf("reply = %q", got)
	}

	u, _ := f.users.GetByAddress(context.Background(), "chat:1")
	if u.ReminderCount != 1 {
		t.Errorf("reminder count = %d, want 1", u.ReminderCount)
	}
	if u.LastReminderMessage == nil || *u.LastReminderMessage != "call mom" {
		t.Errorf("last reminder message = %v", u.LastReminderMessage)
	}
}

func TestNLPParseSupersedesOpenSession(t *testing.T) {
	at := testNow().Add(time.Hour)
	intent := &fakeIntent{intent: &model.Intent{
		Intent: "create_reminder", Message: "pay bill", Datetime: at, Confidence: 0.9,
	}}
	f := newChatFixture(t, intent)

	// Make the user experienced, then open a guided session.
	f.send(t, "chat:1", "remind me to pay bill in 1 hour")
	f.send(t, "chat:1", "hi")

	got := f.send(t, "chat:1", "remind me to pay bill in 1 hour")
	if !strings.Contains(got, "pay bill") {
		t.Fatalf("reply = %q", got)
	}
	// The parse cleared the session: free text falls through to don't-know.
	if got := f.send(t, "chat:1", "something else entirely"); got != textDontKnow {
		t.Errorf("post-parse reply = %q", got)
	}
}

func TestNewUserReminderShapedTextOpensGuidedFlow(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	// Neither the intent service nor the relative parser can place this,
	// so the text becomes the pending message and only the time is asked.
	got := f.send(t, "chat:9", "remind me to water the plants tomorrow evening")
	if got != textAskTime {
		t.Fatalf("reply = %q, want %q", got, textAskTime)
	}

	got = f.send(t, "chat:9", "6:30 pm")
	if !strings.Contains(got, "water the plants tomorrow evening") {
		t.Fatalf("confirmation = %q", got)
	}

	rems, _ := f.reminders.ListOneTime(context.Background(), 1)
	if len(rems) != 1 || rems[0].Message != "water the plants tomorrow evening" {
		t.Fatalf("stored reminders = %+v", rems)
	}
	want := time.Date(2025, 6, 10, 18, 30, 0, 0, testLoc)
	if !rems[0].FireAt.Equal(want) {
		t.Errorf("fireAt = %v, want %v", rems[0].FireAt, want)
	}
}

func TestExperiencedUserFailedParseDoesNotOpenSession(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	f.send(t, "chat:1", "hi")
	f.send(t, "chat:1", "stretch")
	f.send(t, "chat:1", "18:00")

	if got := f.send(t, "chat:1", "remind me about the thing sometime"); got != textDontKnow {
		t.Fatalf("reply = %q, want %q", got, textDontKnow)
	}
	// No session was opened: a time string on its own means nothing.
	if got := f.send(t, "chat:1", "6:30 pm"); got != textDontKnow {
		t.Errorf("follow-up reply = %q, want %q", got, textDontKnow)
	}
}

func TestNewUserUnknownText(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	if got := f.send(t, "chat:1", "what's the meaning of life"); got != textDontKnow {
		t.Errorf("reply = %q", got)
	}
}

func TestSnoozeWithoutHistory(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	if got := f.send(t, "chat:1", "snooze 10 minutes"); got != textNothingSnooze {
		t.Errorf("reply = %q", got)
	}
}

func TestSnoozeResendsLastReminder(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	f.send(t, "chat:1", "hi")
	f.send(t, "chat:1", "stretch")
	f.send(t, "chat:1", "18:00")

	got := f.send(t, "chat:1", "snooze 15 minutes")
	if !strings.Contains(got, "Snoozed") {
		t.Fatalf("reply = %q", got)
	}

	rems, _ := f.reminders.ListOneTime(context.Background(), 1)
	if len(rems) != 2 {
		t.Fatalf("stored reminders = %d, want 2", len(rems))
	}
	snoozed := rems[1]
	if snoozed.Message != "stretch" {
		t.Errorf("snoozed message = %q", snoozed.Message)
	}
	if want := testNow().Add(15 * time.Minute); !snoozed.FireAt.Equal(want) {
		t.Errorf("fireAt = %v, want %v", snoozed.FireAt, want)
	}
}

func TestSnoozeMissingDuration(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	if got := f.send(t, "chat:1", "snooze"); got != textSnoozeHowTo {
		t.Errorf("reply = %q", got)
	}
}

func TestCancelIsScopedToUser(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	f.send(t, "chat:1", "hi")
	f.send(t, "chat:1", "water plants")
	f.send(t, "chat:1", "18:00")

	// A different user cannot cancel chat:1's reminder #1.
	if got := f.send(t, "chat:2", "cancel 1"); got != textCancelNotFound(1) {
		t.Errorf("cross-user cancel reply = %q", got)
	}
	if got := f.send(t, "chat:1", "cancel 1"); got != textCancelled(1) {
		t.Errorf("owner cancel reply = %q", got)
	}
	if got := f.send(t, "chat:1", "cancel 1"); got != textCancelNotFound(1) {
		t.Errorf("repeat cancel reply = %q", got)
	}
}

func TestWeatherSubscribeCancelResubscribe(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	got := f.send(t, "chat:1", "subscribe weather Mumbai")
	if !strings.Contains(got, "Mumbai") {
		t.Fatalf("subscribe reply = %q", got)
	}
	if got := f.send(t, "chat:1", "unsubscribe weather"); got != textWeatherOff {
		t.Fatalf("cancel reply = %q", got)
	}
	if got := f.send(t, "chat:1", "unsubscribe weather"); got != textNoSubscription {
		t.Fatalf("repeat cancel reply = %q", got)
	}

	// A bare subscribe reuses the stored city.
	got = f.send(t, "chat:1", "subscribe weather")
	if !strings.Contains(got, "Mumbai") {
		t.Fatalf("bare resubscribe reply = %q", got)
	}
	sub, err := f.weather.Get(context.Background(), 1)
	if err != nil || !sub.Active {
		t.Errorf("subscription after resubscribe = %+v, err = %v", sub, err)
	}
}

func TestWeatherBareSubscribePromptsForCity(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	if got := f.send(t, "chat:1", "subscribe weather"); got != textAskCity {
		t.Fatalf("bare subscribe reply = %q", got)
	}
	// The next message is consumed as the city, whatever it looks like.
	got := f.send(t, "chat:1", "Pune")
	if !strings.Contains(got, "Pune") {
		t.Fatalf("city reply = %q", got)
	}
	sub, err := f.weather.Get(context.Background(), 1)
	if err != nil || sub.City != "Pune" {
		t.Errorf("stored subscription = %+v, err = %v", sub, err)
	}
}

func TestListShowsEverything(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	f.send(t, "chat:1", "hi")
	f.send(t, "chat:1", "water plants")
	f.send(t, "chat:1", "18:00")
	f.send(t, "chat:1", "subscribe weather Delhi")

	got := f.send(t, "chat:1", "list")
	for _, want := range []string{"water plants", "Delhi", "#1"} {
		if !strings.Contains(got, want) {
			t.Errorf("list reply missing %q:\n%s", want, got)
		}
	}
}

func TestGreetingResetsSession(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})

	f.send(t, "chat:1", "hi")
	f.send(t, "chat:1", "water plants")
	// A fresh greeting discards the pending message.
	f.send(t, "chat:1", "hello")
	if got := f.send(t, "chat:1", "feed the cat"); got != textAskTime {
		t.Fatalf("reply = %q", got)
	}
	f.send(t, "chat:1", "20:00")

	rems, _ := f.reminders.ListOneTime(context.Background(), 1)
	if len(rems) != 1 || rems[0].Message != "feed the cat" {
		t.Errorf("stored reminders = %+v", rems)
	}
}

func TestUpsertFailureReturnsDBError(t *testing.T) {
	f := newChatFixture(t, &fakeIntent{})
	f.users.fail = true

	if got := f.send(t, "chat:1", "hi"); got != textDBError {
		t.Errorf("reply = %q", got)
	}
}
