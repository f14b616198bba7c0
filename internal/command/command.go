package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	Unclassified Kind = iota
	Snooze
	SnoozeInvalid
	WeatherSubscribe
	WeatherSubscribeBare
	WeatherCancel
	CancelRecurring
	CancelOneTime
	Help
	List
	Greeting
)

// Command is the classification of one inbound message.
type Command struct {
	Kind Kind

	// City is set for WeatherSubscribe, preserving the sender's casing.
	City string
	// CancelID is set for CancelOneTime and CancelRecurring.
	CancelID int64
	// SnoozeFor is set for Snooze.
	SnoozeFor time.Duration
	// LooksLikeReminder is set on Unclassified results when the text mentions
	// reminding, and gates whether the NLP path is attempted downstream.
	LooksLikeReminder bool
}

// snoozeUnits maps accepted duration-unit spellings to their base duration.
var snoozeUnits = map[string]time.Duration{
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour,
	"hour": time.Hour, "hours": time.Hour,
}

var (
	reSubscribeCity   = regexp.MustCompile(`(?i)^subscribe weather\s+(\S.*)$`)
	reCancelRecurring = regexp.MustCompile(`^cancel recurring (\d+)$`)
	reCancelOneTime   = regexp.MustCompile(`^cancel (\d+)$`)
)

// matcher inspects the trimmed original text and its lowercase form.
// Returning ok=false passes the message to the next matcher in the table.
type matcher func(text, lower string) (Command, bool)

// matchers is the precedence table: evaluated top to bottom, first match wins.
// The open-weather-city session check sits above classification entirely and
// is handled at the routing layer, not here.
var matchers = []matcher{
	matchSnooze,
	matchSubscribeCity,
	matchSubscribeBare,
	matchWeatherCancel,
	matchCancelRecurring,
	matchCancelOneTime,
	matchHelp,
	matchList,
	matchGreeting,
}

// Classify matches text against the command table. Text is trimmed before
// matching; anything unmatched comes back as Unclassified with the
// LooksLikeReminder hint filled in.
func Classify(text string) Command {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	for _, m := range matchers {
		if cmd, ok := m(text, lower); ok {
			return cmd
		}
	}
	return Command{
		Kind:              Unclassified,
		LooksLikeReminder: strings.Contains(lower, "remind"),
	}
}

func matchSnooze(_, lower string) (Command, bool) {
	fields := strings.Fields(lower)
	if len(fields) == 0 || fields[0] != "snooze" {
		return Command{}, false
	}
	// "snooze" is claimed even when malformed; the reply corrects the format.
	if len(fields) != 3 {
		return Command{Kind: SnoozeInvalid}, true
	}
	amount, err := strconv.Atoi(fields[1])
	if err != nil || amount <= 0 {
		return Command{Kind: SnoozeInvalid}, true
	}
	unit, ok := snoozeUnits[fields[2]]
	if !ok {
		return Command{Kind: SnoozeInvalid}, true
	}
	return Command{Kind: Snooze, SnoozeFor: time.Duration(amount) * unit}, true
}

func matchSubscribeCity(text, _ string) (Command, bool) {
	m := reSubscribeCity.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	return Command{Kind: WeatherSubscribe, City: strings.TrimSpace(m[1])}, true
}

func matchSubscribeBare(_, lower string) (Command, bool) {
	if lower != "subscribe weather" {
		return Command{}, false
	}
	return Command{Kind: WeatherSubscribeBare}, true
}

func matchWeatherCancel(_, lower string) (Command, bool) {
	if lower != "cancel weather" && lower != "unsubscribe weather" {
		return Command{}, false
	}
	return Command{Kind: WeatherCancel}, true
}

func matchCancelRecurring(_, lower string) (Command, bool) {
	m := reCancelRecurring.FindStringSubmatch(lower)
	if m == nil {
		return Command{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Command{}, false
	}
	return Command{Kind: CancelRecurring, CancelID: id}, true
}

func matchCancelOneTime(_, lower string) (Command, bool) {
	m := reCancelOneTime.FindStringSubmatch(lower)
	if m == nil {
		return Command{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Command{}, false
	}
	return Command{Kind: CancelOneTime, CancelID: id}, true
}

func matchHelp(_, lower string) (Command, bool) {
	if lower != "help" && lower != "menu" {
		return Command{}, false
	}
	return Command{Kind: Help}, true
}

func matchList(_, lower string) (Command, bool) {
	if lower != "list" && lower != "list reminders" {
		return Command{}, false
	}
	return Command{Kind: List}, true
}

func matchGreeting(_, lower string) (Command, bool) {
	switch lower {
	case "hi", "hello", "hey":
		return Command{Kind: Greeting}, true
	}
	return Command{}, false
}
