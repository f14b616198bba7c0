package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
)

const (
	textAskMessage = "What should I remind you about?"
	textAskTime    = "What time should I remind you? (e.g. 18:30 or 6:30 pm)"
	textBadTime    = "I couldn't read that time. Try formats like 18:30 or 6:30 pm."
	textSaveFailed = "I understood the time, but could not save your reminder. Please try again."
	textDBError    = "Something went wrong with the database. Please try again later."
	textDontKnow   = "I didn't understand that. Send \"help\" to see what I can do."

	textSnoozeHowTo   = "To snooze your last reminder, say something like: snooze 10 minutes"
	textNothingSnooze = "There's nothing to snooze yet - set a reminder first."

	textAskCity        = "Which city? Send just the city name."
	textWeatherOff     = "Weather updates cancelled. Send \"subscribe weather <city>\" to start again."
	textNoSubscription = "You don't have a weather subscription to cancel."

	textHelp = "Here's what I can do:\n" +
		"- Just tell me: \"remind me to call mom at 5pm\"\n" +
		"- hi - set a reminder step by step\n" +
		"- list - show your reminders\n" +
		"- cancel <id> / cancel recurring <id>\n" +
		"- snooze <amount> <minutes|hours>\n" +
		"- subscribe weather <city> / cancel weather"
)

const stampLayout = "Mon, 2 Jan at 3:04 PM"

func textGreeting(displayName string) string {
	if displayName == "" {
		return "Hi! " + textAskMessage
	}
	return fmt.Sprintf("Hi %s! %s", displayName, textAskMessage)
}

func textOneTimeSet(message string, at time.Time) string {
	return fmt.Sprintf("Got it! I'll remind you to %q on %s.", message, at.Format(stampLayout))
}

func textRecurringSet(rem *model.RecurringReminder) string {
	if rem.Kind == model.Monthly {
		return fmt.Sprintf("Got it! I'll remind you to %q on day %d of every month at %s.",
			rem.Message, rem.DayOfMonth, rem.TimeOfDay)
	}
	return fmt.Sprintf("Got it! I'll remind you to %q every day at %s.", rem.Message, rem.TimeOfDay)
}

func textSnoozed(at time.Time) string {
	return fmt.Sprintf("Snoozed. I'll remind you again at %s.", at.Format(stampLayout))
}

func textWeatherOn(city, sendTime string) string {
	return fmt.Sprintf("You're subscribed to daily weather updates for %s at %s.", city, sendTime)
}

func textCancelled(seq int64) string {
	return fmt.Sprintf("Cancelled reminder #%d.", seq)
}

func textCancelNotFound(seq int64) string {
	return fmt.Sprintf("I couldn't find reminder #%d.", seq)
}

func textList(oneTime []model.OneTimeReminder, recurring []model.RecurringReminder, sub *model.WeatherSubscription, loc *time.Location) string {
	var b strings.Builder

	if len(oneTime) == 0 && len(recurring) == 0 && (sub == nil || !sub.Active) {
		return "You have no reminders. Just tell me what to remind you about!"
	}

	if len(oneTime) > 0 {
		b.WriteString("Reminders:\n")
		for _, r := range oneTime {
			fmt.Fprintf(&b, "#%d %s - %s\n", r.Seq, r.Message, r.FireAt.In(loc).Format(stampLayout))
		}
	}
	if len(recurring) > 0 {
		b.WriteString("Recurring:\n")
		for _, r := range recurring {
			if r.Kind == model.Monthly {
				fmt.Fprintf(&b, "#%d %s - day %d monthly at %s\n", r.Seq, r.Message, r.DayOfMonth, r.TimeOfDay)
			} else {
				fmt.Fprintf(&b, "#%d %s - daily at %s\n", r.Seq, r.Message, r.TimeOfDay)
			}
		}
	}
	if sub != nil && sub.Active {
		fmt.Fprintf(&b, "Weather: daily updates for %s\n", sub.City)
	}
	return strings.TrimRight(b.String(), "\n")
}

func weatherSummary(city string, c *model.Conditions) string {
	return fmt.Sprintf("%s: %s, %.0f°C (feels like %.0f°C), humidity %d%%",
		city, c.Description, c.TempC, c.FeelsLikeC, c.Humidity)
}
