package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
)

// IntentClient calls the external intent-resolution service that turns free
// text into a structured create-reminder intent with a confidence score.
type IntentClient struct {
	url    string
	client *http.Client
}

func NewIntentClient(url string) *IntentClient {
	return &IntentClient{
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type intentRequest struct {
	Text     string `json:"text"`
	Now      string `json:"now"`
	Timezone string `json:"timezone"`
}

type intentResponse struct {
	Intent          string  `json:"intent"`
	ReminderMessage string  `json:"reminderMessage"`
	DatetimeISO     string  `json:"datetimeISO"`
	Confidence      float64 `json:"confidence"`
}

// Resolve asks the service to parse text given the current time and timezone.
// A "no intent" answer comes back as (nil, nil); malformed or failed responses
// come back as errors, which callers treat the same as no intent.
func (c *IntentClient) Resolve(ctx context.Context, text string, now time.Time, tz string) (*model.Intent, error) {
	if c.url == "" {
		return nil, nil
	}

	reqBody, err := json.Marshal(intentRequest{
		Text:     text,
		Now:      now.Format(time.RFC3339),
		Timezone: tz,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var ir *intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	// A JSON null body means the service saw no reminder intent.
	if ir == nil {
		return nil, nil
	}

	out := &model.Intent{
		Intent:     ir.Intent,
		Message:    ir.ReminderMessage,
		Confidence: ir.Confidence,
	}
	if ir.DatetimeISO != "" {
		dt, err := time.Parse(time.RFC3339, ir.DatetimeISO)
		if err != nil {
			return nil, fmt.Errorf("bad datetimeISO %q: %w", ir.DatetimeISO, err)
		}
		out.Datetime = dt
	}
	return out, nil
}
