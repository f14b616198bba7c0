package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/LeventeLantos/chat-reminders/internal/model"
)

// WeatherClient fetches current conditions for a city from the external
// weather service (OpenWeather-compatible response shape, metric units).
type WeatherClient struct {
	url    string
	apiKey string
	client *http.Client
}

func NewWeatherClient(baseURL, apiKey string) *WeatherClient {
	return &WeatherClient{
		url:    baseURL,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type weatherResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
}

// Lookup returns current conditions for city, or an error the caller treats
// as "skip and retry within the day's send window".
func (c *WeatherClient) Lookup(ctx context.Context, city string) (*model.Conditions, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var wr weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}

	cond := &model.Conditions{
		TempC:      wr.Main.Temp,
		FeelsLikeC: wr.Main.FeelsLike,
		Humidity:   wr.Main.Humidity,
	}
	if len(wr.Weather) > 0 {
		cond.Description = wr.Weather[0].Description
	}
	return cond, nil
}
