// Package weather fetches the current weather descriptor for the capture site
// and reduces it to the coarse condition used in day tags.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Unknown is reported when no condition can be determined
const Unknown = "Unknown"

// DefaultBaseURL is the WorldWeatherOnline current-conditions endpoint
const DefaultBaseURL = "http://api.worldweatheronline.com/free/v1/weather.ashx"

// Provider returns the simplified current weather condition
type Provider interface {
	CurrentCondition(ctx context.Context) (string, error)
}

// Static always reports the same condition
type Static string

// CurrentCondition implements Provider
func (s Static) CurrentCondition(ctx context.Context) (string, error) {
	return string(s), nil
}

// Service handles weather data fetching
type Service struct {
	apiKey     string
	location   string
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewService creates a new weather service
func NewService(apiKey, location string) *Service {
	return &Service{
		apiKey:   apiKey,
		location: location,
		baseURL:  DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: log.Default(),
	}
}

// WithBaseURL points the service at another endpoint
func (s *Service) WithBaseURL(u string) *Service {
	s.baseURL = u
	return s
}

// response is the subset of the WorldWeatherOnline payload we read
type response struct {
	Data struct {
		CurrentCondition []struct {
			WeatherDesc []struct {
				Value string `json:"value"`
			} `json:"weatherDesc"`
		} `json:"current_condition"`
	} `json:"data"`
}

// CurrentCondition implements Provider. Without an API key, or when the
// endpoint cannot be reached, the condition is Unknown.
func (s *Service) CurrentCondition(ctx context.Context) (string, error) {
	if s.apiKey == "" {
		return Unknown, nil
	}

	q := url.Values{}
	q.Set("q", s.location)
	q.Set("format", "json")
	q.Set("num_of_days", "1")
	q.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("weather: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Printf("weather: request failed: %v", err)
		return Unknown, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Printf("weather: unexpected status %d", resp.StatusCode)
		return Unknown, nil
	}

	var wr response
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return "", fmt.Errorf("weather: failed to decode response: %w", err)
	}

	cc := wr.Data.CurrentCondition
	if len(cc) != 1 || len(cc[0].WeatherDesc) != 1 {
		s.logger.Printf("weather: unexpected current_condition shape")
		return Unknown, nil
	}
	return Simplify(cc[0].WeatherDesc[0].Value), nil
}

// Simplify maps a free-text descriptor such as "Patchy light rain" onto
// Overcast, Rain, Snow or Clear with an optional intensity suffix
func Simplify(desc string) string {
	d := strings.ToLower(desc)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(d, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("cloudy", "overcast", "mist", "fog"):
		if has("partly") {
			return "Overcast|Cool"
		}
		return "Overcast|Cold"
	case has("rain", "drizzle"):
		return "Rain" + intensity(has)
	case has("snow", "ice", "blizzard"):
		return "Snow" + intensity(has)
	case has("thundery outbreaks"):
		return "Rain|Storm"
	case has("clear"):
		return "Clear"
	}
	return Unknown
}

func intensity(has func(...string) bool) string {
	switch {
	case has("thunder"):
		return "|Storm"
	case has("moderate"):
		return "|Moderate"
	case has("heavy"):
		return "|Heavy"
	case has("light"):
		return "|Light"
	}
	return ""
}
