// Package weather fetches current conditions and a short forecast from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
	hourlyPoints   = 24
	requestTimeout = 10 * time.Second
)

var (
	ErrMissingAPIKey = errors.New("OpenWeatherMap API key not configured")
	ErrCityNotFound  = errors.New("city not found")
)

// Report is the forecast view: coordinates, current temperature, hourly temperatures and today's sun times.
type Report struct {
	Latitude             float64      `json:"latitude"`
	Longitude            float64      `json:"longitude"`
	Timezone             string       `json:"timezone"`
	TimezoneAbbreviation string       `json:"timezone_abbreviation"`
	CurrentUnits         CurrentUnits `json:"current_units"`
	Current              Current      `json:"current"`
	HourlyUnits          HourlyUnits  `json:"hourly_units"`
	Hourly               Hourly       `json:"hourly"`
	DailyUnits           DailyUnits   `json:"daily_units"`
	Daily                Daily        `json:"daily"`
}

type CurrentUnits struct {
	Time          string `json:"time"`
	Interval      string `json:"interval"`
	Temperature2m string `json:"temperature_2m"`
}

type Current struct {
	Time          string  `json:"time"`
	Interval      int     `json:"interval"`
	Temperature2m float64 `json:"temperature_2m"`
}

type HourlyUnits struct {
	Time          string `json:"time"`
	Temperature2m string `json:"temperature_2m"`
}

type Hourly struct {
	Time          []string  `json:"time"`
	Temperature2m []float64 `json:"temperature_2m"`
}

type DailyUnits struct {
	Time    string `json:"time"`
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

type Daily struct {
	Time    []string `json:"time"`
	Sunrise []string `json:"sunrise"`
	Sunset  []string `json:"sunset"`
}

type currentResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type forecastResponse struct {
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
	} `json:"list"`
}

// Client talks to the OpenWeatherMap 2.5 API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a client. An empty baseURL means DefaultBaseURL.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		now:        time.Now,
	}
}

// Forecast returns the report for a city. It fails with ErrMissingAPIKey before any request
// when no key is configured, and with ErrCityNotFound when the provider does not know the city.
func (c *Client) Forecast(ctx context.Context, location string) (*Report, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	var current currentResponse
	var forecast forecastResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, "weather", location, &current)
	})
	g.Go(func() error {
		return c.get(gctx, "forecast", location, &forecast)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	report := &Report{
		Latitude:             current.Coord.Lat,
		Longitude:            current.Coord.Lon,
		Timezone:             "auto",
		TimezoneAbbreviation: "GMT",
		CurrentUnits:         CurrentUnits{Time: "iso8601", Interval: "seconds", Temperature2m: "°C"},
		Current:              Current{Time: now.Format(time.RFC3339), Interval: 900, Temperature2m: current.Main.Temp},
		HourlyUnits:          HourlyUnits{Time: "iso8601", Temperature2m: "°C"},
		Hourly:               Hourly{Time: []string{}, Temperature2m: []float64{}},
		DailyUnits:           DailyUnits{Time: "iso8601", Sunrise: "iso8601", Sunset: "iso8601"},
		Daily: Daily{
			Time:    []string{now.Format(time.DateOnly)},
			Sunrise: []string{time.Unix(current.Sys.Sunrise, 0).UTC().Format(time.RFC3339)},
			Sunset:  []string{time.Unix(current.Sys.Sunset, 0).UTC().Format(time.RFC3339)},
		},
	}
	for i, point := range forecast.List {
		if i >= hourlyPoints {
			break
		}
		report.Hourly.Time = append(report.Hourly.Time, point.DtTxt)
		report.Hourly.Temperature2m = append(report.Hourly.Temperature2m, point.Main.Temp)
	}
	return report, nil
}

func (c *Client) get(ctx context.Context, endpoint, location string, out any) error {
	query := url.Values{}
	query.Set("q", location)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode()), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build weather request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "failed to call weather %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrCityNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("weather %s returned status %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode weather %s", endpoint)
	}
	return nil
}
