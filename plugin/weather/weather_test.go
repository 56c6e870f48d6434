package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("appid") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("q") == "Atlantis" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/weather"):
			_, _ = w.Write([]byte(`{"coord":{"lat":37.77,"lon":-122.42},"main":{"temp":18.5},"sys":{"sunrise":1760882400,"sunset":1760922000}}`))
		case strings.HasSuffix(r.URL.Path, "/forecast"):
			var points []string
			for i := 0; i < 40; i++ {
				points = append(points, fmt.Sprintf(`{"dt_txt":"2026-10-19 %02d:00:00","main":{"temp":%d}}`, i%24, 10+i))
			}
			_, _ = w.Write([]byte(`{"list":[` + strings.Join(points, ",") + `]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestForecast(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, &hits)
	client := NewClient("test-key", server.URL)
	client.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

	report, err := client.Forecast(context.Background(), "San Francisco")
	require.NoError(t, err)
	require.Equal(t, 37.77, report.Latitude)
	require.Equal(t, 18.5, report.Current.Temperature2m)
	require.Len(t, report.Hourly.Time, 24)
	require.Len(t, report.Hourly.Temperature2m, 24)
	require.Equal(t, []string{"2026-10-19"}, report.Daily.Time)
	require.Equal(t, []string{"2025-10-19T14:00:00Z"}, report.Daily.Sunrise)
	require.Equal(t, "°C", report.CurrentUnits.Temperature2m)
	require.EqualValues(t, 2, hits.Load())
}

func TestForecastCityNotFound(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, &hits)

	_, err := NewClient("test-key", server.URL).Forecast(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrCityNotFound)
}

func TestForecastMissingKeyMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, &hits)

	_, err := NewClient("", server.URL).Forecast(context.Background(), "San Francisco")
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Zero(t, hits.Load())
}

func TestForecastUpstreamFailure(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, &hits)

	_, err := NewClient("wrong-key", server.URL).Forecast(context.Background(), "San Francisco")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCityNotFound)
}
