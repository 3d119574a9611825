package sources

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastBackoff(cfg HTTPClientConfig) HTTPClientConfig {
	cfg.Backoff.InitialInterval = time.Millisecond
	cfg.Backoff.MaxInterval = 5 * time.Millisecond
	return cfg
}

func TestOpenWeatherRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "Warsaw,PL" || r.URL.Query().Get("appid") != "key" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"dt":1714564800,"main":{"pressure":1013.25}}`))
	}))
	defer srv.Close()

	p := NewOpenWeather(srv.Client(), "key", Location{City: "Warsaw", Country: "PL"})
	p.baseURL = srv.URL

	r, err := p.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(r.Value-101.325) > 1e-9 {
		t.Fatalf("expected 101.325 kPa, got %v", r.Value)
	}
	if !r.Timestamp.Equal(time.Unix(1714564800, 0)) {
		t.Fatalf("unexpected timestamp %v", r.Timestamp)
	}
}

func TestOpenWeatherRequiresKey(t *testing.T) {
	p := NewOpenWeather(http.DefaultClient, "", Location{City: "Warsaw"})
	if _, err := p.Read(context.Background()); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestWeatherAPIReadWithCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "52.230000,21.010000" {
			t.Errorf("unexpected q %q", r.URL.Query().Get("q"))
		}
		_, _ = w.Write([]byte(`{"current":{"last_updated_epoch":1714564800,"pressure_mb":1000}}`))
	}))
	defer srv.Close()

	lat, lon := 52.23, 21.01
	p := NewWeatherAPI(srv.Client(), "key", Location{Lat: &lat, Lon: &lon})
	p.baseURL = srv.URL

	r, err := p.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Value != 100 {
		t.Fatalf("expected 100 kPa, got %v", r.Value)
	}
}

func TestOpenMeteoGeocodesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") != "48.856600" {
			t.Errorf("unexpected latitude %q", r.URL.Query().Get("latitude"))
		}
		_, _ = w.Write([]byte(`{"current":{"time":"2024-05-01T12:00","pressure_msl":1020.0}}`))
	}))
	defer srv.Close()

	var calls int
	geocode := func(city, country string) (float64, float64, error) {
		calls++
		if city != "Paris" || country != "FR" {
			t.Errorf("unexpected geocode input %s,%s", city, country)
		}
		return 48.8566, 2.3522, nil
	}

	p := NewOpenMeteo(srv.Client(), Location{City: "Paris", Country: "FR"}, geocode)
	p.baseURL = srv.URL

	for i := 0; i < 2; i++ {
		r, err := p.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Value != 102 {
			t.Fatalf("expected 102 kPa, got %v", r.Value)
		}
		if !r.Timestamp.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected timestamp %v", r.Timestamp)
		}
	}
	if calls != 1 {
		t.Fatalf("expected geocoder to be called once, got %d", calls)
	}
}

func TestOpenMeteoWithoutLocation(t *testing.T) {
	p := NewOpenMeteo(http.DefaultClient, Location{}, nil)
	if _, err := p.Read(context.Background()); err == nil {
		t.Fatalf("expected error without coordinates")
	}
}

func TestResilienceRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"main":{"pressure":990}}`))
	}))
	defer srv.Close()

	p := NewOpenWeather(srv.Client(), "key", Location{City: "Oslo"})
	p.baseURL = srv.URL
	p.httpCfg = fastBackoff(p.httpCfg)

	r, err := p.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Value != 99 || hits.Load() != 3 {
		t.Fatalf("expected success on third attempt, got value %v after %d hits", r.Value, hits.Load())
	}
}

func TestResilienceDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewWeatherAPI(srv.Client(), "bad", Location{City: "Oslo"})
	p.baseURL = srv.URL
	p.httpCfg = fastBackoff(p.httpCfg)

	_, err := p.Read(context.Background())
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected errUnexpected, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestResilienceRequiresClient(t *testing.T) {
	p := NewOpenWeather(nil, "key", Location{City: "Oslo"})
	if _, err := p.Read(context.Background()); !errors.Is(err, errNoHTTPClient) {
		t.Fatalf("expected errNoHTTPClient, got %v", err)
	}
}
