package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/pressure-forecast/internal/barometer"
	"github.com/i474232898/pressure-forecast/internal/monitor"
)

// OpenWeather reads sea-level pressure from the OpenWeatherMap current weather API.
type OpenWeather struct {
	apiKey  string
	loc     Location
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeather(client *http.Client, apiKey string, loc Location) *OpenWeather {
	return &OpenWeather{
		apiKey:  apiKey,
		loc:     loc,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeather) Name() string {
	return "openweather"
}

func (p *OpenWeather) Read(ctx context.Context) (monitor.Reading, error) {
	if p.apiKey == "" {
		return monitor.Reading{}, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		if p.loc.HasCoordinates() {
			values.Set("lat", fmt.Sprintf("%f", *p.loc.Lat))
			values.Set("lon", fmt.Sprintf("%f", *p.loc.Lon))
		} else {
			values.Set("q", p.loc.Query())
		}
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	}

	var payload struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Pressure float64 `json:"pressure"` // hPa
		} `json:"main"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return monitor.Reading{}, err
	}
	if payload.Main.Pressure <= 0 {
		return monitor.Reading{}, fmt.Errorf("openweather returned no pressure")
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	return monitor.Reading{
		Source:    p.Name(),
		Timestamp: ts,
		Value:     barometer.HPaToKPa(payload.Main.Pressure),
	}, nil
}
