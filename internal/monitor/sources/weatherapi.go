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

// WeatherAPI reads current pressure from WeatherAPI.com.
type WeatherAPI struct {
	apiKey  string
	loc     Location
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPI(client *http.Client, apiKey string, loc Location) *WeatherAPI {
	return &WeatherAPI{
		apiKey:  apiKey,
		loc:     loc,
		baseURL: "https://api.weatherapi.com/v1/current.json",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("weatherapi"),
	}
}

func (p *WeatherAPI) Name() string {
	return "weatherapi"
}

func (p *WeatherAPI) Read(ctx context.Context) (monitor.Reading, error) {
	if p.apiKey == "" {
		return monitor.Reading{}, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// "q" accepts "city,country" or "lat,lon".
		if p.loc.HasCoordinates() {
			values.Set("q", fmt.Sprintf("%f,%f", *p.loc.Lat, *p.loc.Lon))
		} else {
			values.Set("q", p.loc.Query())
		}
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	}

	var payload struct {
		Current struct {
			LastUpdatedEpoch int64   `json:"last_updated_epoch"`
			PressureMb       float64 `json:"pressure_mb"`
		} `json:"current"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return monitor.Reading{}, err
	}
	if payload.Current.PressureMb <= 0 {
		return monitor.Reading{}, fmt.Errorf("weatherapi returned no pressure")
	}

	ts := time.Now().UTC()
	if payload.Current.LastUpdatedEpoch > 0 {
		ts = time.Unix(payload.Current.LastUpdatedEpoch, 0).UTC()
	}

	return monitor.Reading{
		Source:    p.Name(),
		Timestamp: ts,
		Value:     barometer.HPaToKPa(payload.Current.PressureMb),
	}, nil
}
