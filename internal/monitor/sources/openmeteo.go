package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/pressure-forecast/internal/barometer"
	"github.com/i474232898/pressure-forecast/internal/monitor"
)

// OpenMeteo reads mean sea level pressure from Open-Meteo. It needs
// coordinates, which are geocoded once when only a city is configured.
type OpenMeteo struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	geocode GeocodeFunc

	mu  sync.Mutex
	loc Location
}

func NewOpenMeteo(client *http.Client, loc Location, geocode GeocodeFunc) *OpenMeteo {
	return &OpenMeteo{
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: defaultHTTPConfig(client),
		circuit: newBreaker("openmeteo"),
		geocode: geocode,
		loc:     loc,
	}
}

func (p *OpenMeteo) Name() string {
	return "openmeteo"
}

func (p *OpenMeteo) coordinates() (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loc.HasCoordinates() {
		return *p.loc.Lat, *p.loc.Lon, nil
	}
	if p.geocode == nil || p.loc.City == "" {
		return 0, 0, fmt.Errorf("openmeteo requires latitude and longitude")
	}
	lat, lon, err := p.geocode(p.loc.City, p.loc.Country)
	if err != nil {
		return 0, 0, err
	}
	p.loc.Lat, p.loc.Lon = &lat, &lon
	return lat, lon, nil
}

func (p *OpenMeteo) Read(ctx context.Context) (monitor.Reading, error) {
	lat, lon, err := p.coordinates()
	if err != nil {
		return monitor.Reading{}, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", lat))
		values.Set("longitude", fmt.Sprintf("%f", lon))
		values.Set("current", "pressure_msl")
		values.Set("timezone", "UTC")
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), nil)
	}

	var payload struct {
		Current struct {
			Time        string  `json:"time"`
			PressureMSL float64 `json:"pressure_msl"` // hPa
		} `json:"current"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return monitor.Reading{}, err
	}
	if payload.Current.PressureMSL <= 0 {
		return monitor.Reading{}, fmt.Errorf("openmeteo returned no pressure")
	}

	// Open-Meteo uses ISO 8601 without seconds.
	ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		ts = time.Now()
	}

	return monitor.Reading{
		Source:    p.Name(),
		Timestamp: ts.UTC(),
		Value:     barometer.HPaToKPa(payload.Current.PressureMSL),
	}, nil
}
