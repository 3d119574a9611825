package sources

import (
	"fmt"

	"github.com/kelvins/geocoder"
)

// Location is the place remote providers report pressure for.
// City is required unless both coordinates are set.
type Location struct {
	City    string
	Country string
	Lat     *float64
	Lon     *float64
}

func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Query renders the location as "city,country".
func (l Location) Query() string {
	if l.Country == "" {
		return l.City
	}
	return fmt.Sprintf("%s,%s", l.City, l.Country)
}

// GeocodeFunc resolves a city and country to coordinates.
type GeocodeFunc func(city, country string) (lat, lon float64, err error)

// GoogleGeocoder resolves coordinates through the Google Geocoding API.
func GoogleGeocoder(apiKey string) GeocodeFunc {
	return func(city, country string) (float64, float64, error) {
		if apiKey == "" {
			return 0, 0, fmt.Errorf("geocoder api key is not configured")
		}
		// The library reads its key from a package variable.
		geocoder.ApiKey = apiKey
		loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
		if err != nil {
			return 0, 0, fmt.Errorf("geocode %s,%s: %w", city, country, err)
		}
		return loc.Latitude, loc.Longitude, nil
	}
}
