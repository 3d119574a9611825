package barometer

import (
	"errors"
	"fmt"
	"strings"
)

// kPaPerInHg is the number of kilopascals in one inch of mercury.
const kPaPerInHg = 3.38639

// DefaultPressureKPa is reported by a session that has not received a reading yet.
const DefaultPressureKPa = 1013.25

// Gauge display range.
const (
	GaugeMin = 100.0
	GaugeMax = 1100.0
)

// ErrUnknownUnit is returned by ParseUnit for unsupported unit names.
var ErrUnknownUnit = errors.New("unknown pressure unit")

// Unit is a display unit for pressure values. Kilopascals are canonical.
type Unit string

const (
	UnitKPa  Unit = "kpa"
	UnitInHg Unit = "inhg"
)

// ToInHg converts kilopascals to inches of mercury.
func ToInHg(kPa float64) float64 {
	return kPa / kPaPerInHg
}

// ToKPa converts inches of mercury to kilopascals.
func ToKPa(inHg float64) float64 {
	return inHg * kPaPerInHg
}

// HPaToKPa converts hectopascals (millibars) to kilopascals.
func HPaToKPa(hPa float64) float64 {
	return hPa / 10
}

// ParseUnit maps a user supplied unit name to a Unit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kpa", "kilopascal", "kilopascals":
		return UnitKPa, nil
	case "inhg", "inch", "inches", "in":
		return UnitInHg, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
}

// Convert returns kPa expressed in u.
func Convert(kPa float64, u Unit) float64 {
	if u == UnitInHg {
		return ToInHg(kPa)
	}
	return kPa
}

// Format renders a kPa value for display in the given unit.
func Format(kPa float64, u Unit) string {
	if u == UnitInHg {
		return fmt.Sprintf("%.2f inHg", ToInHg(kPa))
	}
	return fmt.Sprintf("%.4f kPa", kPa)
}

// ClampGauge limits v to the gauge range.
func ClampGauge(v float64) float64 {
	if v < GaugeMin {
		return GaugeMin
	}
	if v > GaugeMax {
		return GaugeMax
	}
	return v
}
