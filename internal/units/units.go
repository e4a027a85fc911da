// Package units converts temperatures between the canonical internal scale
// and the scales a dashboard can display.
//
// Everything fetched from upstream is normalized to Celsius once, at the
// client boundary. Conversion to the requested display unit happens once, at
// the response boundary. Code in between never needs to know the unit.
package units

import (
	"errors"
	"fmt"
	"strings"
)

// DisplayUnit selects the temperature scale used when rendering a report.
type DisplayUnit int

const (
	// Celsius is the canonical internal scale.
	Celsius DisplayUnit = iota
	Fahrenheit
)

// ErrUnknownUnit is returned by Parse for unit names it does not recognize.
var ErrUnknownUnit = errors.New("unknown display unit")

// Parse maps a user-supplied unit name to a DisplayUnit. Matching is
// case-insensitive and tolerates surrounding whitespace. The upstream API's
// "metric" and "imperial" spellings are accepted as aliases.
func Parse(s string) (DisplayUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "celsius", "c", "metric":
		return Celsius, nil
	case "fahrenheit", "f", "imperial":
		return Fahrenheit, nil
	default:
		return Celsius, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
}

func (u DisplayUnit) String() string {
	switch u {
	case Fahrenheit:
		return "fahrenheit"
	default:
		return "celsius"
	}
}

// Symbol returns the display suffix for the unit, e.g. "°C".
func (u DisplayUnit) Symbol() string {
	switch u {
	case Fahrenheit:
		return "°F"
	default:
		return "°C"
	}
}

// Convert renders a canonical Celsius value in the given display unit.
// Converting to Celsius is the identity. NaN and infinities propagate
// unchanged through the arithmetic, so sentinel values survive conversion.
func Convert(celsius float64, to DisplayUnit) float64 {
	switch to {
	case Fahrenheit:
		return celsius*9.0/5.0 + 32.0
	default:
		return celsius
	}
}

// ToCanonical is the inverse of Convert: it maps a value expressed in the
// given display unit back to canonical Celsius.
func ToCanonical(v float64, from DisplayUnit) float64 {
	switch from {
	case Fahrenheit:
		return (v - 32.0) * 5.0 / 9.0
	default:
		return v
	}
}

// FromKelvin normalizes an absolute Kelvin reading to canonical Celsius.
func FromKelvin(k float64) float64 {
	return k - 273.15
}
