package units

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// TestConvert_CelsiusToFahrenheit verifies the conversion formula against
// known reference points.
func TestConvert_CelsiusToFahrenheit(t *testing.T) {
	tests := []struct {
		name    string
		celsius float64
		want    float64
	}{
		{"freezing point", 0, 32},
		{"boiling point", 100, 212},
		{"body temperature", 37, 98.6},
		{"negative forty crossover", -40, -40},
		{"absolute zero", -273.15, -459.67},
		{"fractional", 21.5, 70.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.celsius, Fahrenheit)
			if !almostEqual(got, tt.want) {
				t.Errorf("Convert(%v, Fahrenheit) = %v, want %v", tt.celsius, got, tt.want)
			}
		})
	}
}

// TestConvert_CelsiusIdentity verifies that converting to the canonical unit
// returns the value unchanged, so repeated conversion is idempotent.
func TestConvert_CelsiusIdentity(t *testing.T) {
	for _, v := range []float64{-40, 0, 0.5, 21.5, 100} {
		if got := Convert(v, Celsius); got != v {
			t.Errorf("Convert(%v, Celsius) = %v, want %v (identity)", v, got, v)
		}
		if got := Convert(Convert(v, Celsius), Celsius); got != v {
			t.Errorf("double Convert(%v, Celsius) = %v, want %v", v, got, v)
		}
	}
}

// TestConvert_RoundTrip verifies that converting to Fahrenheit and back to
// canonical Celsius recovers the original value within tolerance.
func TestConvert_RoundTrip(t *testing.T) {
	for _, v := range []float64{-89.2, -40, -0.001, 0, 11.7, 21.5, 37, 56.7, 100} {
		f := Convert(v, Fahrenheit)
		back := ToCanonical(f, Fahrenheit)
		if !almostEqual(back, v) {
			t.Errorf("round trip %v -> %v -> %v, want %v", v, f, back, v)
		}
	}
}

// TestConvert_NonFiniteValuesPassThrough verifies that NaN and infinities
// survive conversion instead of turning into bogus finite temperatures.
func TestConvert_NonFiniteValuesPassThrough(t *testing.T) {
	if got := Convert(math.NaN(), Fahrenheit); !math.IsNaN(got) {
		t.Errorf("Convert(NaN, Fahrenheit) = %v, want NaN", got)
	}
	if got := Convert(math.NaN(), Celsius); !math.IsNaN(got) {
		t.Errorf("Convert(NaN, Celsius) = %v, want NaN", got)
	}
	if got := Convert(math.Inf(1), Fahrenheit); !math.IsInf(got, 1) {
		t.Errorf("Convert(+Inf, Fahrenheit) = %v, want +Inf", got)
	}
	if got := Convert(math.Inf(-1), Fahrenheit); !math.IsInf(got, -1) {
		t.Errorf("Convert(-Inf, Fahrenheit) = %v, want -Inf", got)
	}
	if got := ToCanonical(math.NaN(), Fahrenheit); !math.IsNaN(got) {
		t.Errorf("ToCanonical(NaN, Fahrenheit) = %v, want NaN", got)
	}
}

// TestFromKelvin verifies normalization of absolute Kelvin readings.
func TestFromKelvin(t *testing.T) {
	tests := []struct {
		name   string
		kelvin float64
		want   float64
	}{
		{"absolute zero", 0, -273.15},
		{"freezing point", 273.15, 0},
		{"room temperature", 293.15, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromKelvin(tt.kelvin); !almostEqual(got, tt.want) {
				t.Errorf("FromKelvin(%v) = %v, want %v", tt.kelvin, got, tt.want)
			}
		})
	}
}

// TestParse verifies unit name parsing including the upstream API's
// metric/imperial aliases, case-insensitivity, and whitespace handling.
func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  DisplayUnit
	}{
		{"celsius", Celsius},
		{"Celsius", Celsius},
		{"C", Celsius},
		{"metric", Celsius},
		{"", Celsius}, // default
		{"  celsius  ", Celsius},
		{"fahrenheit", Fahrenheit},
		{"FAHRENHEIT", Fahrenheit},
		{"f", Fahrenheit},
		{"imperial", Fahrenheit},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		if err != nil {
			t.Errorf("Parse(%q) error = %v, want nil", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	for _, input := range []string{"kelvin", "k", "rankine", "degrees", "0"} {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q) error = nil, want ErrUnknownUnit", input)
			continue
		}
		if !errors.Is(err, ErrUnknownUnit) {
			t.Errorf("Parse(%q) error = %v, want ErrUnknownUnit", input, err)
		}
	}
}

func TestDisplayUnit_StringAndSymbol(t *testing.T) {
	if got := Celsius.String(); got != "celsius" {
		t.Errorf("Celsius.String() = %q, want celsius", got)
	}
	if got := Fahrenheit.String(); got != "fahrenheit" {
		t.Errorf("Fahrenheit.String() = %q, want fahrenheit", got)
	}
	if got := Celsius.Symbol(); got != "°C" {
		t.Errorf("Celsius.Symbol() = %q, want °C", got)
	}
	if got := Fahrenheit.Symbol(); got != "°F" {
		t.Errorf("Fahrenheit.Symbol() = %q, want °F", got)
	}
}
