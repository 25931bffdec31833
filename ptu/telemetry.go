package ptu

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Telemetry holds the head's diagnostics readout: supply voltage in volts
// and the three temperatures in degrees Celsius, all rounded to one decimal
// place.
type Telemetry struct {
	Voltage  float64
	HeadTemp float64
	PanTemp  float64
	TiltTemp float64
}

// parseTelemetry parses the payload of the "O" query, e.g. "13.2,99,97,104":
// supply voltage followed by head, pan and tilt temperature in Fahrenheit.
func parseTelemetry(value string) (Telemetry, error) {
	fields := strings.Split(value, ",")
	if len(fields) != 4 {
		return Telemetry{}, fmt.Errorf("%w: telemetry %q has %d fields, want 4",
			ErrMalformedReply, value, len(fields))
	}

	nums := make([]float64, 4)
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return Telemetry{}, fmt.Errorf("%w: telemetry field %q: %w", ErrMalformedReply, field, err)
		}
		nums[i] = v
	}

	return Telemetry{
		Voltage:  round1(nums[0]),
		HeadTemp: round1(fahrenheitToCelsius(nums[1])),
		PanTemp:  round1(fahrenheitToCelsius(nums[2])),
		TiltTemp: round1(fahrenheitToCelsius(nums[3])),
	}, nil
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) / 1.8
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
