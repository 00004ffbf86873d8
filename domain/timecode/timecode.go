package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalid is returned when text cannot be read as a time value
var ErrInvalid = errors.New("invalid time")

// Format renders seconds as M:SS.CC. Every component is truncated, never rounded.
// Negative and NaN input is not supported.
func Format(seconds float64) string {
	mins := int64(math.Floor(seconds / 60))
	secs := int64(math.Floor(math.Mod(seconds, 60)))
	centis := int64(math.Floor(math.Mod(seconds, 1) * 100))
	return fmt.Sprintf("%d:%02d.%02d", mins, secs, centis)
}

// Parse reads either "M:SS" (both sides decimal numbers, M*60+SS) or a bare
// number of seconds. No range validation happens here: "1:90.5" is 150.5.
func Parse(text string) (float64, error) {
	parts := strings.Split(text, ":")

	switch len(parts) {
	case 1:
		secs, err := parseNumber(parts[0])
		if err != nil {
			return 0, fmt.Errorf("%w %q: %v", ErrInvalid, text, err)
		}
		return secs, nil
	case 2:
		mins, err := parseNumber(parts[0])
		if err != nil {
			return 0, fmt.Errorf("%w %q: minutes: %v", ErrInvalid, text, err)
		}
		secs, err := parseNumber(parts[1])
		if err != nil {
			return 0, fmt.Errorf("%w %q: seconds: %v", ErrInvalid, text, err)
		}
		return mins*60 + secs, nil
	default:
		return 0, fmt.Errorf("%w %q: expected M:SS or seconds", ErrInvalid, text)
	}
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}
