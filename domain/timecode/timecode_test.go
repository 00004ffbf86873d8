package timecode

import (
	"errors"
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00.00"},
		{0.5, "0:00.50"},
		{9.99, "0:09.99"},
		{59.999, "0:59.99"},
		{60, "1:00.00"},
		{125.37, "2:05.37"},
		{600, "10:00.00"},
		{3725.5, "62:05.50"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Format(tt.seconds); got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "bare seconds", input: "90", want: 90},
		{name: "bare fractional seconds", input: "12.5", want: 12.5},
		{name: "minutes and seconds", input: "1:30", want: 90},
		{name: "formatted value", input: "2:05.37", want: 125.37},
		{name: "seconds past sixty", input: "1:90.5", want: 150.5},
		{name: "fractional minutes", input: "0.5:0", want: 30},
		{name: "surrounding spaces", input: " 1 : 05 ", want: 65},
		{name: "word", input: "invalid", wantErr: true},
		{name: "two colons", input: "1:2:3", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "empty minutes", input: ":30", wantErr: true},
		{name: "empty seconds", input: "1:", wantErr: true},
		{name: "not a number side", input: "1:ab", wantErr: true},
		{name: "nan", input: "NaN", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Parse(%q) expected error, got %v", tt.input, got)
					return
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Parse(%q) error = %v, want ErrInvalid", tt.input, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Parse(%q) unexpected error: %v", tt.input, err)
				return
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, seconds := range []float64{0, 0.01, 0.29, 1.234, 59.99, 61.5, 125.37, 599.999, 3601.07, 7322.81} {
		got, err := Parse(Format(seconds))
		if err != nil {
			t.Fatalf("Parse(Format(%v)) unexpected error: %v", seconds, err)
		}
		if diff := seconds - got; diff < -1e-9 || diff >= 0.01+1e-9 {
			t.Errorf("Parse(Format(%v)) = %v, off by %v", seconds, got, diff)
		}
	}
}
