package mediautil

import (
	"math"
	"testing"
)

func TestParseRational(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Rational
	}{
		{"shutter speed", "1/125", Rational{1, 125}},
		{"spaced fraction", " 1 / 250 ", Rational{1, 250}},
		{"aperture f-notation", "f/2.8", Rational{14, 5}},
		{"focal length mm", "50mm", Rational{50, 1}},
		{"bare integer", "200", Rational{200, 1}},
		{"bare float", "1.5", Rational{3, 2}},
		{"negative integer", "-3", Rational{-3, 1}},
		{"uppercase notation", "F/4", Rational{4, 1}},
		{"garbage", "fast", Rational{0, 1}},
		{"empty", "", Rational{0, 1}},
		{"zero denominator falls through", "1/0", Rational{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRational(tt.input)
			if got != tt.want {
				t.Errorf("ParseRational(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRationalString(t *testing.T) {
	r := Rational{Num: 1, Den: 125}
	if r.String() != "1/125" {
		t.Errorf("String() = %q, want %q", r.String(), "1/125")
	}
}

func TestFloatRational(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  Rational
	}{
		{"half", 0.5, Rational{1, 2}},
		{"whole", 3, Rational{3, 1}},
		{"third approximation", 1.0 / 3.0, Rational{1, 3}},
		{"negative", -2.5, Rational{-5, 2}},
		{"zero", 0, Rational{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FloatRational(tt.input)
			if got != tt.want {
				t.Errorf("FloatRational(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	t.Run("denominator stays bounded", func(t *testing.T) {
		got := FloatRational(3.14159265358979)
		if got.Den > 10000 {
			t.Errorf("denominator %d exceeds bound", got.Den)
		}
		approx := float64(got.Num) / float64(got.Den)
		if diff := approx - 3.14159265358979; diff > 1e-4 || diff < -1e-4 {
			t.Errorf("approximation %v too far from input", approx)
		}
	})

	t.Run("non-finite input", func(t *testing.T) {
		for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			if got := FloatRational(f); got != (Rational{0, 1}) {
				t.Errorf("FloatRational(%v) = %v, want 0/1", f, got)
			}
		}
	})
}
