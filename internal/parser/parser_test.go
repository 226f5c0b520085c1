package parser

import (
	"errors"
	"testing"
)

func TestParseAmount_Valid(t *testing.T) {
	cases := map[string]float64{
		"200":    200,
		" 1.5 ":  1.5,
		"1,5":    1.5,
		"0.25":   0.25,
		"1e2":    100,
		"\t42\n": 42,
	}
	for in, want := range cases {
		got, err := ParseAmount(in)
		if err != nil {
			t.Errorf("ParseAmount(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseAmount(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"", ErrEmpty},
		{"   ", ErrEmpty},
		{"abc", ErrNotNumber},
		{"1,000.5", ErrNotNumber},
		{"0", ErrNotPositive},
		{"-1", ErrNotPositive},
		{"NaN", ErrNotPositive},
		{"Inf", ErrNotPositive},
	}
	for _, c := range cases {
		_, err := ParseAmount(c.in)
		if !errors.Is(err, c.want) {
			t.Errorf("ParseAmount(%q) err = %v, want %v", c.in, err, c.want)
		}
	}
}

func TestParseKcal(t *testing.T) {
	v, err := ParseKcal("155")
	if err != nil || v != 155 {
		t.Fatalf("ParseKcal = %v, %v", v, err)
	}
	if _, err := ParseKcal("0"); err == nil {
		t.Error("zero kcal should be rejected")
	}
}
