package main

import (
	"testing"

	"github.com/starford/recipebox/internal/apperr"
)

func TestParseKcalFlag(t *testing.T) {
	kcal, err := parseKcalFlag("7,5")
	if err != nil || kcal != 7.5 {
		t.Fatalf("parseKcalFlag(7,5) = %v, %v", kcal, err)
	}

	for _, raw := range []string{"", "abc", "0", "-1"} {
		if _, err := parseKcalFlag(raw); !apperr.IsValidation(err, apperr.KindMissingFields) {
			t.Errorf("parseKcalFlag(%q) err = %v, want missing-fields", raw, err)
		}
	}
}
