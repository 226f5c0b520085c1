// Package textnorm normalises ingredient keys and orders labels the way a
// Polish-speaking user expects.
package textnorm

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Key returns the dictionary key for a user-typed ingredient name:
// trimmed and lowercased.
func Key(name string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// ContainsFold reports whether substr occurs in s, ignoring case.
func ContainsFold(s, substr string) bool {
	lower := cases.Lower(language.Und)
	return strings.Contains(lower.String(s), lower.String(substr))
}

// Sort orders values in place using Polish collation rules.
func Sort(values []string) {
	collate.New(language.Polish).SortStrings(values)
}

// SortFunc orders items in place by the collation key returned by name.
func SortFunc[T any](items []T, name func(T) string) {
	c := collate.New(language.Polish)
	sort.SliceStable(items, func(i, j int) bool {
		return c.CompareString(name(items[i]), name(items[j])) < 0
	})
}
