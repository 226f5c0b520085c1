// Package storage provides the key-value string substrate that recipes and
// custom ingredients are persisted to.
package storage

import (
	"context"
	"errors"
	"regexp"
)

// Record keys written by the recipe store.
const (
	KeyRecipes           = "recipes"
	KeyCustomIngredients = "customIngredients"
)

// ErrInvalidKey is returned for keys outside [A-Za-z0-9_.-].
var ErrInvalidKey = errors.New("storage: invalid key")

var keyRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// KV is a synchronous string store. Values are overwritten wholesale.
type KV interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
}

func validKey(key string) error {
	if !keyRe.MatchString(key) || key == "." || key == ".." {
		return ErrInvalidKey
	}
	return nil
}
