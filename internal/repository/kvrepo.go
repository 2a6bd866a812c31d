// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"
	"sort"
)

// KVRepository is a small persistent key-value store, the console's equivalent
// of browser storage.
type KVRepository interface {
	// GetMany returns the values of the keys that exist; missing keys are omitted.
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	// PutMany writes all pairs or none of them.
	PutMany(ctx context.Context, kv map[string]string) error
	// DeleteMany removes the keys; missing keys are not an error.
	DeleteMany(ctx context.Context, keys ...string) error
}

// SortedKeys returns the keys of kv in lexical order so that backends write deterministically.
func SortedKeys(kv map[string]string) []string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
