// Package memory provides an in-process KVRepository.
package memory

import (
	"context"
	"sync"

	"github.com/and161185/admin-console/internal/repository"
)

// KVRepo is a mutex-guarded map.
type KVRepo struct {
	mu sync.RWMutex
	m  map[string]string
}

var _ repository.KVRepository = (*KVRepo)(nil)

// NewKVRepo returns an empty store.
func NewKVRepo() *KVRepo { return &KVRepo{m: map[string]string{}} }

func (r *KVRepo) GetMany(_ context.Context, keys ...string) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := r.m[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (r *KVRepo) PutMany(_ context.Context, kv map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range kv {
		r.m[k] = v
	}
	return nil
}

func (r *KVRepo) DeleteMany(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.m, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (r *KVRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}
