// Package file stores console state as a JSON object in a single file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/and161185/admin-console/internal/repository"
)

// KVRepo keeps all keys in one JSON document; every write replaces the file
// through a rename, so readers see either the old or the new set of keys.
type KVRepo struct {
	mu   sync.Mutex
	path string
}

var _ repository.KVRepository = (*KVRepo)(nil)

// NewKVRepo returns a repository backed by path. The file is created lazily.
func NewKVRepo(path string) *KVRepo { return &KVRepo{path: path} }

// DefaultPath is $XDG_CONFIG_HOME/admin-console/session.json, or ~/.config/... without XDG.
func DefaultPath() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "admin-console", "session.json")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "admin-console", "session.json")
}

// Path returns the backing file.
func (r *KVRepo) Path() string { return r.path }

func (r *KVRepo) load() (map[string]string, error) {
	b, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	m := map[string]string{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *KVRepo) store(m map[string]string) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

// GetMany reads the file and returns the present keys.
func (r *KVRepo) GetMany(_ context.Context, keys ...string) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// PutMany merges kv into the document and replaces the file.
func (r *KVRepo) PutMany(_ context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		return err
	}
	for k, v := range kv {
		m[k] = v
	}
	return r.store(m)
}

// DeleteMany drops keys from the document.
func (r *KVRepo) DeleteMany(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := m[k]; ok {
			delete(m, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.store(m)
}
