// Package persist provides the namespaced key-value snapshot storage.
package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// KV stores JSON documents by key on a filesystem. When the filesystem
// fails, the store degrades to in-memory only (logged once) and the
// application keeps its full functionality for the session.
type KV struct {
	fs        afero.Fs
	dir       string
	namespace string

	mu       sync.Mutex
	degraded bool
	memory   map[string][]byte
}

// New creates a KV store rooted at dir. Keys are namespaced so several
// applications can share the directory.
func New(fs afero.Fs, dir, namespace string) *KV {
	return &KV{
		fs:        fs,
		dir:       dir,
		namespace: namespace,
		memory:    make(map[string][]byte),
	}
}

func (k *KV) path(key string) string {
	return filepath.Join(k.dir, k.namespace+"-"+key+".json")
}

// Save writes a JSON document under the key.
func (k *KV) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to encode document")
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.degraded {
		if err := k.writeFile(key, data); err != nil {
			k.degraded = true
			zlog.Warn().Err(err).Str("key", key).
				Msg("persist: storage unavailable, continuing in-memory for this session")
		} else {
			return nil
		}
	}
	k.memory[key] = data
	return nil
}

// Load reads the document stored under the key into v. The first result is
// false when nothing is stored.
func (k *KV) Load(key string, v any) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var data []byte
	if k.degraded {
		var ok bool
		if data, ok = k.memory[key]; !ok {
			return false, nil
		}
	} else {
		var err error
		data, err = afero.ReadFile(k.fs, k.path(key))
		if err != nil {
			if isNotExist(err) {
				return false, nil
			}
			return false, errors.Wrap(err, "failed to read document")
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "failed to decode document")
	}
	return true, nil
}

// Delete removes the document stored under the key.
func (k *KV) Delete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	delete(k.memory, key)
	if k.degraded {
		return nil
	}
	if err := k.fs.Remove(k.path(key)); err != nil && !isNotExist(err) {
		return errors.Wrap(err, "failed to remove document")
	}
	return nil
}

// writeFile writes atomically: temp file then rename.
func (k *KV) writeFile(key string, data []byte) error {
	if err := k.fs.MkdirAll(k.dir, 0o755); err != nil {
		return err
	}
	tmp := k.path(key) + ".tmp"
	if err := afero.WriteFile(k.fs, tmp, data, 0o644); err != nil {
		return err
	}
	return k.fs.Rename(tmp, k.path(key))
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
