package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Small user preference entries (API base URL, theme, cached tokens).
// These carry no cross-device consistency guarantees.

func prefKey(name string) []byte { return []byte("pref:" + name) }

// SetPref stores a preference value under the given name.
func SetPref(name, value string) error {
	if db == nil {
		return fmt.Errorf("cache not opened; call store.Open first")
	}
	return db.Set(prefKey(name), []byte(value), pebble.Sync)
}

// GetPref returns the stored preference value, or ok=false if absent.
func GetPref(name string) (string, bool) {
	if db == nil {
		return "", false
	}
	v, closer, err := db.Get(prefKey(name))
	if err != nil {
		// pebble.ErrNotFound and read errors both resolve to "no value"
		return "", false
	}
	out := string(v)
	if closer != nil {
		_ = closer.Close()
	}
	return out, true
}
