// Package store is the widget's durable key/value layer on Pebble. It
// caches conversations, user identity, settings, the device id and the
// short-lived chat token across page loads. The in-memory state owned by
// the synchronizer stays authoritative during a session; this cache only
// serves warm starts.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"tpchat/pkg/logger"
	"tpchat/pkg/metrics"
)

var db *pebble.DB

// Open opens (or creates) a Pebble database at the given path and keeps a
// global handle for simple usage in this package.
func Open(path string) error {
	var err error
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// SetJSON marshals v and stores it under key.
func SetJSON(key string, v any) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := db.Set([]byte(key), data, pebble.Sync); err != nil {
		metrics.StoreWrites.WithLabelValues("error").Inc()
		logger.Error("store_set_failed", "key", key, "error", err)
		return err
	}
	metrics.StoreWrites.WithLabelValues("ok").Inc()
	return nil
}

// GetJSON loads key into v. Returns pebble.ErrNotFound when absent.
func GetJSON(key string, v any) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	raw, closer, err := db.Get([]byte(key))
	if err != nil {
		return err
	}
	defer closer.Close()
	return json.Unmarshal(raw, v)
}

// Has reports whether key exists.
func Has(key string) bool {
	if db == nil {
		return false
	}
	_, closer, err := db.Get([]byte(key))
	if err != nil {
		return false
	}
	closer.Close()
	return true
}

// Remove deletes key. Deleting an absent key is not an error.
func Remove(key string) error {
	if db == nil {
		return fmt.Errorf("pebble not opened; call store.Open first")
	}
	if err := db.Delete([]byte(key), pebble.Sync); err != nil {
		logger.Error("store_delete_failed", "key", key, "error", err)
		return err
	}
	return nil
}

// ListKeys returns all keys starting with prefix.
func ListKeys(prefix string) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("pebble not opened; call store.Open first")
	}
	pfx := []byte(prefix)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for iter.SeekGE(pfx); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), pfx) {
			break
		}
		k := append([]byte(nil), iter.Key()...)
		out = append(out, string(k))
	}
	return out, iter.Error()
}

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	return err == pebble.ErrNotFound
}
