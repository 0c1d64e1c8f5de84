package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/models"
)

var (
	db     *pebble.DB
	dbPath string
)

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_cache_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("cache_open_failed", "path", path, "error", err)
		return err
	}
	dbPath = path
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
	logger.Info("cache_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

// Path returns the directory the cache was opened at.
func Path() string { return dbPath }

// Message keys: conv:<meetupID>:msg:<%020d ts-ms>-<%06d idx>. The padded
// timestamp keeps pebble's key order aligned with chronological order; the
// index part preserves arrival order for equal timestamps.
func convPrefix(meetupID string) []byte {
	return []byte("conv:" + meetupID + ":msg:")
}

func msgKey(meetupID string, ts int64, idx int) []byte {
	return []byte(fmt.Sprintf("conv:%s:msg:%020d-%06d", meetupID, ts, idx))
}

// prefixEnd returns the exclusive upper bound for a key prefix scan.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	return append(end, 0xff)
}

// SaveMessages replaces the entire cached message list for a conversation.
// Callers must pass the full reconciled list; this is a total rewrite of
// the conversation's key range, not an append.
func SaveMessages(meetupID string, msgs []models.Message) error {
	if db == nil {
		return fmt.Errorf("cache not opened; call store.Open first")
	}
	prefix := convPrefix(meetupID)
	batch := db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
		return err
	}
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message %s: %w", m.ID, err)
		}
		if err := batch.Set(msgKey(meetupID, m.TS, i), data, nil); err != nil {
			return err
		}
	}
	if err := db.Apply(batch, pebble.Sync); err != nil {
		logger.Error("save_messages_failed", "meetup", meetupID, "error", err)
		return err
	}
	logger.Debug("messages_saved", "meetup", meetupID, "count", len(msgs))
	return nil
}

// LoadMessages returns the cached message list for a conversation in key
// order. It never fails: storage problems are logged and an empty (or
// partial) list is returned so callers always have something to render.
func LoadMessages(meetupID string) []models.Message {
	if db == nil {
		logger.Warn("load_messages_no_cache", "meetup", meetupID)
		return nil
	}
	prefix := convPrefix(meetupID)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		logger.Error("load_messages_iter_failed", "meetup", meetupID, "error", err)
		return nil
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			logger.Warn("load_messages_bad_entry", "meetup", meetupID, "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		logger.Error("load_messages_iter_error", "meetup", meetupID, "error", err)
	}
	return out
}

// PruneOlderThan removes cached entries whose timestamp precedes
// now - days. This is advisory housekeeping, not correctness-critical.
// Returns the number of entries removed.
func PruneOlderThan(meetupID string, days int) (int, error) {
	if db == nil {
		return 0, fmt.Errorf("cache not opened; call store.Open first")
	}
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()
	prefix := convPrefix(meetupID)
	end := msgKey(meetupID, cutoff, 0)

	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	removed := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) || bytes.Compare(iter.Key(), end) >= 0 {
			break
		}
		removed++
	}
	if err := iter.Close(); err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}
	if err := db.DeleteRange(prefix, end, pebble.Sync); err != nil {
		logger.Error("prune_failed", "meetup", meetupID, "error", err)
		return 0, err
	}
	logger.Info("cache_pruned", "meetup", meetupID, "removed", removed, "days", days)
	return removed, nil
}

// ListConversations returns the IDs of all conversations with cached
// messages, in key order.
func ListConversations() ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("cache not opened; call store.Open first")
	}
	prefix := []byte("conv:")
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	var last string
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		k := string(iter.Key())
		if !strings.HasPrefix(k, "conv:") {
			break
		}
		rest := strings.TrimPrefix(k, "conv:")
		id, _, ok := strings.Cut(rest, ":msg:")
		if !ok || id == last {
			continue
		}
		out = append(out, id)
		last = id
	}
	return out, iter.Error()
}
