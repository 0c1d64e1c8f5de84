package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/models"
)

// Pending-send queue entries live under a single fixed prefix. The padded
// sequence number gives FIFO ordering under pebble's key sort.
const queuePrefix = "queue:pending:"

func queueKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", queuePrefix, seq))
}

// QueuedEntry pairs a persisted QueuedMessage with its storage sequence.
type QueuedEntry struct {
	Seq uint64
	Msg models.QueuedMessage
}

// AppendQueued persists a queued message under the given sequence.
func AppendQueued(seq uint64, qm models.QueuedMessage) error {
	if db == nil {
		return fmt.Errorf("cache not opened; call store.Open first")
	}
	data, err := json.Marshal(qm)
	if err != nil {
		return fmt.Errorf("failed to marshal queued message: %w", err)
	}
	if err := db.Set(queueKey(seq), data, pebble.Sync); err != nil {
		logger.Error("queue_append_failed", "queue_id", qm.QueueID, "error", err)
		return err
	}
	return nil
}

// DeleteQueued removes a queue entry after successful delivery.
func DeleteQueued(seq uint64) error {
	if db == nil {
		return fmt.Errorf("cache not opened; call store.Open first")
	}
	return db.Delete(queueKey(seq), pebble.Sync)
}

// LoadQueued returns all persisted queue entries in enqueue order.
func LoadQueued() ([]QueuedEntry, error) {
	if db == nil {
		return nil, fmt.Errorf("cache not opened; call store.Open first")
	}
	prefix := []byte(queuePrefix)
	iter, err := db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []QueuedEntry
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		seqStr := strings.TrimPrefix(string(iter.Key()), queuePrefix)
		seq, err := strconv.ParseUint(seqStr, 10, 64)
		if err != nil {
			logger.Warn("queue_bad_key", "key", string(iter.Key()))
			continue
		}
		var qm models.QueuedMessage
		if err := json.Unmarshal(iter.Value(), &qm); err != nil {
			logger.Warn("queue_bad_entry", "key", string(iter.Key()), "error", err)
			continue
		}
		out = append(out, QueuedEntry{Seq: seq, Msg: qm})
	}
	return out, iter.Error()
}
