// Package queue holds messages that could not be delivered to the remote
// API, for retry when connectivity returns. Entries are persisted through
// the local pebble cache so they survive process restarts.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/models"
	"github.com/garvnn/meetup/pkg/store"
)

var (
	enqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetup_queue_enqueued_total",
		Help: "Messages accepted into the pending-send queue.",
	})
	deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetup_queue_delivered_total",
		Help: "Queued messages delivered during a drain.",
	})
	retryFailTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetup_queue_retry_failures_total",
		Help: "Send attempts that failed during a drain.",
	})
)

// SendFunc attempts remote delivery of a single queued message.
type SendFunc func(ctx context.Context, qm models.QueuedMessage) error

// Queue is a durable FIFO of messages pending remote delivery. It is safe
// for concurrent use; persistence goes through the package-global store.
type Queue struct {
	mu      sync.Mutex
	nextSeq uint64
	now     func() time.Time
}

// Load opens the queue over the current store, resuming the sequence
// counter from any entries persisted by a previous run.
func Load() (*Queue, error) {
	entries, err := store.LoadQueued()
	if err != nil {
		return nil, err
	}
	q := &Queue{nextSeq: 1, now: time.Now}
	if n := len(entries); n > 0 {
		q.nextSeq = entries[n-1].Seq + 1
		logger.Info("queue_recovered", "pending", n)
	}
	return q, nil
}

// Enqueue appends a message with a generated queue ID and the current
// timestamp, persisting it immediately.
func (q *Queue) Enqueue(meetupID, senderID, senderName, text string, kind models.MessageKind) (models.QueuedMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	qm := models.QueuedMessage{
		QueueID:    uuid.NewString(),
		MeetupID:   meetupID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       text,
		Kind:       kind,
		EnqueuedAt: q.now().UTC().UnixMilli(),
	}
	if err := store.AppendQueued(q.nextSeq, qm); err != nil {
		return models.QueuedMessage{}, err
	}
	q.nextSeq++
	enqueuedTotal.Inc()
	logger.Info("message_queued", "queue_id", qm.QueueID, "meetup", meetupID)
	return qm, nil
}

// DrainAndRetry walks the queue in FIFO order invoking send for each
// entry. Successful sends are removed from the persisted queue; failures
// are kept and do not block later entries. Returns how many entries were
// delivered and how many remain.
func (q *Queue) DrainAndRetry(ctx context.Context, send SendFunc) (delivered, remaining int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entries, err := store.LoadQueued()
	if err != nil {
		logger.Error("queue_drain_load_failed", "error", err)
		return 0, 0
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			remaining++
			continue
		}
		if err := send(ctx, e.Msg); err != nil {
			retryFailTotal.Inc()
			logger.Warn("queue_retry_failed", "queue_id", e.Msg.QueueID, "error", err)
			remaining++
			continue
		}
		if err := store.DeleteQueued(e.Seq); err != nil {
			// delivered but not removed; the next drain will retry and the
			// receiver-side dedup absorbs the duplicate
			logger.Error("queue_remove_failed", "queue_id", e.Msg.QueueID, "error", err)
			remaining++
			continue
		}
		deliveredTotal.Inc()
		delivered++
	}
	if delivered > 0 || remaining > 0 {
		logger.Info("queue_drained", "delivered", delivered, "remaining", remaining)
	}
	return delivered, remaining
}

// Len reports the number of persisted pending entries.
func (q *Queue) Len() int {
	entries, err := store.LoadQueued()
	if err != nil {
		return 0
	}
	return len(entries)
}

// Entries returns a snapshot of pending messages in FIFO order.
func (q *Queue) Entries() []models.QueuedMessage {
	entries, err := store.LoadQueued()
	if err != nil {
		return nil
	}
	out := make([]models.QueuedMessage, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Msg)
	}
	return out
}
