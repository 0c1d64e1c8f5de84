// Package sync reconciles the local cache, newly composed optimistic
// entries and remote fetch results into one deduplicated, time-ordered
// list per conversation. No operation in this package raises a hard
// error: every path resolves to a usable message list.
package sync

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garvnn/meetup/pkg/client"
	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/models"
	"github.com/garvnn/meetup/pkg/queue"
	"github.com/garvnn/meetup/pkg/store"
)

// DedupWindow is how close two timestamps may be for messages with the
// same sender and text to count as the same message.
const DedupWindow = 5 * time.Second

// Outcome reports how a send resolved. The UI layer maps these to
// sending/sent/queued status markers.
type Outcome string

const (
	// OutcomeSent: delivered remotely, cache holds the durable ID.
	OutcomeSent Outcome = "sent"
	// OutcomeQueued: backend unreachable, message parked for retry.
	OutcomeQueued Outcome = "queued"
	// OutcomeCommitted: backend reachable but rejected the message; it
	// stays locally visible and is not retried.
	OutcomeCommitted Outcome = "committed"
	// OutcomeDeduped: an identical recent message was already cached.
	OutcomeDeduped Outcome = "deduped"
)

var (
	sendTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetup_sync_send_total",
		Help: "SendMessage results by outcome.",
	}, []string{"outcome"})
	fetchFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetup_sync_fetch_fallback_total",
		Help: "GetMessages calls served from cache after a remote failure.",
	})
)

// Engine merges cached, optimistic and remote messages for a conversation.
type Engine struct {
	Client *client.Client
	Queue  *queue.Queue
	// Now is swappable for tests.
	Now func() time.Time
}

// New returns an Engine over the given API client and pending queue.
func New(c *client.Client, q *queue.Queue) *Engine {
	return &Engine{Client: c, Queue: q, Now: time.Now}
}

// sameMessage implements the de-duplication rule: same sender, same text,
// timestamps within DedupWindow.
func sameMessage(a, b models.Message) bool {
	if a.SenderID != b.SenderID || a.Text != b.Text {
		return false
	}
	d := a.TS - b.TS
	if d < 0 {
		d = -d
	}
	return d <= DedupWindow.Milliseconds()
}

// SendMessage composes a message, guards against double-submit, persists it
// optimistically and attempts remote delivery. It never returns an error;
// the Outcome tells the caller how the send resolved.
func (e *Engine) SendMessage(ctx context.Context, meetupID, senderID, senderName, text string, kind models.MessageKind) Outcome {
	now := e.Now().UTC()
	cand := models.Message{
		ID:         "temp-" + uuid.NewString(),
		MeetupID:   meetupID,
		Text:       text,
		SenderID:   senderID,
		SenderName: senderName,
		TS:         now.UnixMilli(),
		Kind:       kind,
	}

	msgs := store.LoadMessages(meetupID)
	for _, m := range msgs {
		if sameMessage(cand, m) {
			// double-submit from a UI re-render race; keep the one copy
			sendTotal.WithLabelValues(string(OutcomeDeduped)).Inc()
			logger.Debug("send_deduped", "meetup", meetupID, "sender", senderID)
			return OutcomeDeduped
		}
	}

	msgs = append(msgs, cand)
	if err := store.SaveMessages(meetupID, msgs); err != nil {
		logger.Warn("optimistic_save_failed", "meetup", meetupID, "error", err)
	}

	resp, err := e.Client.SendMessage(ctx, client.SendMessageRequest{
		MeetupID:    meetupID,
		UserID:      senderID,
		UserName:    senderName,
		Message:     text,
		MessageType: string(kind),
	})
	switch {
	case err != nil && client.IsNetworkError(err):
		if _, qerr := e.Queue.Enqueue(meetupID, senderID, senderName, text, kind); qerr != nil {
			logger.Error("enqueue_failed", "meetup", meetupID, "error", qerr)
		}
		sendTotal.WithLabelValues(string(OutcomeQueued)).Inc()
		return OutcomeQueued
	case err != nil:
		// reachable backend rejected the message; likely a schema or
		// validation mismatch, not transience, so no retry queue
		logger.Warn("send_rejected", "meetup", meetupID, "error", err)
		sendTotal.WithLabelValues(string(OutcomeCommitted)).Inc()
		return OutcomeCommitted
	case !resp.Success:
		logger.Warn("send_unsuccessful", "meetup", meetupID)
		sendTotal.WithLabelValues(string(OutcomeCommitted)).Inc()
		return OutcomeCommitted
	}

	// swap the temporary ID for the durable server ID, same text/sender/ts
	for i := range msgs {
		if msgs[i].ID == cand.ID {
			msgs[i].ID = resp.MessageID
			break
		}
	}
	if err := store.SaveMessages(meetupID, msgs); err != nil {
		logger.Warn("durable_id_save_failed", "meetup", meetupID, "error", err)
	}
	sendTotal.WithLabelValues(string(OutcomeSent)).Inc()
	return OutcomeSent
}

// GetMessages loads the cached list, attempts a remote fetch, merges and
// persists the reconciled list, and returns the requested page. On remote
// failure the cached page is returned directly.
//
// The remote request always starts at offset 0 and covers the whole
// window up to offset+limit: merging can only shrink the combined list,
// so slicing the requested page happens exactly once, on the merged
// result. Fetching an already-offset remote page and slicing again would
// drop entries at the front of the page.
func (e *Engine) GetMessages(ctx context.Context, meetupID, userID string, limit, offset int) []models.Message {
	cached := store.LoadMessages(meetupID)

	window := 0
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		window = offset + limit
	}
	resp, err := e.Client.GetMessages(ctx, client.GetMessagesRequest{
		MeetupID: meetupID,
		UserID:   userID,
		Limit:    window,
	})
	if err != nil || !resp.Success {
		fetchFallbackTotal.Inc()
		logger.Debug("fetch_degraded_to_cache", "meetup", meetupID, "error", err)
		sortByTS(cached)
		return page(cached, limit, offset)
	}

	remote := make([]models.Message, 0, len(resp.Messages))
	for _, wm := range resp.Messages {
		remote = append(remote, fromWire(wm))
	}

	merged := merge(cached, remote)
	sortByTS(merged)
	if err := store.SaveMessages(meetupID, merged); err != nil {
		logger.Warn("merge_save_failed", "meetup", meetupID, "error", err)
	}
	return page(merged, limit, offset)
}

// DrainQueue retries pending sends through the API client. Intended to be
// invoked opportunistically, e.g. when the app returns to the foreground.
func (e *Engine) DrainQueue(ctx context.Context) (delivered, remaining int) {
	return e.Queue.DrainAndRetry(ctx, func(ctx context.Context, qm models.QueuedMessage) error {
		resp, err := e.Client.SendMessage(ctx, client.SendMessageRequest{
			MeetupID:    qm.MeetupID,
			UserID:      qm.SenderID,
			UserName:    qm.SenderName,
			Message:     qm.Text,
			MessageType: string(qm.Kind),
		})
		if err != nil {
			return err
		}
		if !resp.Success {
			return &client.APIError{Status: 200, Message: "send reported failure"}
		}
		return nil
	})
}

// merge keeps every remote entry (remote wins by ID) and any cached entry
// that has neither a remote ID counterpart nor a remote dedup match. This
// prevents an unsynced local send from appearing twice once the server
// catches up.
func merge(cached, remote []models.Message) []models.Message {
	remoteIDs := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		remoteIDs[r.ID] = struct{}{}
	}
	out := append([]models.Message(nil), remote...)
	for _, c := range cached {
		if _, ok := remoteIDs[c.ID]; ok {
			continue
		}
		dup := false
		for _, r := range remote {
			if sameMessage(c, r) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

func sortByTS(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].TS < msgs[j].TS })
}

func page(msgs []models.Message, limit, offset int) []models.Message {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(msgs) {
		return nil
	}
	end := len(msgs)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return msgs[offset:end]
}

func fromWire(wm client.WireMessage) models.Message {
	kind := models.KindChat
	if wm.MessageType == string(models.KindAnnouncement) {
		kind = models.KindAnnouncement
	}
	return models.Message{
		ID:         wm.ID,
		MeetupID:   wm.MeetupID,
		Text:       wm.Message,
		SenderID:   wm.UserID,
		SenderName: wm.UserName,
		TS:         wm.Timestamp,
		Kind:       kind,
	}
}
