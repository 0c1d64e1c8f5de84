package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/garvnn/meetup/pkg/models"
	"github.com/garvnn/meetup/pkg/store"
)

func setup(t *testing.T) *Queue {
	t.Helper()
	if store.Ready() {
		_ = store.Close()
	}
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	q, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return q
}

func TestDrainAllSucceed(t *testing.T) {
	q := setup(t)
	for _, text := range []string{"one", "two", "three"} {
		if _, err := q.Enqueue("m1", "u1", "Ann", text, models.KindChat); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	var sent []string
	delivered, remaining := q.DrainAndRetry(context.Background(), func(ctx context.Context, qm models.QueuedMessage) error {
		sent = append(sent, qm.Text)
		return nil
	})
	if delivered != 3 || remaining != 0 {
		t.Fatalf("delivered=%d remaining=%d", delivered, remaining)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
	if len(sent) != 3 || sent[0] != "one" || sent[1] != "two" || sent[2] != "three" {
		t.Fatalf("wrong delivery order: %v", sent)
	}
}

func TestDrainKeepsFailedEntry(t *testing.T) {
	q := setup(t)
	for _, text := range []string{"one", "two", "three"} {
		if _, err := q.Enqueue("m1", "u1", "Ann", text, models.KindChat); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	delivered, remaining := q.DrainAndRetry(context.Background(), func(ctx context.Context, qm models.QueuedMessage) error {
		if qm.Text == "two" {
			return errors.New("backend unreachable")
		}
		return nil
	})
	if delivered != 2 || remaining != 1 {
		t.Fatalf("delivered=%d remaining=%d", delivered, remaining)
	}
	left := q.Entries()
	if len(left) != 1 || left[0].Text != "two" {
		t.Fatalf("expected only failed entry to remain, got %+v", left)
	}
}

func TestQueueSurvivesReload(t *testing.T) {
	q := setup(t)
	if _, err := q.Enqueue("m1", "u1", "Ann", "held", models.KindChat); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// a fresh queue over the same store picks the entry back up
	q2, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if q2.Len() != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", q2.Len())
	}
	// sequence numbers keep advancing past the persisted entries
	if _, err := q2.Enqueue("m1", "u1", "Ann", "later", models.KindChat); err != nil {
		t.Fatalf("Enqueue after reload: %v", err)
	}
	entries := q2.Entries()
	if len(entries) != 2 || entries[0].Text != "held" || entries[1].Text != "later" {
		t.Fatalf("unexpected entries after reload: %+v", entries)
	}
}
