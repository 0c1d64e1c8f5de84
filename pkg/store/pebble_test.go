package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/garvnn/meetup/pkg/models"
)

func setup(t *testing.T) {
	t.Helper()
	if Ready() {
		_ = Close()
	}
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func msg(id, sender, text string, ts int64) models.Message {
	return models.Message{ID: id, MeetupID: "m1", Text: text, SenderID: sender, TS: ts, Kind: models.KindChat}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	setup(t)
	in := []models.Message{
		msg("a", "u1", "first", 1000),
		msg("b", "u2", "second", 2000),
		msg("c", "u1", "third", 3000),
	}
	if err := SaveMessages("m1", in); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	got := LoadMessages("m1")
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, m := range got {
		if m.ID != in[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, in[i].ID, m.ID)
		}
	}
}

func TestSaveIsTotalReplacement(t *testing.T) {
	setup(t)
	if err := SaveMessages("m1", []models.Message{
		msg("a", "u1", "one", 1000),
		msg("b", "u1", "two", 2000),
		msg("c", "u1", "three", 3000),
	}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	if err := SaveMessages("m1", []models.Message{msg("z", "u9", "only", 500)}); err != nil {
		t.Fatalf("SaveMessages replace: %v", err)
	}
	got := LoadMessages("m1")
	if len(got) != 1 || got[0].ID != "z" {
		t.Fatalf("expected single message z, got %+v", got)
	}
}

func TestLoadMissingConversation(t *testing.T) {
	setup(t)
	if got := LoadMessages("nope"); len(got) != 0 {
		t.Fatalf("expected empty, got %d", len(got))
	}
}

func TestKeyOrderFollowsTimestamp(t *testing.T) {
	setup(t)
	// save out of order; key encoding must restore chronological order
	in := []models.Message{
		msg("new", "u1", "late", 9000),
		msg("old", "u1", "early", 1000),
	}
	// callers persist sorted lists; simulate an unsorted save and verify
	// load comes back in key (timestamp) order
	if err := SaveMessages("m1", in); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	got := LoadMessages("m1")
	if len(got) != 2 || got[0].ID != "old" || got[1].ID != "new" {
		t.Fatalf("expected old,new order, got %+v", got)
	}
}

func TestPruneOlderThan(t *testing.T) {
	setup(t)
	now := time.Now().UTC().UnixMilli()
	tenDaysAgo := now - 10*24*time.Hour.Milliseconds()
	if err := SaveMessages("m1", []models.Message{
		msg("old", "u1", "stale", tenDaysAgo),
		msg("new", "u1", "fresh", now),
	}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	removed, err := PruneOlderThan("m1", 7)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	got := LoadMessages("m1")
	if len(got) != 1 || got[0].ID != "new" {
		t.Fatalf("expected only fresh message, got %+v", got)
	}
}

func TestPruneZeroDaysIsNoop(t *testing.T) {
	setup(t)
	if err := SaveMessages("m1", []models.Message{msg("a", "u1", "x", 1)}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	removed, err := PruneOlderThan("m1", 0)
	if err != nil || removed != 0 {
		t.Fatalf("expected noop, got removed=%d err=%v", removed, err)
	}
}

func TestListConversations(t *testing.T) {
	setup(t)
	for _, id := range []string{"alpha", "beta"} {
		m := msg("a", "u1", "hi", 1000)
		m.MeetupID = id
		if err := SaveMessages(id, []models.Message{m}); err != nil {
			t.Fatalf("SaveMessages %s: %v", id, err)
		}
	}
	convs, err := ListConversations()
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(convs) != 2 || convs[0] != "alpha" || convs[1] != "beta" {
		t.Fatalf("unexpected conversations: %v", convs)
	}
}

func TestQueuePersistenceRoundtrip(t *testing.T) {
	setup(t)
	for i := uint64(1); i <= 3; i++ {
		qm := models.QueuedMessage{QueueID: fmt.Sprintf("q%d", i), MeetupID: "m1", SenderID: "u1", Text: "x", Kind: models.KindChat, EnqueuedAt: int64(i)}
		if err := AppendQueued(i, qm); err != nil {
			t.Fatalf("AppendQueued %d: %v", i, err)
		}
	}
	entries, err := LoadQueued()
	if err != nil {
		t.Fatalf("LoadQueued: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Seq != uint64(i+1) {
			t.Fatalf("expected seq %d at position %d, got %d", i+1, i, e.Seq)
		}
	}
	if err := DeleteQueued(2); err != nil {
		t.Fatalf("DeleteQueued: %v", err)
	}
	entries, err = LoadQueued()
	if err != nil {
		t.Fatalf("LoadQueued after delete: %v", err)
	}
	if len(entries) != 2 || entries[0].Seq != 1 || entries[1].Seq != 3 {
		t.Fatalf("unexpected entries after delete: %+v", entries)
	}
}

func TestPrefs(t *testing.T) {
	setup(t)
	if _, ok := GetPref("api_base_url"); ok {
		t.Fatal("expected missing pref")
	}
	if err := SetPref("api_base_url", "http://10.0.2.2:8000"); err != nil {
		t.Fatalf("SetPref: %v", err)
	}
	v, ok := GetPref("api_base_url")
	if !ok || v != "http://10.0.2.2:8000" {
		t.Fatalf("unexpected pref: %q ok=%v", v, ok)
	}
}
