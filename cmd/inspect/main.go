// Command inspect dumps the local cache: conversations with message
// counts and any pending queue entries.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/store"
)

func main() {
	var p string
	flag.StringVar(&p, "path", "", "cache db path")
	flag.Parse()
	if p == "" {
		fmt.Fprintln(os.Stderr, "--path required")
		os.Exit(2)
	}
	logger.Init()
	if err := store.Open(p); err != nil {
		fmt.Fprintf(os.Stderr, "open cache: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	convs, err := store.ListConversations()
	if err != nil {
		fmt.Fprintf(os.Stderr, "list conversations: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("conversations: %d\n", len(convs))
	for _, id := range convs {
		msgs := store.LoadMessages(id)
		fmt.Printf("  %s: %d messages\n", id, len(msgs))
		for _, m := range msgs {
			fmt.Printf("    %s ts=%d sender=%s kind=%s %q\n", m.ID, m.TS, m.SenderID, m.Kind, m.Text)
		}
	}

	pending, err := store.LoadQueued()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load queue: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("pending queue: %d\n", len(pending))
	for _, e := range pending {
		fmt.Printf("  seq=%d queue_id=%s meetup=%s %q\n", e.Seq, e.Msg.QueueID, e.Msg.MeetupID, e.Msg.Text)
	}
}
