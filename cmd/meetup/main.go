// Command meetup is a small CLI front for the client core: it drives the
// sync engine against a local cache directory and a remote backend, which
// makes the offline queue and merge behavior easy to exercise by hand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/garvnn/meetup/pkg/client"
	"github.com/garvnn/meetup/pkg/config"
	"github.com/garvnn/meetup/pkg/deeplink"
	"github.com/garvnn/meetup/pkg/logger"
	"github.com/garvnn/meetup/pkg/models"
	"github.com/garvnn/meetup/pkg/queue"
	"github.com/garvnn/meetup/pkg/retention"
	"github.com/garvnn/meetup/pkg/store"
	syncengine "github.com/garvnn/meetup/pkg/sync"
)

const apiURLPref = "api_base_url"

func main() {
	_ = godotenv.Load(".env")

	cfgFlag := flag.String("config", "./config.yaml", "path to config file")
	dbFlag := flag.String("db", "", "local cache path (overrides config)")
	apiFlag := flag.String("api", "", "API base URL (overrides config and stored preference)")

	healthFlag := flag.Bool("health", false, "probe the backend health endpoint")
	createFlag := flag.String("create", "", "create a meetup with the given title")
	joinFlag := flag.String("join", "", "join via invite token or deep link")
	sendFlag := flag.String("send", "", "send a message to -meetup")
	announceFlag := flag.Bool("announce", false, "send as announcement instead of chat")
	fetchFlag := flag.Bool("fetch", false, "fetch messages for -meetup")
	drainFlag := flag.Bool("drain", false, "retry queued messages")
	pruneFlag := flag.Int("prune", 0, "prune cached messages older than N days")

	meetupFlag := flag.String("meetup", "", "meetup id")
	userFlag := flag.String("user", "", "user id")
	nameFlag := flag.String("name", "", "display name")
	limitFlag := flag.Int("limit", 20, "fetch page size")
	offsetFlag := flag.Int("offset", 0, "fetch page offset")
	flag.Parse()

	cfg, err := config.Load(*cfgFlag)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.Logging.Level)

	dbPath := cfg.Cache.DBPath
	if *dbFlag != "" {
		dbPath = *dbFlag
	}
	if err := store.Open(dbPath); err != nil {
		log.Fatalf("failed to open cache at %s: %v", dbPath, err)
	}
	defer store.Close()

	// API URL resolution order: flag, config/env, stored preference.
	baseURL := cfg.Client.BaseURL
	if *apiFlag != "" {
		baseURL = *apiFlag
		_ = store.SetPref(apiURLPref, baseURL)
	} else if stored, ok := store.GetPref(apiURLPref); ok && os.Getenv("MEETUP_API_URL") == "" {
		baseURL = stored
	}

	api := client.New(baseURL, cfg.Client.Timeout.Duration())
	q, err := queue.Load()
	if err != nil {
		log.Fatalf("failed to load pending queue: %v", err)
	}
	engine := syncengine.New(api, q)
	ctx := context.Background()

	switch {
	case *healthFlag:
		h, err := api.Health(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "backend offline: %v\n", err)
			os.Exit(1)
		}
		printJSON(h)

	case *createFlag != "":
		resp, err := api.CreateMeetup(ctx, client.CreateMeetupRequest{
			Title:      *createFlag,
			Visibility: "private",
			HostID:     *userFlag,
			HostName:   *nameFlag,
		})
		if err != nil {
			log.Fatalf("create failed: %v", err)
		}
		printJSON(resp)

	case *joinFlag != "":
		token := *joinFlag
		if t, err := deeplink.Parse(token); err == nil {
			token = t
		}
		resp, err := api.AcceptInvite(ctx, client.AcceptInviteRequest{Token: token, UserID: *userFlag})
		if err != nil {
			log.Fatalf("join failed: %v", err)
		}
		printJSON(resp)

	case *sendFlag != "":
		requireMeetupAndUser(*meetupFlag, *userFlag)
		kind := models.KindChat
		if *announceFlag {
			kind = models.KindAnnouncement
		}
		outcome := engine.SendMessage(ctx, *meetupFlag, *userFlag, *nameFlag, *sendFlag, kind)
		fmt.Println(outcome)

	case *fetchFlag:
		requireMeetupAndUser(*meetupFlag, *userFlag)
		msgs := engine.GetMessages(ctx, *meetupFlag, *userFlag, *limitFlag, *offsetFlag)
		printJSON(msgs)

	case *drainFlag:
		delivered, remaining := engine.DrainQueue(ctx)
		fmt.Printf("delivered=%d remaining=%d\n", delivered, remaining)

	case *pruneFlag > 0:
		cfg.Retention.Days = *pruneFlag
		n, err := retention.RunOnce(cfg.Retention)
		if err != nil {
			log.Fatalf("prune failed: %v", err)
		}
		fmt.Printf("pruned=%d\n", n)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func requireMeetupAndUser(meetupID, userID string) {
	if meetupID == "" || userID == "" {
		fmt.Fprintln(os.Stderr, "-meetup and -user are required")
		os.Exit(2)
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode output: %v", err)
	}
	fmt.Println(string(b))
}
