package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"

	"questacademy/internal/cache"
	"questacademy/internal/config"
	"questacademy/internal/database"
	"questacademy/internal/models"
	"questacademy/internal/repository"
	"questacademy/internal/service"
)

// The sync agent runs next to an offline-capable deployment. Counter writes
// land in a local SQLite cache; the agent pushes them to the central store
// on a schedule and pulls the merged values back down.
func main() {
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runCache := runCmd.String("cache", "./sync_cache.db", "Path to the local cache database")

	sweepCmd := flag.NewFlagSet("sweep", flag.ExitOnError)
	sweepCache := sweepCmd.String("cache", "./sync_cache.db", "Path to the local cache database")

	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)
	statusCache := statusCmd.String("cache", "./sync_cache.db", "Path to the local cache database")

	recordCmd := flag.NewFlagSet("record", flag.ExitOnError)
	recordCache := recordCmd.String("cache", "./sync_cache.db", "Path to the local cache database")
	recordUser := recordCmd.Int64("user", 0, "User ID")
	recordName := recordCmd.String("name", "", "Counter name (xp, best_streak)")
	recordValue := recordCmd.Int64("value", 0, "Counter value")

	syncCmd := flag.NewFlagSet("sync", flag.ExitOnError)
	syncCache := syncCmd.String("cache", "./sync_cache.db", "Path to the local cache database")
	syncUser := syncCmd.Int64("user", 0, "User ID (0 reconciles every cached user)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "run":
		runCmd.Parse(os.Args[2:])
		handleRun(cfg, *runCache)

	case "sweep":
		sweepCmd.Parse(os.Args[2:])
		handleSweep(cfg, *sweepCache)

	case "status":
		statusCmd.Parse(os.Args[2:])
		handleStatus(*statusCache)

	case "record":
		recordCmd.Parse(os.Args[2:])
		handleRecord(*recordCache, *recordUser, *recordName, *recordValue)

	case "sync":
		syncCmd.Parse(os.Args[2:])
		handleSync(cfg, *syncCache, *syncUser)

	default:
		printUsage()
		os.Exit(1)
	}
}

func openSync(cfg *config.Config, cachePath string) (*service.SyncService, *cache.Store, *database.DB, error) {
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to remote store: %w", err)
	}

	local, err := cache.Open(cachePath)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	walletRepo := repository.NewWalletRepository(db)
	sync := service.NewSyncService(local, walletRepo, cfg.SyncRetryMax, cfg.SyncRetryBase)
	return sync, local, db, nil
}

// handleRun reconciles every cached user with the remote store on a fixed
// schedule until interrupted. Each pass pushes local writes up and pulls
// newer remote values down.
func handleRun(cfg *config.Config, cachePath string) {
	sync, local, db, err := openSync(cfg, cachePath)
	if err != nil {
		log.Fatalf("Failed to start sync agent: %v", err)
	}
	defer db.Close()
	defer local.Close()

	scheduler := gocron.NewScheduler(time.UTC)
	_, err = scheduler.Every(cfg.SyncSweepSecs).Seconds().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.SyncSweepSecs)*time.Second)
		defer cancel()

		users, err := local.Users()
		if err != nil {
			log.Printf("Failed to list cached users: %v", err)
			return
		}
		for _, userID := range users {
			if _, err := sync.SyncUser(ctx, userID); err != nil {
				log.Printf("Sync failed for user %d, counters stay dirty: %v", userID, err)
				continue
			}
			if state := sync.State(userID); state == service.StateConflictResolved {
				log.Printf("Reconciled diverged counters for user %d", userID)
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule sweep: %v", err)
	}

	scheduler.StartAsync()
	log.Printf("Sync agent running: cache=%s interval=%ds", cachePath, cfg.SyncSweepSecs)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Sync agent stopping...")
	scheduler.Stop()
}

// handleSweep pushes all dirty counters once and exits
func handleSweep(cfg *config.Config, cachePath string) {
	sync, local, db, err := openSync(cfg, cachePath)
	if err != nil {
		log.Fatalf("Failed to open sync: %v", err)
	}
	defer db.Close()
	defer local.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pushed, err := sync.SweepDirty(ctx)
	if err != nil {
		log.Fatalf("Sweep failed after pushing %d counters: %v", pushed, err)
	}
	fmt.Printf("Pushed %d counters\n", pushed)
}

// handleStatus lists counters waiting to be pushed, without touching the
// remote store
func handleStatus(cachePath string) {
	local, err := cache.Open(cachePath)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer local.Close()

	dirty, err := local.DirtyCounters()
	if err != nil {
		log.Fatalf("Failed to list dirty counters: %v", err)
	}

	if len(dirty) == 0 {
		fmt.Println("Cache is clean")
		return
	}

	fmt.Printf("%d counters awaiting push:\n", len(dirty))
	for _, d := range dirty {
		fmt.Printf("  user=%d %s=%d\n", d.UserID, d.Name, d.Value)
	}
}

// handleRecord writes a counter value into the local cache, marking it
// dirty for the next push. Works entirely offline.
func handleRecord(cachePath string, userID int64, name string, value int64) {
	if userID <= 0 || value < 0 {
		log.Fatalf("record needs a positive -user and a non-negative -value")
	}
	valid := false
	for _, n := range models.SyncedCounterNames() {
		if n == name {
			valid = true
			break
		}
	}
	if !valid {
		log.Fatalf("Counter %q is not synced; valid names: %v", name, models.SyncedCounterNames())
	}

	local, err := cache.Open(cachePath)
	if err != nil {
		log.Fatalf("Failed to open cache: %v", err)
	}
	defer local.Close()

	// No remote connection: recording must work while the store is down.
	sync := service.NewSyncService(local, nil, 1, 0)
	if err := sync.RecordLocal(userID, name, value); err != nil {
		log.Fatalf("Failed to record counter: %v", err)
	}

	stored, err := local.GetCounter(userID, name)
	if err != nil {
		log.Fatalf("Failed to read back counter: %v", err)
	}
	fmt.Printf("user=%d %s=%d (awaiting push)\n", userID, name, stored)
}

// handleSync reconciles one user, or every cached user, with the remote
// store once and exits
func handleSync(cfg *config.Config, cachePath string, userID int64) {
	sync, local, db, err := openSync(cfg, cachePath)
	if err != nil {
		log.Fatalf("Failed to open sync: %v", err)
	}
	defer db.Close()
	defer local.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	users := []int64{userID}
	if userID == 0 {
		users, err = local.Users()
		if err != nil {
			log.Fatalf("Failed to list cached users: %v", err)
		}
		if len(users) == 0 {
			fmt.Println("Cache is empty, nothing to reconcile")
			return
		}
	}

	for _, uid := range users {
		resolutions, err := sync.SyncUser(ctx, uid)
		if err != nil {
			log.Fatalf("Sync failed for user %d: %v", uid, err)
		}
		fmt.Printf("user=%d state=%s\n", uid, sync.State(uid))
		for _, res := range resolutions {
			direction := "in sync"
			switch {
			case res.WriteRemote:
				direction = "pushed"
			case res.WriteLocal:
				direction = "pulled"
			}
			fmt.Printf("  %s=%d (%s)\n", res.Name, res.Resolved, direction)
		}
	}
}

func printUsage() {
	fmt.Println("Usage: syncagent <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run     Reconcile cached counters with the remote store on a schedule")
	fmt.Println("  sync    Reconcile one user (or all cached users) once and exit")
	fmt.Println("  sweep   Push all dirty counters once and exit")
	fmt.Println("  record  Write a counter value into the local cache (works offline)")
	fmt.Println("  status  List counters awaiting push")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -cache  Path to the local cache database (default ./sync_cache.db)")
	fmt.Println("  -user   User ID (record, sync)")
	fmt.Println("  -name   Counter name (record)")
	fmt.Println("  -value  Counter value (record)")
}
