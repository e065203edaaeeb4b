package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ratingengine/server/feed"
	"ratingengine/server/obs"
	"ratingengine/server/pipeline"
	"ratingengine/server/store"
)

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func mustEnv(keys ...string) {
	for _, k := range keys {
		if strings.TrimSpace(os.Getenv(k)) == "" {
			log.Fatalf("missing required env var %s; set it in .env (dev) or on the host (prod)", k)
		}
	}
}

func openStore(ctx context.Context) *store.DB {
	path := getenv("RATINGS_DB_PATH", "ratings.sqlite")
	db, err := store.Open(path)
	if err != nil {
		log.Fatalf("open %s: %v", path, err)
	}
	return db
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "ratingengine",
		Short: "Fighting-game replay ingestion and Glicko-2 rating engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	root.AddCommand(
		initDBCmd(),
		resetDBCmd(),
		resetNamesCmd(),
		resetDistributionCmd(),
		loadJSONCmd(),
		runCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func initDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the schema if it does not already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := openStore(ctx)
			defer db.Close()
			if err := pipeline.InitDB(ctx, db); err != nil {
				return err
			}
			log.Println("init-db: schema ready")
			return nil
		},
	}
}

func resetDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-db",
		Short: "Drop and recreate every table derived from games",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := openStore(ctx)
			defer db.Close()
			if err := pipeline.ResetDB(ctx, db); err != nil {
				return err
			}
			log.Println("reset-db: ratings, matchups, and distributions cleared")
			return nil
		},
	}
}

func resetNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-names",
		Short: "Rebuild the players table by replaying recorded games",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := openStore(ctx)
			defer db.Close()
			if err := pipeline.ResetNames(ctx, db); err != nil {
				return err
			}
			log.Println("reset-names: players table rebuilt")
			return nil
		},
	}
}

func resetDistributionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-distribution",
		Short: "Recompute the floor and rating distribution tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := openStore(ctx)
			defer db.Close()
			if err := pipeline.ResetDistribution(ctx, db); err != nil {
				return err
			}
			log.Println("reset-distribution: snapshot tables rebuilt")
			return nil
		},
	}
}

func loadJSONCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load-json <dir>",
		Short: "Bulk-import games from a directory of JSON files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := openStore(ctx)
			defer db.Close()
			return pipeline.LoadJSONDir(ctx, db, args[0])
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ingest and rating ticks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer wires the ingest and rating tasks together and runs them on a
// fixed 60-second cadence, each independently, until the process receives
// an interrupt or one task fails fatally.
func runServer(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	db := openStore(ctx)
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	mustEnv("REPLAY_FEED_BASE_URL")
	feedClient := feed.NewHTTPFeed(getenv("REPLAY_FEED_BASE_URL", ""), getenv("REPLAY_FEED_API_KEY", ""))

	ingester := pipeline.NewIngester(feedClient, db)
	updater := pipeline.NewUpdater(db)
	metrics := obs.NewMetrics()

	healthAddr := getenv("HEALTH_ADDR", ":8089")
	healthSrv := &http.Server{Addr: healthAddr, Handler: obs.Router(metrics)}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server: %v", err)
		}
	}()
	defer healthSrv.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return tick(gctx, 60*time.Second, func() error {
			var before, after int
			_ = db.QueryRowContext(gctx, `SELECT COUNT(*) FROM games`).Scan(&before)
			err := ingester.Tick(gctx)
			_ = db.QueryRowContext(gctx, `SELECT COUNT(*) FROM games`).Scan(&after)
			metrics.IngestTick(after-before, err)
			return err
		})
	})

	g.Go(func() error {
		return tick(gctx, 60*time.Second, func() error {
			err := updater.RunDue(gctx)
			metrics.RatingWindow(err)
			if last, lastErr := db.LastUpdate(gctx); lastErr == nil {
				metrics.SetCursorLag(time.Since(last))
			}
			return err
		})
	})

	return g.Wait()
}

// tick runs fn immediately, then every interval, stopping when ctx is
// cancelled or fn returns a fatal error. A task error is fatal to the
// process by design — this is a batch analytics worker, not a service
// that should silently keep limping.
func tick(ctx context.Context, interval time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fn(); err != nil {
				return err
			}
		}
	}
}
