// Command seed loads a demo project into the configured stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rezaarrazi-sqe/langfuse/internal/config"
	"github.com/rezaarrazi-sqe/langfuse/internal/logger"
	"github.com/rezaarrazi-sqe/langfuse/internal/repository"
)

func main() {
	project := flag.String("project", "demo", "project id to seed")
	runs := flag.Int("runs", 2, "number of dataset runs")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := repository.NewSQLiteStore(cfg.Database.SQLiteDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open sqlite store")
	}
	defer db.Close()

	s := &seeder{store: db, projectID: *project, now: time.Now().UTC()}
	if cfg.Database.PostgresURL != "" {
		events, err := repository.NewPostgresEventStore(ctx, cfg.Database.PostgresURL, repository.PostgresOptions{Logger: log})
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres event store")
		}
		defer events.Close()
		s.events = events
	}

	summary, err := s.seed(ctx, *runs)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().
		Str("project_id", *project).
		Str("dataset_id", summary.DatasetID).
		Strs("run_ids", summary.RunIDs).
		Int("items", summary.Items).
		Int("events", summary.Events).
		Msg("seeded")
}
