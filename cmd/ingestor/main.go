package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"stayscore/internal/adapters/observability"
	redisad "stayscore/internal/adapters/redis"
	"stayscore/internal/adapters/scraper"
	"stayscore/internal/app"
	"stayscore/internal/domain"
	"stayscore/internal/nlp"
	"stayscore/internal/shared"
	mysqlrepo "stayscore/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.AgentBaseURL).
		Int("workers", cfg.Workers).
		Int("fetch_limit", cfg.FetchLimit).
		Msg("ingestor starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	client, err := scraper.New(cfg.AgentBaseURL, cfg.AgentKey, cfg.AgentRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize scraper client")
	}
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ing := app.NewIngestionService(client, repo, cache)

	// one worker per platform, bounded
	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup
	for _, p := range domain.Platforms {
		p := p

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(p domain.Platform) {
			defer wg.Done()
			defer sem.Release(1)

			rep, err := ing.IngestPlatform(ctx, p, cfg.FetchLimit)
			if err != nil {
				log.Warn().Str("platform", string(p)).Err(err).Msg("ingest failed")
				return
			}
			log.Info().
				Str("platform", string(p)).
				Int("new", rep.New).
				Int("duplicates", rep.Duplicates).
				Int("skipped", rep.Skipped).
				Msg("ingest ok")
		}(p)
	}
	wg.Wait()

	// classify whatever the ingest run (or a previous one) left pending
	labels := nlp.Thresholds{Positive: cfg.PositiveThreshold, Negative: cfg.NegativeThreshold}
	proc := app.NewProcessingService(repo, nlp.NewScorer(), labels, cfg.CriterionKeywords, cfg.Workers, cache)
	rep, err := proc.ProcessPending(ctx, cfg.BatchLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("processing failed")
	}
	log.Info().
		Int("claimed", rep.Claimed).
		Int("processed", rep.Processed).
		Int("failed", rep.Failed).
		Msg("ingestion completed")
}
