package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/cache"
	"github.com/BoiseITGuru/project-toucans-v2/internal/config"
	"github.com/BoiseITGuru/project-toucans-v2/internal/events"
	"github.com/BoiseITGuru/project-toucans-v2/internal/jobs"
	"github.com/BoiseITGuru/project-toucans-v2/internal/pricefeed"
	"github.com/BoiseITGuru/project-toucans-v2/internal/refill"
	"github.com/BoiseITGuru/project-toucans-v2/internal/supabase"
)

func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main runs the funder-credit backfill once and exits. Not scheduled: run
// it by hand when funder totals need repairing.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupted")
		cancel()
	}()

	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	archive, err := events.NewStore(events.Options{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Username: cfg.ClickHouseUsername,
		Password: cfg.ClickHousePassword,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to ClickHouse")
	}
	defer archive.Close()

	// The credit RPC bypasses row-level security, so the service role key
	// is mandatory here.
	if cfg.SupabaseServiceKey == "" {
		logger.Fatal("SUPABASE_SERVICE_KEY is required for the refill job")
	}
	sbClient, err := supabase.New(supabase.Config{
		ProjectURL: cfg.SupabaseURL,
		APIKey:     cfg.SupabaseServiceKey,
		Timeout:    cfg.HTTPTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create supabase client")
	}
	store := supabase.NewStore(sbClient, logger)

	priceSource := pricefeed.NewCachedSource(
		pricefeed.NewClient(cfg.PriceFeedURL),
		cache.NewRedisCacheFromClient(rclient, logger),
		logger,
	)

	job := refill.NewJob(archive, priceSource, store, logger)

	status, err := job.Run(ctx)

	if jobStore, jerr := jobs.NewStore(rclient); jerr == nil {
		if rerr := jobStore.RecordRun(ctx, jobs.RefillJob, status); rerr != nil {
			logger.WithError(rerr).Warn("failed to record run status")
		}
	}

	if err != nil {
		logger.WithError(err).Fatal("refill failed")
	}
}
