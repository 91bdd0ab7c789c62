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
	"github.com/BoiseITGuru/project-toucans-v2/internal/flow"
	"github.com/BoiseITGuru/project-toucans-v2/internal/jobs"
	"github.com/BoiseITGuru/project-toucans-v2/internal/pricefeed"
	"github.com/BoiseITGuru/project-toucans-v2/internal/ranking"
	"github.com/BoiseITGuru/project-toucans-v2/internal/supabase"
	"github.com/BoiseITGuru/project-toucans-v2/internal/tokeninfo"
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

// main runs the ranking scheduler: one aggregation cycle immediately, then
// one every interval until interrupted.
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

	rclient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   0,
	})
	if err := rclient.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Fatal("failed to connect to Redis")
	}

	rankingCache := cache.NewRedisCacheFromClient(rclient, logger)

	jobStore, err := jobs.NewStore(rclient)
	if err != nil {
		logger.WithError(err).Fatal("failed to create job store")
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

	// The ranking run writes through row-level security, so it needs the
	// service role key.
	key := cfg.SupabaseServiceKey
	if key == "" {
		key = cfg.SupabaseAnonKey
	}
	sbClient, err := supabase.New(supabase.Config{
		ProjectURL: cfg.SupabaseURL,
		APIKey:     key,
		Timeout:    cfg.HTTPTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create supabase client")
	}
	store := supabase.NewStore(sbClient, logger)

	flowClient := flow.NewClient(flow.ClientConfig{
		BaseURL:      cfg.FlowAccessURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RPS:          cfg.FlowRPS,
		Logger:       logger,
	})
	chainReader := flow.NewReader(flowClient, logger)

	priceSource := pricefeed.NewCachedSource(
		pricefeed.NewClient(cfg.PriceFeedURL),
		rankingCache,
		logger,
	)

	aggregator := ranking.NewAggregator(ranking.Deps{
		Events:    archive,
		Registry:  store,
		Chain:     chainReader,
		Price:     priceSource,
		TokenInfo: tokeninfo.NewClient(cfg.TokenInfoURL, logger),
		Sink:      store,
		Cache:     rankingCache,
	}, logger)

	scheduler := ranking.NewScheduler(aggregator, jobStore, cfg.RankingInterval, logger)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	scheduler.Start(ctx)
}
