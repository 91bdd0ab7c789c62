package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/config"
	"github.com/BoiseITGuru/project-toucans-v2/internal/events"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// tail prints live fund and proposal events from the pubsub channels.
// Handy for watching ingestion without querying the archive.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()

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

	pubsub := events.NewPubSub(rclient, logger)

	go func() {
		_ = pubsub.SubscribeFunds(ctx, func(event *models.FundEvent) {
			logger.WithFields(logrus.Fields{
				"project_id": event.ProjectID,
				"amount":     event.Data.Amount,
				"currency":   event.Data.TokenSymbol,
				"funder":     event.Data.By,
			}).Info("fund")
		})
	}()

	go func() {
		_ = pubsub.SubscribeProposals(ctx, func(event *models.ProposalEvent) {
			logger.WithField("project_id", event.ProjectID).Info("proposal")
		})
	}()

	logger.Info("tailing events, press Ctrl+C to stop")

	<-sigCh
	logger.Info("shutting down")
}
