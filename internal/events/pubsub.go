package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// PubSub fans incoming events out over Redis so live consumers (dashboards,
// the tail tool) see them without polling the archive.
type PubSub struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewPubSub(client *redis.Client, logger *logrus.Logger) *PubSub {
	if logger == nil {
		logger = logrus.New()
	}
	return &PubSub{client: client, logger: logger}
}

// PublishFund publishes a fund event to the shared channel and a
// project-specific one.
func (p *PubSub) PublishFund(ctx context.Context, event *models.FundEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channels := []string{
		constants.PubSubChannelFunds,
		fmt.Sprintf("%s:%s", constants.PubSubChannelFunds, event.ProjectID),
	}

	pipe := p.client.Pipeline()
	for _, channel := range channels {
		pipe.Publish(ctx, channel, data)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// PublishProposal publishes a proposal event.
func (p *PubSub) PublishProposal(ctx context.Context, event *models.ProposalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, constants.PubSubChannelProposals, data).Err()
}

// SubscribeFunds blocks and invokes handler for every fund event on the
// channel until ctx is cancelled.
func (p *PubSub) SubscribeFunds(ctx context.Context, handler func(*models.FundEvent)) error {
	pubsub := p.client.Subscribe(ctx, constants.PubSubChannelFunds)
	defer pubsub.Close()

	p.logger.WithField("channel", constants.PubSubChannelFunds).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.FundEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.logger.WithError(err).Warn("skipping malformed fund event")
				continue
			}
			handler(&event)
		}
	}
}

// SubscribeProposals blocks and invokes handler for every proposal event
// until ctx is cancelled.
func (p *PubSub) SubscribeProposals(ctx context.Context, handler func(*models.ProposalEvent)) error {
	pubsub := p.client.Subscribe(ctx, constants.PubSubChannelProposals)
	defer pubsub.Close()

	p.logger.WithField("channel", constants.PubSubChannelProposals).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.ProposalEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.logger.WithError(err).Warn("skipping malformed proposal event")
				continue
			}
			handler(&event)
		}
	}
}
