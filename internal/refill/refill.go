package refill

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
	"github.com/BoiseITGuru/project-toucans-v2/internal/storage"
)

// Job rebuilds per-funder USD totals from the full event archive. Every
// historical event is valued at today's FLOW rate, not the rate at funding
// time; totals drift with the market. Good enough for the repair job this
// is, not for accounting.
type Job struct {
	events   storage.EventSource
	price    storage.PriceSource
	crediter storage.FundCrediter
	logger   *logrus.Logger
}

func NewJob(events storage.EventSource, price storage.PriceSource, crediter storage.FundCrediter, logger *logrus.Logger) *Job {
	if logger == nil {
		logger = logrus.New()
	}
	return &Job{events: events, price: price, crediter: crediter, logger: logger}
}

// Run credits every archived fund event to its funder. Individual credit
// failures are logged and skipped so one bad row can't stall the batch.
func (j *Job) Run(ctx context.Context) (models.RunStatus, error) {
	status := models.RunStatus{StartedAt: time.Now().UTC()}

	events, err := j.events.AllFundEvents(ctx)
	if err != nil {
		status.FinishedAt = time.Now().UTC()
		status.Error = err.Error()
		return status, fmt.Errorf("fetch fund events: %w", err)
	}

	flowPrice, err := j.price.FlowPrice(ctx)
	if err != nil {
		status.FinishedAt = time.Now().UTC()
		status.Error = err.Error()
		return status, fmt.Errorf("fetch flow price: %w", err)
	}

	credited := 0
	for i := range events {
		event := &events[i]

		usd := usdValue(&event.Data, flowPrice)
		if err := j.crediter.SaveFundWithoutEvent(ctx, event.ProjectID, event.Data.By, usd); err != nil {
			j.logger.WithError(err).WithFields(logrus.Fields{
				"project_id": event.ProjectID,
				"funder":     event.Data.By,
			}).Error("failed to credit funder")
			continue
		}
		credited++
	}

	status.FinishedAt = time.Now().UTC()
	status.Records = credited

	j.logger.WithFields(logrus.Fields{
		"events":   len(events),
		"credited": credited,
	}).Info("refill complete")

	return status, nil
}

func usdValue(data *models.FundEventData, flowPrice float64) float64 {
	var usd float64
	switch data.TokenSymbol {
	case constants.CurrencyUSDC:
		usd = data.Amount
	case constants.CurrencyFlow:
		usd = data.Amount * flowPrice
	}
	return math.Round(usd*100) / 100
}
