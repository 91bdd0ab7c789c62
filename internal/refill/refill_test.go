package refill

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

type fakeEvents struct {
	funds []models.FundEvent
	err   error
}

func (f *fakeEvents) FundEventsSince(context.Context, time.Time) ([]models.FundEvent, error) {
	return f.funds, f.err
}

func (f *fakeEvents) AllFundEvents(context.Context) ([]models.FundEvent, error) {
	return f.funds, f.err
}

func (f *fakeEvents) AllProposals(context.Context) ([]models.ProposalEvent, error) {
	return nil, nil
}

type fakePrice struct {
	price float64
	err   error
}

func (f *fakePrice) FlowPrice(context.Context) (float64, error) {
	return f.price, f.err
}

type credit struct {
	projectID string
	funder    string
	usd       float64
}

type fakeCrediter struct {
	credits []credit
	failOn  string
}

func (f *fakeCrediter) SaveFundWithoutEvent(_ context.Context, projectID, funder string, usdAmount float64) error {
	if funder == f.failOn {
		return fmt.Errorf("rpc failed")
	}
	f.credits = append(f.credits, credit{projectID: projectID, funder: funder, usd: usdAmount})
	return nil
}

func TestJob_CreditsAllEvents(t *testing.T) {
	now := time.Now().UTC()
	events := &fakeEvents{funds: []models.FundEvent{
		{ProjectID: "alpha", Timestamp: now.Add(-400 * 24 * time.Hour), Data: models.FundEventData{TokenSymbol: "FLOW", Amount: 10, By: "0xf1"}},
		{ProjectID: "alpha", Timestamp: now, Data: models.FundEventData{TokenSymbol: "USDC", Amount: 33.333, By: "0xf2"}},
		{ProjectID: "beta", Timestamp: now, Data: models.FundEventData{TokenSymbol: "DUCK", Amount: 50, By: "0xf3"}},
	}}
	crediter := &fakeCrediter{}

	job := NewJob(events, &fakePrice{price: 1.5}, crediter, nil)
	status, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, status.Records)
	assert.Empty(t, status.Error)

	require.Len(t, crediter.credits, 3)
	// Every event is valued at the single current rate, even the year-old
	// one.
	assert.Equal(t, credit{projectID: "alpha", funder: "0xf1", usd: 15.0}, crediter.credits[0])
	assert.Equal(t, credit{projectID: "alpha", funder: "0xf2", usd: 33.33}, crediter.credits[1])
	// Unrecognized currencies credit zero, mirroring the weekly totals.
	assert.Equal(t, credit{projectID: "beta", funder: "0xf3", usd: 0.0}, crediter.credits[2])
}

func TestJob_SkipsFailedCredits(t *testing.T) {
	now := time.Now().UTC()
	events := &fakeEvents{funds: []models.FundEvent{
		{ProjectID: "alpha", Timestamp: now, Data: models.FundEventData{TokenSymbol: "USDC", Amount: 1, By: "0xbad"}},
		{ProjectID: "alpha", Timestamp: now, Data: models.FundEventData{TokenSymbol: "USDC", Amount: 2, By: "0xgood"}},
	}}
	crediter := &fakeCrediter{failOn: "0xbad"}

	job := NewJob(events, &fakePrice{price: 1}, crediter, nil)
	status, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Records)
	require.Len(t, crediter.credits, 1)
	assert.Equal(t, "0xgood", crediter.credits[0].funder)
}

func TestJob_FailsWithoutPrice(t *testing.T) {
	events := &fakeEvents{funds: []models.FundEvent{
		{ProjectID: "alpha", Data: models.FundEventData{TokenSymbol: "USDC", Amount: 1, By: "0xf1"}},
	}}
	crediter := &fakeCrediter{}

	job := NewJob(events, &fakePrice{err: fmt.Errorf("feed down")}, crediter, nil)
	status, err := job.Run(context.Background())
	assert.Error(t, err)
	assert.NotEmpty(t, status.Error)
	assert.Empty(t, crediter.credits)
}
