package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/flow"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
	"github.com/BoiseITGuru/project-toucans-v2/internal/storage"
)

var (
	// ErrNoChainData aborts a run when the merged snapshot map comes back
	// empty. The previous run's rows stay in place.
	ErrNoChainData = errors.New("no chain data returned")

	// ErrNoPrice aborts a run when the FLOW/USD price is unavailable.
	ErrNoPrice = errors.New("flow price unavailable")
)

// Deps are the collaborators one aggregation run reads from and writes to.
// Cache may be nil; everything else is required.
type Deps struct {
	Events    storage.EventSource
	Registry  storage.ProjectRegistry
	Chain     storage.ChainReader
	Price     storage.PriceSource
	TokenInfo storage.TokenInfoSource
	Sink      storage.RankingSink
	Cache     storage.RankingCache
}

// Aggregator recomputes the project leaderboard from scratch: weekly fund
// events, proposal tallies, and chunked on-chain snapshots merge into one
// RankingRecord per registered project, upserted in a single batch.
type Aggregator struct {
	deps   Deps
	logger *logrus.Logger
}

func NewAggregator(deps Deps, logger *logrus.Logger) *Aggregator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregator{deps: deps, logger: logger}
}

// Run executes one full aggregation cycle. It aborts without writing when
// the chain returns nothing or no price is available; an upsert failure is
// logged but does not fail the run, since the computed records are still
// good for the cache and the next cycle retries anyway.
func (a *Aggregator) Run(ctx context.Context) ([]models.RankingRecord, error) {
	started := time.Now()
	weekAgo := started.UTC().Add(-constants.WeekWindow)

	fundEvents, err := a.deps.Events.FundEventsSince(ctx, weekAgo)
	if err != nil {
		return nil, fmt.Errorf("fetch fund events: %w", err)
	}
	proposals, err := a.deps.Events.AllProposals(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch proposals: %w", err)
	}
	projects, err := a.deps.Registry.AllProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}

	records := make(map[string]*models.RankingRecord, len(projects))
	tokenSymbols := make(map[string]string, len(projects))
	for _, p := range projects {
		rec := &models.RankingRecord{ProjectID: p.ProjectID}
		if p.ContractAddress != "" && p.TokenSymbol != "" {
			if info, err := a.deps.TokenInfo.TokenInfo(ctx, p.ProjectID, p.ContractAddress); err == nil && info != nil {
				tvl, volume := info.TVL, info.Volume24h
				rec.TVL = &tvl
				rec.Volume24h = &volume
			}
		}
		records[p.ProjectID] = rec
		tokenSymbols[p.ProjectID] = p.TokenSymbol
	}

	snapshots, err := a.fetchChainData(ctx, projects)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		a.logger.Warn("chain returned no snapshots, skipping run")
		return nil, ErrNoChainData
	}

	flowPrice, err := a.deps.Price.FlowPrice(ctx)
	if err != nil {
		a.logger.WithError(err).Warn("flow price unavailable, skipping run")
		return nil, ErrNoPrice
	}
	if flowPrice <= 0 {
		a.logger.Warn("flow price is zero, skipping run")
		return nil, ErrNoPrice
	}

	// The events were already window-filtered by the query; the timestamp
	// check repeats it so a loose reader implementation can't widen the
	// window.
	for i := range fundEvents {
		event := &fundEvents[i]
		rec, ok := records[event.ProjectID]
		if !ok {
			continue
		}
		if event.Timestamp.Before(weekAgo) {
			continue
		}
		rec.WeekFunding += usdValue(&event.Data, flowPrice)
	}

	for i := range proposals {
		if rec, ok := records[proposals[i].ProjectID]; ok {
			rec.NumProposals++
		}
	}

	for projectID, snap := range snapshots {
		rec, ok := records[projectID]
		if !ok {
			continue
		}
		applySnapshot(rec, &snap, flowPrice, tokenSymbols[projectID])
	}

	out := make([]models.RankingRecord, 0, len(projects))
	for _, p := range projects {
		rec := records[p.ProjectID]
		rec.WeekFunding = round2(rec.WeekFunding)
		out = append(out, *rec)
	}

	if err := a.deps.Sink.UpsertRankings(ctx, out); err != nil {
		a.logger.WithError(err).Error("ranking upsert failed")
	}

	if a.deps.Cache != nil {
		if err := a.deps.Cache.SetRankings(ctx, out); err != nil {
			a.logger.WithError(err).Warn("ranking cache write failed")
		}
	}

	a.logger.WithFields(logrus.Fields{
		"projects": len(out),
		"events":   len(fundEvents),
		"duration": time.Since(started).Round(time.Millisecond).String(),
	}).Info("ranking run complete")

	return out, nil
}

// fetchChainData reads snapshots in batches of constants.TrendingChunkSize
// and merges them by project id. Chunks are independent but fetched
// sequentially to keep access-node load predictable.
func (a *Aggregator) fetchChainData(ctx context.Context, projects []models.Project) (map[string]models.ProjectSnapshot, error) {
	merged := make(map[string]models.ProjectSnapshot, len(projects))

	for start := 0; start < len(projects); start += constants.TrendingChunkSize {
		end := start + constants.TrendingChunkSize
		if end > len(projects) {
			end = len(projects)
		}
		chunk := projects[start:end]

		ids := make([]string, len(chunk))
		addresses := make([]string, len(chunk))
		owners := make([]string, len(chunk))
		for i, p := range chunk {
			ids[i] = p.ProjectID
			addresses[i] = p.ContractAddress
			owners[i] = p.Owner
		}

		snapshots, err := a.deps.Chain.TrendingData(ctx, ids, addresses, owners)
		if err != nil {
			return nil, fmt.Errorf("chain batch %d: %w", start/constants.TrendingChunkSize, err)
		}
		for id, snap := range snapshots {
			merged[id] = snap
		}
	}

	return merged, nil
}

// usdValue converts one fund event to USD. USDC counts at face value, FLOW
// at the current rate, anything else contributes nothing to week_funding.
func usdValue(data *models.FundEventData, flowPrice float64) float64 {
	switch data.TokenSymbol {
	case constants.CurrencyUSDC:
		return data.Amount
	case constants.CurrencyFlow:
		return data.Amount * flowPrice
	default:
		return 0
	}
}

func applySnapshot(rec *models.RankingRecord, snap *models.ProjectSnapshot, flowPrice float64, tokenSymbol string) {
	rec.TotalSupply = snap.TotalSupply
	rec.MaxSupply = snap.MaxSupply
	rec.PaymentCurrency = snap.PaymentCurrency
	rec.NumHolders = len(snap.Holders)

	// Union by membership: funders who already hold the token must not be
	// counted twice.
	participants := len(snap.Holders)
	for _, funder := range snap.Funders {
		if !containsAddress(snap.Holders, funder) {
			participants++
		}
	}
	rec.NumParticipants = participants

	// On-chain completed actions add to the off-chain proposal tally.
	rec.NumProposals += snap.NumProposals

	var price *float64
	if snap.PairInfo != nil {
		if p, ok := flow.TokenPriceFor(snap.PaymentCurrency, *snap.PairInfo); ok {
			p = round2(p)
			if snap.PaymentCurrency == constants.CurrencyFlow {
				p = round2(p * flowPrice)
			}
			price = &p
		}
	}
	rec.Price = price

	treasury := snap.TreasuryBalances[constants.CurrencyUSDC] +
		snap.TreasuryBalances[constants.CurrencyFlow]*flowPrice
	if price != nil && tokenSymbol != "" {
		treasury += snap.TreasuryBalances[tokenSymbol] * *price
	}
	treasury = round2(treasury)
	rec.TreasuryValue = &treasury
}

func containsAddress(haystack []string, needle string) bool {
	for _, addr := range haystack {
		if addr == needle {
			return true
		}
	}
	return false
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
