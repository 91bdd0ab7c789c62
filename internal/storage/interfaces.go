package storage

import (
	"context"
	"io"
	"time"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// EventSource reads the append-only event archive.
type EventSource interface {
	// FundEventsSince returns fund events with timestamp >= since.
	FundEventsSince(ctx context.Context, since time.Time) ([]models.FundEvent, error)

	// AllFundEvents returns every fund event ever recorded.
	AllFundEvents(ctx context.Context) ([]models.FundEvent, error)

	// AllProposals returns all proposal events, unfiltered.
	AllProposals(ctx context.Context) ([]models.ProposalEvent, error)
}

// EventSink appends events to the archive.
type EventSink interface {
	InsertFundEvent(ctx context.Context, event *models.FundEvent) error
	InsertProposalEvent(ctx context.Context, event *models.ProposalEvent) error

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}

// ProjectRegistry lists all known projects.
type ProjectRegistry interface {
	AllProjects(ctx context.Context) ([]models.Project, error)
}

// ChainReader executes the batched trending query. Each call takes at most
// constants.TrendingChunkSize projects; callers chunk accordingly.
type ChainReader interface {
	TrendingData(ctx context.Context, projectIDs, addresses, owners []string) (map[string]models.ProjectSnapshot, error)
}

// PriceSource returns the FLOW/USD spot price.
type PriceSource interface {
	FlowPrice(ctx context.Context) (float64, error)
}

// TokenInfoSource looks up volume/TVL for a project token. A nil result
// with nil error means the token is unknown to the info service.
type TokenInfoSource interface {
	TokenInfo(ctx context.Context, projectID, contractAddress string) (*models.TokenInfo, error)
}

// RankingSink persists ranking rows, overwriting on project_id conflict.
type RankingSink interface {
	UpsertRankings(ctx context.Context, records []models.RankingRecord) error
}

// FundCrediter credits a funder's running USD total in the backend.
type FundCrediter interface {
	SaveFundWithoutEvent(ctx context.Context, projectID, funder string, usdAmount float64) error
}

// RankingCache caches the latest leaderboard for API reads.
type RankingCache interface {
	SetRankings(ctx context.Context, records []models.RankingRecord) error
	GetRankings(ctx context.Context) ([]models.RankingRecord, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}
