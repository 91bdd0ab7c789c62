package constants

import "time"

// Treasury currencies with first-class USD conversion. Fund events in any
// other currency contribute nothing to week_funding.
const (
	CurrencyFlow = "FLOW"
	CurrencyUSDC = "USDC"
)

// Redis keys
const (
	RedisKeyRankings  = "rankings:latest"
	RedisKeyFlowPrice = "price:FLOW"
)

// Redis Pub/Sub channels
const (
	PubSubChannelFunds     = "events:fund"
	PubSubChannelProposals = "events:proposal"
)

// Limits
const (
	// TrendingChunkSize is the most projects the trending script accepts
	// per execution; the access API rejects larger argument lists.
	TrendingChunkSize = 5

	MaxRankingsPageSize = 200
)

// Windows and cadences
const (
	WeekWindow        = 7 * 24 * time.Hour
	RankingInterval   = 10 * time.Minute
	FlowPriceCacheTTL = time.Minute
)
