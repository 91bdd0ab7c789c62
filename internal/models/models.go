package models

import "time"

// Project is a registry row for a DAO. ContractAddress and TokenSymbol are
// empty for DAOs that never deployed their own token.
type Project struct {
	ProjectID       string `json:"project_id"`
	ContractAddress string `json:"contract_address,omitempty"`
	TokenSymbol     string `json:"token_symbol,omitempty"`
	Owner           string `json:"owner"`
}

// FundEventData is the payload attached to a funding contribution.
type FundEventData struct {
	TokenSymbol string  `json:"tokenSymbol"`
	Amount      float64 `json:"amount"`
	By          string  `json:"by"`
}

// FundEvent is one funding contribution to a project. Append-only.
type FundEvent struct {
	ProjectID     string        `json:"project_id"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
	Data          FundEventData `json:"data"`
}

// ProposalEvent records that a governance action was proposed for a project.
type ProposalEvent struct {
	ProjectID string    `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
}

// PairInfo holds the reserves of a project token's liquidity pair.
// QuoteReserve is denominated in the project's payment currency.
type PairInfo struct {
	TokenReserve float64 `json:"token_reserve"`
	QuoteReserve float64 `json:"quote_reserve"`
}

// ProjectSnapshot is the per-project on-chain state returned by the batched
// trending script.
type ProjectSnapshot struct {
	PaymentCurrency  string             `json:"payment_currency"`
	MaxSupply        *float64           `json:"max_supply"`
	TotalSupply      *float64           `json:"total_supply"`
	Holders          []string           `json:"holders"`
	Funders          []string           `json:"funders"`
	NumProposals     int                `json:"num_proposals"`
	PairInfo         *PairInfo          `json:"pair_info"`
	TreasuryBalances map[string]float64 `json:"treasury_balances"`
	TotalFunding     float64            `json:"total_funding"`
}

// TokenInfo is the volume/TVL lookup result for a project token. The
// upstream service answers with a positional tuple; it is decoded into this
// named struct at the client boundary.
type TokenInfo struct {
	TVL       float64 `json:"tvl"`
	Volume24h float64 `json:"volume_24h"`
}

// RankingRecord is the denormalized leaderboard row upserted once per
// aggregation run, keyed by project_id. Pointer fields map to nullable
// columns and stay nil when the source data is absent.
type RankingRecord struct {
	ProjectID       string   `json:"project_id"`
	WeekFunding     float64  `json:"week_funding"`
	TotalSupply     *float64 `json:"total_supply"`
	PaymentCurrency string   `json:"payment_currency"`
	NumHolders      int      `json:"num_holders"`
	MaxSupply       *float64 `json:"max_supply"`
	NumProposals    int      `json:"num_proposals"`
	NumParticipants int      `json:"num_participants"`
	Price           *float64 `json:"price"`
	TreasuryValue   *float64 `json:"treasury_value"`
	Volume24h       *float64 `json:"volume_24h"`
	TVL             *float64 `json:"tvl"`
}

// RunStatus captures the outcome of one ranking aggregation run.
type RunStatus struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Records    int       `json:"records"`
	Error      string    `json:"error,omitempty"`
}
