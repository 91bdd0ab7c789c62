package supabase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
	"github.com/sirupsen/logrus"
)

// Store implements the project registry and ranking sink on top of the
// Supabase REST API.
type Store struct {
	client *Client
	logger *logrus.Logger
}

func NewStore(client *Client, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}
	return &Store{client: client, logger: logger}
}

// AllProjects returns every registered project.
func (s *Store) AllProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := s.client.From("projects").
		Select("project_id,contract_address,token_symbol,owner").
		ExecuteInto(ctx, &projects)
	if err != nil {
		return nil, fmt.Errorf("fetch projects: %w", err)
	}
	return projects, nil
}

// Rankings returns the stored leaderboard ordered by weekly funding.
func (s *Store) Rankings(ctx context.Context, limit int) ([]models.RankingRecord, error) {
	if limit <= 0 || limit > constants.MaxRankingsPageSize {
		limit = constants.MaxRankingsPageSize
	}
	var records []models.RankingRecord
	err := s.client.From("rankings").
		Select("*").
		Order("week_funding.desc").
		Limit(limit).
		ExecuteInto(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("fetch rankings: %w", err)
	}
	return records, nil
}

// Ranking returns the stored record for one project, or nil when absent.
func (s *Store) Ranking(ctx context.Context, projectID string) (*models.RankingRecord, error) {
	var records []models.RankingRecord
	err := s.client.From("rankings").
		Select("*").
		Eq("project_id", projectID).
		Limit(1).
		ExecuteInto(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("fetch ranking %s: %w", projectID, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// UpsertRankings writes one batch of ranking records keyed by project_id.
// Existing rows are overwritten, new rows inserted.
func (s *Store) UpsertRankings(ctx context.Context, records []models.RankingRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := s.client.From("rankings").
		Upsert(records, "project_id").
		Execute(ctx)
	if err != nil {
		return fmt.Errorf("upsert rankings: %w", err)
	}
	return nil
}

// SaveFund records a funding event via the save_fund database function,
// which appends the event and bumps the funder's totals in one transaction.
func (s *Store) SaveFund(ctx context.Context, event models.FundEvent, usdAmount float64) error {
	params := map[string]interface{}{
		"_project_id":     event.ProjectID,
		"_funder":         event.Data.By,
		"_usd_amount":     strconv.FormatFloat(usdAmount, 'f', -1, 64),
		"_data":           event.Data,
		"_type":           "fund",
		"_transaction_id": event.TransactionID,
	}
	if _, err := s.client.RPC(ctx, "save_fund", params); err != nil {
		return fmt.Errorf("save_fund %s: %w", event.ProjectID, err)
	}
	return nil
}

// SaveFundWithoutEvent credits funding to a funder without appending an
// event row. Used by the backfill job to repair funder totals.
func (s *Store) SaveFundWithoutEvent(ctx context.Context, projectID, funder string, usdAmount float64) error {
	params := map[string]interface{}{
		"_project_id": projectID,
		"_funder":     funder,
		"_usd_amount": usdAmount,
	}
	if _, err := s.client.RPC(ctx, "save_fund_without_event", params); err != nil {
		return fmt.Errorf("save_fund_without_event %s/%s: %w", projectID, funder, err)
	}
	return nil
}
