package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
)

// Store is the append-only event archive backed by ClickHouse. Fund and
// proposal events are written once and never updated; the ranking job reads
// them back by time window.
type Store struct {
	conn   driver.Conn
	logger *logrus.Logger
}

// Options configures the ClickHouse connection.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

const fundEventsDDL = `
	CREATE TABLE IF NOT EXISTS fund_events (
		project_id     String,
		transaction_id String,
		timestamp      DateTime64(3, 'UTC'),
		token_symbol   String,
		amount         Float64,
		funder         String,
		data           String
	) ENGINE = MergeTree()
	ORDER BY (project_id, timestamp)
`

const proposalEventsDDL = `
	CREATE TABLE IF NOT EXISTS proposal_events (
		project_id String,
		timestamp  DateTime64(3, 'UTC')
	) ENGINE = MergeTree()
	ORDER BY (project_id, timestamp)
`

func NewStore(opts Options, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithField("addr", opts.Addr).Info("connected to ClickHouse")

	store := &Store{conn: conn, logger: logger}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, ddl := range []string{fundEventsDDL, proposalEventsDDL} {
		if err := s.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

func (s *Store) InsertFundEvent(ctx context.Context, event *models.FundEvent) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal fund event data: %w", err)
	}

	query := `
		INSERT INTO fund_events (
			project_id, transaction_id, timestamp, token_symbol, amount, funder, data
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err = s.conn.Exec(ctx, query,
		event.ProjectID,
		event.TransactionID,
		event.Timestamp,
		event.Data.TokenSymbol,
		event.Data.Amount,
		event.Data.By,
		string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert fund event: %w", err)
	}

	return nil
}

func (s *Store) InsertProposalEvent(ctx context.Context, event *models.ProposalEvent) error {
	query := `INSERT INTO proposal_events (project_id, timestamp) VALUES (?, ?)`

	if err := s.conn.Exec(ctx, query, event.ProjectID, event.Timestamp); err != nil {
		return fmt.Errorf("failed to insert proposal event: %w", err)
	}

	return nil
}

// FundEventsSince returns fund events with timestamp >= since, oldest first.
func (s *Store) FundEventsSince(ctx context.Context, since time.Time) ([]models.FundEvent, error) {
	query := `
		SELECT project_id, transaction_id, timestamp, token_symbol, amount, funder
		FROM fund_events
		WHERE timestamp >= ?
		ORDER BY timestamp ASC
	`
	return s.queryFundEvents(ctx, query, since)
}

// AllFundEvents returns every fund event ever archived, oldest first.
func (s *Store) AllFundEvents(ctx context.Context) ([]models.FundEvent, error) {
	query := `
		SELECT project_id, transaction_id, timestamp, token_symbol, amount, funder
		FROM fund_events
		ORDER BY timestamp ASC
	`
	return s.queryFundEvents(ctx, query)
}

func (s *Store) queryFundEvents(ctx context.Context, query string, args ...interface{}) ([]models.FundEvent, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund events: %w", err)
	}
	defer rows.Close()

	var events []models.FundEvent
	for rows.Next() {
		var e models.FundEvent
		if err := rows.Scan(
			&e.ProjectID,
			&e.TransactionID,
			&e.Timestamp,
			&e.Data.TokenSymbol,
			&e.Data.Amount,
			&e.Data.By,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fund event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fund event rows: %w", err)
	}

	return events, nil
}

// AllProposals returns all proposal events, unfiltered.
func (s *Store) AllProposals(ctx context.Context) ([]models.ProposalEvent, error) {
	query := `SELECT project_id, timestamp FROM proposal_events ORDER BY timestamp ASC`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposal events: %w", err)
	}
	defer rows.Close()

	var events []models.ProposalEvent
	for rows.Next() {
		var e models.ProposalEvent
		if err := rows.Scan(&e.ProjectID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan proposal event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("proposal event rows: %w", err)
	}

	return events, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *Store) Close() error {
	return s.conn.Close()
}
