package flow

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/BoiseITGuru/project-toucans-v2/internal/constants"
	"github.com/BoiseITGuru/project-toucans-v2/internal/models"
	"github.com/sirupsen/logrus"
)

//go:embed cadence/get_trending_data_v2.cdc
var trendingScript []byte

// Reader exposes the batched trending query over the access API.
type Reader struct {
	client *Client
	logger *logrus.Logger
}

func NewReader(client *Client, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reader{client: client, logger: logger}
}

// TrendingData executes the trending script for one batch of projects and
// returns snapshots keyed by project id. The script takes parallel lists:
// project ids, optional token contract addresses, and owner addresses.
func (r *Reader) TrendingData(ctx context.Context, projectIDs, addresses, owners []string) (map[string]models.ProjectSnapshot, error) {
	if len(projectIDs) == 0 {
		return map[string]models.ProjectSnapshot{}, nil
	}
	if len(projectIDs) > constants.TrendingChunkSize {
		return nil, fmt.Errorf("trending query limited to %d projects, got %d", constants.TrendingChunkSize, len(projectIDs))
	}
	if len(addresses) != len(projectIDs) || len(owners) != len(projectIDs) {
		return nil, fmt.Errorf("argument lists must have equal length")
	}

	args := [][]byte{
		NewStringArray(projectIDs),
		NewOptionalAddressArray(addresses),
		NewAddressArray(owners),
	}

	result, err := r.client.ExecuteScript(ctx, trendingScript, args)
	if err != nil {
		return nil, fmt.Errorf("trending script failed: %w", err)
	}

	entries, err := result.Dictionary()
	if err != nil {
		return nil, fmt.Errorf("unexpected trending result: %w", err)
	}

	snapshots := make(map[string]models.ProjectSnapshot, len(entries))
	for _, entry := range entries {
		projectID, err := entry.Key.String()
		if err != nil {
			return nil, fmt.Errorf("trending key: %w", err)
		}
		snap, err := decodeSnapshot(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("snapshot for %s: %w", projectID, err)
		}
		snapshots[projectID] = snap
	}

	r.logger.WithFields(logrus.Fields{
		"requested": len(projectIDs),
		"returned":  len(snapshots),
	}).Debug("fetched trending batch")

	return snapshots, nil
}

func decodeSnapshot(v Value) (models.ProjectSnapshot, error) {
	var snap models.ProjectSnapshot

	fields, err := v.Fields()
	if err != nil {
		return snap, err
	}

	if f, ok := fields["paymentCurrency"]; ok {
		if snap.PaymentCurrency, err = f.String(); err != nil {
			return snap, err
		}
	}
	if snap.TotalSupply, err = optionalFloat(fields, "totalSupply"); err != nil {
		return snap, err
	}
	if snap.MaxSupply, err = optionalFloat(fields, "maxSupply"); err != nil {
		return snap, err
	}
	if snap.Holders, err = addressList(fields, "holders"); err != nil {
		return snap, err
	}
	if snap.Funders, err = addressList(fields, "funders"); err != nil {
		return snap, err
	}
	if f, ok := fields["numProposals"]; ok {
		if snap.NumProposals, err = f.Int(); err != nil {
			return snap, err
		}
	}
	if f, ok := fields["totalFunding"]; ok {
		if snap.TotalFunding, err = f.Float(); err != nil {
			return snap, err
		}
	}
	if snap.PairInfo, err = pairInfo(fields); err != nil {
		return snap, err
	}
	if snap.TreasuryBalances, err = balanceMap(fields, "treasuryBalances"); err != nil {
		return snap, err
	}

	return snap, nil
}

func optionalFloat(fields map[string]Value, name string) (*float64, error) {
	f, ok := fields[name]
	if !ok {
		return nil, nil
	}
	inner := &f
	if f.Type == "Optional" {
		var err error
		if inner, err = f.Optional(); err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, nil
		}
	}
	val, err := inner.Float()
	if err != nil {
		return nil, err
	}
	return &val, nil
}

func addressList(fields map[string]Value, name string) ([]string, error) {
	f, ok := fields[name]
	if !ok {
		return nil, nil
	}
	items, err := f.Array()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := item.String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func balanceMap(fields map[string]Value, name string) (map[string]float64, error) {
	f, ok := fields[name]
	if !ok {
		return map[string]float64{}, nil
	}
	entries, err := f.Dictionary()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(entries))
	for _, e := range entries {
		k, err := e.Key.String()
		if err != nil {
			return nil, err
		}
		amount, err := e.Value.Float()
		if err != nil {
			return nil, err
		}
		out[k] = amount
	}
	return out, nil
}

func pairInfo(fields map[string]Value) (*models.PairInfo, error) {
	f, ok := fields["pairInfo"]
	if !ok {
		return nil, nil
	}
	inner, err := f.Optional()
	if err != nil || inner == nil {
		return nil, err
	}
	pairFields, err := inner.Fields()
	if err != nil {
		return nil, err
	}
	var pair models.PairInfo
	if tf, ok := pairFields["tokenReserve"]; ok {
		if pair.TokenReserve, err = tf.Float(); err != nil {
			return nil, err
		}
	}
	if qf, ok := pairFields["quoteReserve"]; ok {
		if pair.QuoteReserve, err = qf.Float(); err != nil {
			return nil, err
		}
	}
	return &pair, nil
}
