package database

import (
	"context"
	"database/sql"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/provider"
)

// SpendStore persists provider.SpendRecord entries for reporting and
// post-hoc budget audits beyond SpendLog's in-memory window.
type SpendStore struct {
	db     *sql.DB
	driver Driver
}

// NewSpendStore wraps client's connection pool as a spend record sink.
func NewSpendStore(client *Client) *SpendStore {
	return &SpendStore{db: client.db, driver: client.driver}
}

func (s *SpendStore) q(query string) string { return rebind(s.driver, query) }

// Append records one spend entry.
func (s *SpendStore) Append(ctx context.Context, rec provider.SpendRecord) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO spend_records (provider_id, agent_id, model, cost_usd, tokens, recorded_at)
		VALUES (?,?,?,?,?,?)`),
		rec.ProviderID, rec.AgentID, rec.Model, rec.CostUSD, rec.Tokens, rec.At.Format(timeLayout))
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "append spend record", err)
	}
	return nil
}

// AppendMany records a batch of spend entries in one transaction, mirroring
// task.Repository.SaveMany's batching for high-throughput swarm ticks.
func (s *SpendStore) AppendMany(ctx context.Context, recs []provider.SpendRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "begin transaction", err)
	}
	query := s.q(`INSERT INTO spend_records (provider_id, agent_id, model, cost_usd, tokens, recorded_at)
		VALUES (?,?,?,?,?,?)`)
	for _, rec := range recs {
		if _, err := tx.ExecContext(ctx, query,
			rec.ProviderID, rec.AgentID, rec.Model, rec.CostUSD, rec.Tokens, rec.At.Format(timeLayout)); err != nil {
			_ = tx.Rollback()
			return errs.Wrap(errs.KindUnavailable, "append spend record", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindUnavailable, "commit transaction", err)
	}
	return nil
}

// TotalByProvider returns total spend for providerID across all recorded history.
func (s *SpendStore) TotalByProvider(ctx context.Context, providerID string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT SUM(cost_usd) FROM spend_records WHERE provider_id = ?`), providerID).Scan(&total)
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "sum spend by provider", err)
	}
	return total.Float64, nil
}

// TotalByAgent returns total spend for agentID across all recorded history.
func (s *SpendStore) TotalByAgent(ctx context.Context, agentID string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT SUM(cost_usd) FROM spend_records WHERE agent_id = ?`), agentID).Scan(&total)
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "sum spend by agent", err)
	}
	return total.Float64, nil
}

// DeleteBefore removes spend records recorded strictly before cutoff,
// formatted with timeLayout; used by the archival sweep (spec.md §4.18).
func (s *SpendStore) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM spend_records WHERE recorded_at < ?`), cutoff)
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "delete spend records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "delete spend records", err)
	}
	return n, nil
}
