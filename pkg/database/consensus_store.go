package database

import (
	"context"
	"database/sql"

	"github.com/swarmruntime/core/pkg/errs"
	"github.com/swarmruntime/core/pkg/events"
)

// ConsensusStore persists tallied swarm decisions (events.ConsensusOutcomePayload)
// for the audit trail C8's consensus engine otherwise only emits as an event.
type ConsensusStore struct {
	db     *sql.DB
	driver Driver
}

// NewConsensusStore wraps client's connection pool as a consensus decision sink.
func NewConsensusStore(client *Client) *ConsensusStore {
	return &ConsensusStore{db: client.db, driver: client.driver}
}

func (s *ConsensusStore) q(query string) string { return rebind(s.driver, query) }

// Record persists one tallied decision. Re-recording the same DecisionID
// overwrites the prior row, since a decision is only ever tallied once but
// callers may retry on transient failure.
func (s *ConsensusStore) Record(ctx context.Context, p events.ConsensusOutcomePayload) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO consensus_log (decision_id, kind, consensus, approval_rate, confidence_score, decided_at)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(decision_id) DO UPDATE SET
			kind=excluded.kind, consensus=excluded.consensus, approval_rate=excluded.approval_rate,
			confidence_score=excluded.confidence_score, decided_at=excluded.decided_at`),
		p.DecisionID, p.Kind, p.Consensus, p.ApprovalRate, p.ConfidenceScore, p.Timestamp)
	if err != nil {
		return errs.Wrap(errs.KindUnavailable, "record consensus outcome", err)
	}
	return nil
}

// FindByID looks up a previously recorded decision by its DecisionID.
func (s *ConsensusStore) FindByID(ctx context.Context, decisionID string) (*events.ConsensusOutcomePayload, error) {
	var p events.ConsensusOutcomePayload
	row := s.db.QueryRowContext(ctx, s.q(`
		SELECT decision_id, kind, consensus, approval_rate, confidence_score, decided_at
		FROM consensus_log WHERE decision_id = ?`), decisionID)
	if err := row.Scan(&p.DecisionID, &p.Kind, &p.Consensus, &p.ApprovalRate, &p.ConfidenceScore, &p.Timestamp); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.New(errs.KindNotFound, "consensus decision not found")
		}
		return nil, errs.Wrap(errs.KindUnavailable, "find consensus decision", err)
	}
	return &p, nil
}

// DeleteBefore removes decisions recorded strictly before cutoff,
// formatted with timeLayout; used by the archival sweep (spec.md §4.18).
func (s *ConsensusStore) DeleteBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM consensus_log WHERE decided_at < ?`), cutoff)
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "delete consensus decisions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Wrap(errs.KindUnavailable, "delete consensus decisions", err)
	}
	return n, nil
}
