// Package audit persists combined score decisions for later review. The
// scoring path never reads this log; writes that fail are logged and
// dropped by the engine.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/duskolend/creditd/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS score_decisions (
	id                        BIGSERIAL PRIMARY KEY,
	address                   TEXT NOT NULL,
	token                     TEXT NOT NULL,
	base_score                DOUBLE PRECISION NOT NULL,
	wash_trade_penalty        DOUBLE PRECISION NOT NULL,
	final_score               DOUBLE PRECISION NOT NULL,
	risk_level                TEXT NOT NULL,
	recommended_interest_rate DOUBLE PRECISION NOT NULL,
	max_loan_amount           DOUBLE PRECISION NOT NULL,
	explanation               TEXT NOT NULL,
	decided_at                TIMESTAMPTZ NOT NULL
)`

const insertDecision = `
INSERT INTO score_decisions (
	address, token, base_score, wash_trade_penalty, final_score,
	risk_level, recommended_interest_rate, max_loan_amount, explanation, decided_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Recorder writes decisions to Postgres.
type Recorder struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to Postgres and ensures the decision table exists.
func Open(dsn string) (*Recorder, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect audit store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &Recorder{db: db, now: time.Now}, nil
}

// NewWithDB wraps an existing connection, used by tests.
func NewWithDB(db *sqlx.DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

// Record appends one decision to the log.
func (r *Recorder) Record(ctx context.Context, result *domain.CombinedScoreResult) error {
	_, err := r.db.ExecContext(ctx, insertDecision,
		result.Address,
		result.Token,
		result.BaseScore,
		result.WashTradePenalty,
		result.FinalScore,
		string(result.RiskLevel),
		result.RecommendedInterestRate,
		result.MaxLoanAmount,
		result.Explanation,
		r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (r *Recorder) Close() error { return r.db.Close() }

// Noop discards all decisions; used when no audit DSN is configured.
type Noop struct{}

// Record implements the engine's Recorder interface as a no-op.
func (Noop) Record(context.Context, *domain.CombinedScoreResult) error { return nil }
