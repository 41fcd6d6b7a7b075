package score

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duskolend/creditd/internal/domain"
	"github.com/duskolend/creditd/internal/metrics"
)

// BaseScoreProvider fetches the unconditioned creditworthiness estimate
// for an address.
type BaseScoreProvider interface {
	FetchBaseScore(ctx context.Context, address string) (*domain.BaseScore, error)
}

// WashTradeDetector fetches the manipulation assessment for an address and
// mutates the detector-side blacklist.
type WashTradeDetector interface {
	FetchAssessment(ctx context.Context, token, address string, baseScore float64) (*domain.WashTradeAssessment, error)
	AddToBlacklist(ctx context.Context, address, token string) error
	RemoveFromBlacklist(ctx context.Context, address, token string) error
}

// Recorder persists combined results for audit. Implementations must not
// influence the scoring path; recording failures are logged, not returned.
type Recorder interface {
	Record(ctx context.Context, result *domain.CombinedScoreResult) error
}

// SnapshotStore keeps an advisory copy of the latest decision per address.
// It is never read on the scoring path.
type SnapshotStore interface {
	Put(ctx context.Context, result *domain.CombinedScoreResult) error
}

// Config tunes the fusion arithmetic.
type Config struct {
	BaseRate     float64 // base interest rate in percent, added to the detector's adjustment
	DefaultToken string  // token inspected when the caller supplies none
	Tolerance    float64 // allowed float drift in the adjusted-score invariant
}

// DefaultConfig returns the production fusion parameters.
func DefaultConfig() Config {
	return Config{
		BaseRate:     5.0,
		DefaultToken: "LINK",
		Tolerance:    0.01,
	}
}

// Engine is the score fusion engine. It orchestrates the two upstream
// queries for one address and derives the lending decision. Stateless:
// concurrent ComputeCombinedScore calls need no coordination.
type Engine struct {
	base     BaseScoreProvider
	detector WashTradeDetector
	cfg      Config

	recorder  Recorder      // optional
	snapshots SnapshotStore // optional
	metrics   *metrics.Registry
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithRecorder attaches a decision audit recorder.
func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithSnapshots attaches an advisory snapshot store.
func WithSnapshots(s SnapshotStore) Option { return func(e *Engine) { e.snapshots = s } }

// WithMetrics attaches a metrics registry.
func WithMetrics(m *metrics.Registry) Option { return func(e *Engine) { e.metrics = m } }

// NewEngine builds a fusion engine over the two upstream clients.
func NewEngine(base BaseScoreProvider, detector WashTradeDetector, cfg Config, opts ...Option) *Engine {
	if cfg.BaseRate == 0 {
		cfg.BaseRate = 5.0
	}
	if cfg.DefaultToken == "" {
		cfg.DefaultToken = "LINK"
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = 0.01
	}
	e := &Engine{base: base, detector: detector, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ComputeCombinedScore fuses the base creditworthiness score with the
// wash-trade assessment for address into one immutable lending decision.
//
// The two upstream calls are strictly sequential: the detector consumes the
// base score as an input, so it can never be issued first or in parallel.
// Any upstream failure aborts the whole operation; no partial or fallback
// result is ever produced, because a lending decision must not be made
// without the manipulation check.
func (e *Engine) ComputeCombinedScore(ctx context.Context, address, token string) (*domain.CombinedScoreResult, error) {
	if !domain.ValidAddress(address) {
		e.observeFailure("invalid_address")
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	if token == "" {
		token = e.cfg.DefaultToken
	}
	address = domain.NormalizeAddress(address)
	start := time.Now()
	if e.metrics != nil {
		e.metrics.InFlightScores.Inc()
		defer e.metrics.InFlightScores.Dec()
	}

	base, err := e.base.FetchBaseScore(ctx, address)
	if err != nil {
		e.observeFailure(domain.ProviderBaseScore)
		return nil, err
	}

	assessment, err := e.detector.FetchAssessment(ctx, token, address, base.Score)
	if err != nil {
		e.observeFailure(domain.ProviderWashTrade)
		return nil, err
	}

	if err := e.checkInvariant(address, base.Score, assessment); err != nil {
		e.observeFailure("invariant")
		return nil, err
	}

	penalty := 0.0
	if assessment.Detected {
		penalty = assessment.Penalty
	}

	result := &domain.CombinedScoreResult{
		Address:                 address,
		Token:                   token,
		BaseScore:               base.Score,
		WashTradePenalty:        penalty,
		FinalScore:              assessment.AdjustedScore,
		RiskLevel:               deriveRiskLevel(assessment.AdjustedScore, assessment.Recommendation.LendingRisk),
		RecommendedInterestRate: e.cfg.BaseRate + assessment.Recommendation.InterestRateAdjustment,
		MaxLoanAmount:           assessment.Recommendation.MaxLoanAmount,
		Explanation:             buildExplanation(base.Score, assessment),
	}

	e.observeResult(result, time.Since(start))
	e.persist(ctx, result)
	return result, nil
}

// FlagAddress adds (address, token) to the detector-side blacklist and
// re-fetches the wash-trade assessment so the caller sees the post-mutation
// state. Only the detector call is repeated; the caller supplies the base
// score it already holds. Explicitly a distinct operation from scoring.
func (e *Engine) FlagAddress(ctx context.Context, address, token string, baseScore float64) (*domain.WashTradeAssessment, error) {
	return e.mutateBlacklist(ctx, address, token, baseScore, "add", e.detector.AddToBlacklist)
}

// ClearFlag removes (address, token) from the detector-side blacklist and
// re-fetches the assessment.
func (e *Engine) ClearFlag(ctx context.Context, address, token string, baseScore float64) (*domain.WashTradeAssessment, error) {
	return e.mutateBlacklist(ctx, address, token, baseScore, "remove", e.detector.RemoveFromBlacklist)
}

func (e *Engine) mutateBlacklist(ctx context.Context, address, token string, baseScore float64,
	action string, mutate func(context.Context, string, string) error) (*domain.WashTradeAssessment, error) {
	if !domain.ValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}
	if token == "" {
		token = e.cfg.DefaultToken
	}
	address = domain.NormalizeAddress(address)

	if err := mutate(ctx, address, token); err != nil {
		e.observeBlacklist(action, "error")
		return nil, err
	}
	e.observeBlacklist(action, "ok")
	return e.detector.FetchAssessment(ctx, token, address, baseScore)
}

// checkInvariant rejects assessments whose adjusted score disagrees with
// base - penalty (detected) or base (not detected) beyond the configured
// tolerance. Reject-as-error rather than trusting the detector.
func (e *Engine) checkInvariant(address string, baseScore float64, a *domain.WashTradeAssessment) error {
	expected := baseScore
	if a.Detected {
		expected = baseScore - a.Penalty
	}
	if math.Abs(a.AdjustedScore-expected) > e.cfg.Tolerance {
		return &domain.InvariantError{
			Address:   address,
			BaseScore: baseScore,
			Penalty:   a.Penalty,
			Adjusted:  a.AdjustedScore,
			Detected:  a.Detected,
		}
	}
	return nil
}

// deriveRiskLevel maps the final score to a tier. The detector's qualitative
// "high" flag takes precedence over the numeric bands: detection signals can
// only make the assessment more conservative, never less, so there is no
// symmetric override for "low".
func deriveRiskLevel(finalScore float64, lendingRisk domain.LendingRisk) domain.RiskLevel {
	if lendingRisk == domain.LendingRiskHigh {
		return domain.RiskHigh
	}
	switch {
	case finalScore >= 80:
		return domain.RiskLow
	case finalScore >= 60:
		return domain.RiskMedium
	case finalScore >= 40:
		return domain.RiskHigh
	default:
		return domain.RiskVeryHigh
	}
}

// buildExplanation renders the display-only summary. It carries no decision
// weight and must never be parsed back for logic.
func buildExplanation(baseScore float64, a *domain.WashTradeAssessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Base credit score: %s.", formatScore(baseScore))
	if a.Detected {
		fmt.Fprintf(&b, " Wash trading detected: %d trades totaling %.2f in volume; %s points deducted.",
			a.Count, a.Volume, formatScore(a.Penalty))
	} else {
		b.WriteString(" No wash trading detected.")
	}
	fmt.Fprintf(&b, " Final score: %s.", formatScore(a.AdjustedScore))
	return b.String()
}

// formatScore prints whole scores without a trailing ".0".
func formatScore(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func (e *Engine) observeResult(r *domain.CombinedScoreResult, elapsed time.Duration) {
	log.Debug().
		Str("address", r.Address).
		Str("token", r.Token).
		Float64("final_score", r.FinalScore).
		Str("risk_level", string(r.RiskLevel)).
		Dur("elapsed", elapsed).
		Msg("combined score computed")
	if e.metrics != nil {
		e.metrics.ObserveScore(string(r.RiskLevel), elapsed)
	}
}

func (e *Engine) observeFailure(reason string) {
	if e.metrics != nil {
		e.metrics.ObserveScoreFailure(reason)
	}
}

func (e *Engine) observeBlacklist(action, outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveBlacklistMutation(action, outcome)
	}
}

// persist fans the result out to the optional side stores. Failures there
// never fail the scoring call; the decision was already made.
func (e *Engine) persist(ctx context.Context, r *domain.CombinedScoreResult) {
	if e.recorder != nil {
		if err := e.recorder.Record(ctx, r); err != nil {
			log.Warn().Err(err).Str("address", r.Address).Msg("audit record failed")
		}
	}
	if e.snapshots != nil {
		if err := e.snapshots.Put(ctx, r); err != nil {
			log.Warn().Err(err).Str("address", r.Address).Msg("snapshot write failed")
		}
	}
}
