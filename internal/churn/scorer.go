// Package churn implements the per-user churn scoring engine: a
// deterministic, ordered rule evaluator that maps raw player metrics to a
// churn score, risk tier, lifecycle status, and retention actions.
package churn

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/playmetrics/churn-cli/internal/config"
	"github.com/playmetrics/churn-cli/internal/model"
)

// ErrMissingUserID is returned when a record has no usable identity. No
// partial prediction is emitted; the caller decides whether to skip the
// record or abort the batch.
var ErrMissingUserID = eris.New("churn: user id missing")

// Scorer evaluates the churn rule set against single user records. It holds
// no mutable state, so one Scorer is safe for concurrent use.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer creates a Scorer with the given rule thresholds.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates one user. It is a pure function of (user, now): identical
// input always yields an identical prediction. Malformed numeric fields
// never fail scoring; they fall back to documented defaults. A record with
// zero games, zero deposits, and zero bonuses carries no signal and yields
// (nil, nil) rather than a prediction.
func (s *Scorer) Score(user model.RawUser, now time.Time) (*model.Prediction, error) {
	userID := user.UserID()
	if userID == "" {
		return nil, ErrMissingUserID
	}

	m := extractMetrics(user)
	if m.totalGames == 0 && m.totalDeposits == 0 && m.totalBonuses == 0 {
		return nil, nil
	}
	m.accountAgeDays = accountAgeDays(user.CreatedAt, now)

	// Evaluate the ordered rule groups into a flat hit log, then fold it.
	var hits []ruleHit
	for _, group := range ruleGroups {
		hits = append(hits, group(m, s.cfg)...)
	}

	var (
		score   int
		status  = model.StatusActive
		factors []model.RiskFactor
		actions []model.RetentionAction
	)
	for _, h := range hits {
		score += h.points
		factors = append(factors, h.factor)
		if h.status != "" {
			// Sequential override, last rule to set a status wins.
			status = h.status
		}
		if h.action != nil {
			actions = append(actions, *h.action)
		}
	}

	if score > 100 {
		score = 100
	}

	actions = append(actions, statusActions(status)...)

	if m.depositAmount > s.cfg.HighValueDepositMin && score > s.cfg.VIPScoreFloor {
		actions = append(actions, model.RetentionAction{
			Code: model.ActionVIPIntervention,
			Text: "VIP intervention: Personal account manager",
			Icon: "\U0001F48E",
		})
	}

	// A clean record overrides any status the rule branches assigned: if no
	// rule fired there is nothing to escalate, regardless of earlier writes.
	if len(factors) == 0 {
		factors = []model.RiskFactor{{
			Code:     model.FactorActiveEngaged,
			Text:     "Active and engaged",
			Severity: model.SeverityOK,
		}}
		status = model.StatusActive
	}

	return &model.Prediction{
		UserID:         userID,
		Email:          user.Email,
		Name:           user.FullName(),
		Country:        user.Country,
		CreatedAt:      user.CreatedAt,
		AccountAgeDays: m.accountAgeDays,

		ChurnScore:       score,
		RiskTier:         model.TierForScore(score),
		PlayerStatus:     status,
		RiskFactors:      factors,
		RetentionActions: actions,

		DaysSinceLastGame:    m.daysSinceLastGame,
		DaysSinceLastDeposit: m.daysSinceLastDeposit,
		GamesLast7Days:       m.gamesLast7Days,
		GamesLast30Days:      m.gamesLast30Days,
		TotalGames:           m.totalGames,

		TotalDeposits:      m.totalDeposits,
		TotalDepositAmount: m.depositAmount,
		TotalWagered:       m.wagered,

		TotalBonuses:        m.totalBonuses,
		BonusCancelRate:     m.bonusCancelRate,
		BonusCompletionRate: m.bonusCompletionRate,

		KYCStatus: user.KYCStatus,
		IsVIP:     model.ToBool(user.IsVIP),
	}, nil
}

// BatchStats summarizes what happened to a batch of raw records.
type BatchStats struct {
	Examined      int `json:"examined"`
	Scored        int `json:"scored"`
	SkippedNoData int `json:"skipped_no_data"`
	SkippedNoID   int `json:"skipped_no_id"`
}

// ScoreBatch scores a collection of users with bounded fan-out. Each user
// is independent, so workers write to disjoint slots and no locking is
// needed. Users without an id are skipped with a warning (skip policy);
// users without signal are skipped silently. The returned predictions are
// sorted by churn score descending with the stable-sort guarantee that ties
// keep their original relative order.
func (s *Scorer) ScoreBatch(ctx context.Context, users []model.RawUser, now time.Time) ([]model.Prediction, BatchStats, error) {
	stats := BatchStats{Examined: len(users)}
	results := make([]*model.Prediction, len(users))
	errs := make([]error, len(users))

	limit := s.cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range users {
		g.Go(func() error {
			results[i], errs[i] = s.Score(users[i], now)
			return nil
		})
	}
	// Barrier: aggregation must not start before every score completes.
	if err := g.Wait(); err != nil {
		return nil, stats, eris.Wrap(err, "churn: score batch")
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, eris.Wrap(err, "churn: score batch canceled")
	}

	predictions := make([]model.Prediction, 0, len(users))
	for i := range users {
		switch {
		case errs[i] != nil:
			stats.SkippedNoID++
			zap.L().Warn("churn: skipping record without user id",
				zap.Int("index", i),
				zap.String("email", users[i].Email),
			)
		case results[i] == nil:
			stats.SkippedNoData++
		default:
			predictions = append(predictions, *results[i])
		}
	}
	stats.Scored = len(predictions)

	sort.SliceStable(predictions, func(a, b int) bool {
		return predictions[a].ChurnScore > predictions[b].ChurnScore
	})

	zap.L().Info("churn: batch scoring complete",
		zap.Int("examined", stats.Examined),
		zap.Int("scored", stats.Scored),
		zap.Int("skipped_no_data", stats.SkippedNoData),
		zap.Int("skipped_no_id", stats.SkippedNoID),
	)

	return predictions, stats, nil
}

// accountAgeDays returns whole days between created_at and now, floored.
// Unparsable timestamps and accounts "created in the future" both count as
// age zero.
func accountAgeDays(createdAt string, now time.Time) int {
	if createdAt == "" {
		return 0
	}
	var created time.Time
	var err error
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		created, err = time.Parse(layout, createdAt)
		if err == nil {
			break
		}
	}
	if err != nil {
		return 0
	}
	days := int(now.Sub(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
