package churn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmetrics/churn-cli/internal/config"
	"github.com/playmetrics/churn-cli/internal/model"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// activeUser returns a user that triggers no rules at all.
func activeUser(id string) model.RawUser {
	return model.RawUser{
		ID:                   id,
		Email:                id + "@example.com",
		CreatedAt:            "2025-01-01T00:00:00Z",
		DaysSinceLastGame:    2.0,
		DaysSinceLastDeposit: 5.0,
		GamesLast7Days:       10,
		GamesLast30Days:      40,
		TotalGamesPlayed:     300,
		TotalDeposits:        12,
		TotalDepositAmount:   250.0,
		TotalBonuses:         2,
		BonusCompletionRate:  80.0,
	}
}

func newTestScorer() *Scorer {
	return NewScorer(config.DefaultScoring())
}

func TestScore_ChurnedFreePlayer(t *testing.T) {
	s := newTestScorer()

	user := model.RawUser{
		ID:                   "u1",
		Email:                "u1@example.com",
		CreatedAt:            "2025-01-01T00:00:00Z",
		DaysSinceLastGame:    65.0,
		DaysSinceLastDeposit: "Never",
		GamesLast7Days:       0,
		GamesLast30Days:      0,
		TotalGamesPlayed:     120,
		TotalDeposits:        0,
	}

	p, err := s.Score(user, testNow)
	require.NoError(t, err)
	require.NotNil(t, p)

	// 40 (no activity) + 15 (zero 7d) + 20 (zero 30d) + 20 (never deposited).
	assert.Equal(t, 95, p.ChurnScore)
	assert.Equal(t, model.TierHigh, p.RiskTier)
	// Activity set Churned, then the 30-day engagement rule set Dormant;
	// the later write wins.
	assert.Equal(t, model.StatusDormant, p.PlayerStatus)

	require.Len(t, p.RiskFactors, 4)
	assert.Equal(t, "No game activity for 65 days", p.RiskFactors[0].Text)

	codes := actionCodes(p.RetentionActions)
	assert.Contains(t, codes, model.ActionFirstDepositBonus)
	assert.Contains(t, codes, model.ActionDormantWakeUp)
	assert.NotContains(t, codes, model.ActionUrgentReactivate)
}

func TestScore_ClampsAt100(t *testing.T) {
	s := newTestScorer()

	user := model.RawUser{
		ID:                    "u1",
		DaysSinceLastGame:     65.0,
		DaysSinceLastDeposit:  "Never",
		GamesLast7Days:        0,
		GamesLast30Days:       0,
		TotalGamesPlayed:      120,
		TotalDeposits:         0,
		TotalBonuses:          10,
		BonusCancellationRate: 85.0,
		BonusCompletionRate:   0.0,
		CreatedAt:             "2025-01-01T00:00:00Z",
	}

	p, err := s.Score(user, testNow)
	require.NoError(t, err)
	// Raw sum is 120; the score is clamped.
	assert.Equal(t, 100, p.ChurnScore)
	assert.Equal(t, model.TierHigh, p.RiskTier)
}

func TestScore_ActiveAndEngaged(t *testing.T) {
	s := newTestScorer()

	p, err := s.Score(activeUser("u1"), testNow)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, 0, p.ChurnScore)
	assert.Equal(t, model.TierLow, p.RiskTier)
	assert.Equal(t, model.StatusActive, p.PlayerStatus)
	require.Len(t, p.RiskFactors, 1)
	assert.Equal(t, model.FactorActiveEngaged, p.RiskFactors[0].Code)
	assert.Equal(t, "Active and engaged", p.RiskFactors[0].Text)
	assert.Empty(t, p.RetentionActions)
}

func TestScore_NoSignalSkipped(t *testing.T) {
	s := newTestScorer()

	p, err := s.Score(model.RawUser{ID: "u1", Email: "ghost@example.com"}, testNow)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestScore_MissingUserID(t *testing.T) {
	s := newTestScorer()

	_, err := s.Score(model.RawUser{Email: "nobody@example.com", TotalGamesPlayed: 10}, testNow)
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestScore_NumericID(t *testing.T) {
	s := newTestScorer()

	user := activeUser("")
	user.ID = float64(42)

	p, err := s.Score(user, testNow)
	require.NoError(t, err)
	assert.Equal(t, "42", p.UserID)
}

func TestScore_NeverSentinelEqualsNumeric(t *testing.T) {
	s := newTestScorer()

	textual := activeUser("u1")
	textual.DaysSinceLastGame = "Never"
	numeric := activeUser("u1")
	numeric.DaysSinceLastGame = float64(model.DaysNever)

	pt, err := s.Score(textual, testNow)
	require.NoError(t, err)
	pn, err := s.Score(numeric, testNow)
	require.NoError(t, err)

	assert.Equal(t, pn, pt)
	assert.Equal(t, float64(model.DaysNever), pt.DaysSinceLastGame)
	assert.Equal(t, "No game activity for 999 days", pt.RiskFactors[0].Text)
}

func TestScore_StringCoercion(t *testing.T) {
	s := newTestScorer()

	user := activeUser("u1")
	user.DaysSinceLastGame = "65"
	user.TotalDepositAmount = "$1,250.50"
	user.IsVIP = "yes"

	p, err := s.Score(user, testNow)
	require.NoError(t, err)
	assert.Equal(t, float64(65), p.DaysSinceLastGame)
	assert.Equal(t, 1250.50, p.TotalDepositAmount)
	assert.True(t, p.IsVIP)
}

func TestScore_Deterministic(t *testing.T) {
	s := newTestScorer()

	user := activeUser("u1")
	user.DaysSinceLastGame = 35.0

	first, err := s.Score(user, testNow)
	require.NoError(t, err)
	for range 5 {
		again, err := s.Score(user, testNow)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScore_VIPIntervention(t *testing.T) {
	s := newTestScorer()

	user := activeUser("u1")
	user.DaysSinceLastGame = 65.0  // +40
	user.GamesLast7Days = 2        // avoid the zero-games-7d rule
	user.GamesLast30Days = 5       // +10 (low games, total > 50)
	user.TotalDepositAmount = 600.0

	p, err := s.Score(user, testNow)
	require.NoError(t, err)
	assert.Equal(t, 50, p.ChurnScore)

	codes := actionCodes(p.RetentionActions)
	assert.Contains(t, codes, model.ActionVIPIntervention)
}

func TestScore_VIPRequiresScoreStrictlyAboveFloor(t *testing.T) {
	s := newTestScorer()

	// Exactly 40 points: high-value deposit but score not strictly above
	// the floor, so no VIP action.
	user := activeUser("u1")
	user.DaysSinceLastGame = 65.0
	user.GamesLast7Days = 2
	user.TotalDepositAmount = 600.0

	p, err := s.Score(user, testNow)
	require.NoError(t, err)
	require.Equal(t, 40, p.ChurnScore)
	assert.NotContains(t, actionCodes(p.RetentionActions), model.ActionVIPIntervention)
}

func TestScore_NewUserLowEngagement(t *testing.T) {
	s := newTestScorer()

	user := model.RawUser{
		ID:                   "u1",
		CreatedAt:            testNow.AddDate(0, 0, -10).Format(time.RFC3339),
		DaysSinceLastGame:    2.0,
		DaysSinceLastDeposit: 3.0,
		GamesLast7Days:       2,
		GamesLast30Days:      5,
		TotalGamesPlayed:     5,
		TotalDeposits:        1,
		TotalDepositAmount:   20.0,
	}

	p, err := s.Score(user, testNow)
	require.NoError(t, err)
	assert.Equal(t, 10, p.AccountAgeDays)
	assert.Equal(t, 10, p.ChurnScore)
	require.Len(t, p.RiskFactors, 1)
	assert.Equal(t, model.FactorNewUserLowUsage, p.RiskFactors[0].Code)
	assert.Contains(t, actionCodes(p.RetentionActions), model.ActionWelcomeCampaign)
}

func TestScoreBatch_SortAndStats(t *testing.T) {
	s := newTestScorer()

	critical := activeUser("high")
	critical.DaysSinceLastGame = 70.0
	critical.GamesLast7Days = 0 // +40 +15

	tieA := activeUser("tie-a")
	tieA.DaysSinceLastGame = 35.0 // +25
	tieB := activeUser("tie-b")
	tieB.DaysSinceLastGame = 35.0 // +25

	users := []model.RawUser{
		activeUser("calm"), // 0
		tieA,
		{Email: "no-id@example.com", TotalGamesPlayed: 10}, // skipped, no id
		{ID: "ghost"}, // skipped, no signal
		tieB,
		critical,
	}

	predictions, stats, err := s.ScoreBatch(context.Background(), users, testNow)
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Examined)
	assert.Equal(t, 4, stats.Scored)
	assert.Equal(t, 1, stats.SkippedNoData)
	assert.Equal(t, 1, stats.SkippedNoID)

	require.Len(t, predictions, 4)
	assert.Equal(t, "high", predictions[0].UserID)
	// Equal scores keep their input order.
	assert.Equal(t, "tie-a", predictions[1].UserID)
	assert.Equal(t, "tie-b", predictions[2].UserID)
	assert.Equal(t, "calm", predictions[3].UserID)
}

func TestScoreBatch_Empty(t *testing.T) {
	s := newTestScorer()

	predictions, stats, err := s.ScoreBatch(context.Background(), nil, testNow)
	require.NoError(t, err)
	assert.Empty(t, predictions)
	assert.Equal(t, BatchStats{}, stats)
}

func TestAccountAgeDays(t *testing.T) {
	tests := []struct {
		name      string
		createdAt string
		want      int
	}{
		{"rfc3339", "2026-08-20T12:00:00Z", 10},
		{"datetime", "2026-08-20 12:00:00", 10},
		{"date only", "2026-08-20", 10},
		{"future", "2027-01-01T00:00:00Z", 0},
		{"empty", "", 0},
		{"garbage", "not-a-date", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, accountAgeDays(tt.createdAt, testNow))
		})
	}
}

func actionCodes(actions []model.RetentionAction) []model.ActionCode {
	codes := make([]model.ActionCode, 0, len(actions))
	for _, a := range actions {
		codes = append(codes, a.Code)
	}
	return codes
}
