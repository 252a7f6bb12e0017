package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmetrics/churn-cli/internal/model"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

var testMeta = model.RunMeta{
	SourceURL:  "https://api.example.com/v2/ml/churns",
	Domain:     "api.example.com",
	BaseURL:    "https://api.example.com",
	DataSource: "https://api.example.com/v2/ml/churns",
}

func pred(id string, score int, status model.PlayerStatus, factorTexts ...string) model.Prediction {
	factors := make([]model.RiskFactor, 0, len(factorTexts))
	for _, text := range factorTexts {
		factors = append(factors, model.RiskFactor{Text: text})
	}
	return model.Prediction{
		UserID:       id,
		ChurnScore:   score,
		RiskTier:     model.TierForScore(score),
		PlayerStatus: status,
		RiskFactors:  factors,
	}
}

func TestSummarize_Counts(t *testing.T) {
	p1 := pred("u1", 80, model.StatusChurned, "F1", "F2")
	p1.DaysSinceLastGame = 65
	p1.DaysSinceLastDeposit = 100
	p1.TotalDepositAmount = 600

	p2 := pred("u2", 40, model.StatusAtRisk, "F1")
	p2.DaysSinceLastGame = model.DaysNever
	p2.DaysSinceLastDeposit = model.DaysNever
	p2.TotalDepositAmount = 600

	p3 := pred("u3", 20, model.StatusActive, "F3")
	p3.DaysSinceLastGame = 10

	p4 := pred("u4", 0, model.StatusActive, "Active and engaged")
	p4.DaysSinceLastGame = 5

	summary, records := Summarize([]model.Prediction{p1, p2, p3, p4}, 5, testMeta, testNow)

	assert.Equal(t, fmt.Sprintf("CHURN_%d", testNow.UnixMilli()), summary.AnalysisID)
	assert.Equal(t, "2026-08-30T12:00:00Z", summary.CreatedAt)
	assert.Equal(t, "2026-08-30", summary.AnalyzedDate)
	assert.Equal(t, 5, summary.TotalAnalyzed)
	assert.Equal(t, 4, summary.TotalPredicted)

	assert.Equal(t, 1, summary.HighRiskCount)
	assert.Equal(t, 1, summary.MediumRiskCount)
	assert.Equal(t, 1, summary.LowMediumRiskCount)
	assert.Equal(t, 1, summary.LowRiskCount)

	assert.Equal(t, 1, summary.ChurnedCount)
	assert.Equal(t, 1, summary.AtRiskCount)
	assert.Equal(t, 0, summary.DormantCount)
	assert.Equal(t, 2, summary.ActiveCount)

	assert.Equal(t, 1, summary.ImmediateActionRequired)
	// The 999 sentinel is "never", not long inactivity; u2 must not count.
	assert.Equal(t, 1, summary.UsersInactive60Plus)
	assert.Equal(t, 1, summary.UsersNoDeposit90Plus)

	// High-value count takes score >= 40, the VIP count score > 40. u2 sits
	// exactly on the boundary and lands in one but not the other.
	assert.Equal(t, 2, summary.HighValueAtRisk)
	assert.Equal(t, 1, summary.VIPInterventionCount)

	assert.Equal(t, "600.00", summary.TotalDepositAtRisk)
	assert.Equal(t, "35.00", summary.AvgChurnScore)
	// (65 + 10 + 5) / 4: sentinel excluded from the numerator only.
	assert.Equal(t, "20.00", summary.AvgDaysInactive)

	assert.Equal(t, 1, summary.UrgentReactivationCount)
	assert.Equal(t, 1, summary.EngagementCampaignCount)
	assert.Equal(t, 0, summary.DormantWakeupCount)

	assert.Equal(t,
		"F1 (2 users); F2 (1 users); F3 (1 users); Active and engaged (1 users)",
		summary.TopRiskFactors)

	assert.Equal(t, "api.example.com", summary.Domain)
	assert.Len(t, records, 4)
}

func TestSummarize_UserRecords(t *testing.T) {
	p := pred("u1", 80, model.StatusChurned, "F1", "F2")
	p.Email = "u1@example.com"
	p.Country = "MT"
	p.RetentionActions = []model.RetentionAction{
		{Code: model.ActionUrgentReactivate, Text: "Urgent: High-value reactivation offer"},
		{Code: model.ActionWinBackEmail, Text: "Email: 'We miss you - $50 bonus inside'"},
	}
	p.DaysSinceLastGame = 65
	p.TotalDepositAmount = 750.50
	p.IsVIP = true

	summary, records := Summarize([]model.Prediction{p}, 1, testMeta, testNow)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, summary.AnalysisID, r.AnalysisID)
	assert.Equal(t, summary.AnalyzedDate, r.AnalyzedAt)
	assert.Equal(t, summary.CreatedAt, r.CreatedAt)
	assert.Equal(t, testMeta.SourceURL, r.SourceURL)
	assert.Equal(t, "u1", r.UserID)
	assert.Equal(t, "High", r.ChurnRiskLevel)
	assert.Equal(t, "Churned", r.PlayerStatus)
	assert.Equal(t, "F1; F2", r.RiskFactors)
	assert.Equal(t,
		"Urgent: High-value reactivation offer; Email: 'We miss you - $50 bonus inside'",
		r.RetentionActions)
	assert.Equal(t, float64(65), r.DaysSinceLastGame)
	assert.Equal(t, 750.50, r.TotalDepositAmount)
	assert.True(t, r.IsVIP)
}

func TestSummarize_EmptyBatch(t *testing.T) {
	summary, records := Summarize(nil, 0, testMeta, testNow)

	assert.Equal(t, 0, summary.TotalPredicted)
	assert.Equal(t, "0.00", summary.TotalDepositAtRisk)
	assert.Equal(t, "0.00", summary.AvgChurnScore)
	assert.Equal(t, "0.00", summary.AvgDaysInactive)
	assert.Empty(t, summary.TopRiskFactors)
	assert.Empty(t, records)
}

func TestSummarize_DepositAtRiskPrecision(t *testing.T) {
	p1 := pred("u1", 60, model.StatusAtRisk, "F1")
	p1.TotalDepositAmount = 100.10
	p2 := pred("u2", 75, model.StatusChurned, "F1")
	p2.TotalDepositAmount = 200.25
	p3 := pred("u3", 59, model.StatusActive, "F1")
	p3.TotalDepositAmount = 999.99 // below the score floor, excluded

	summary, _ := Summarize([]model.Prediction{p1, p2, p3}, 3, testMeta, testNow)
	assert.Equal(t, "300.35", summary.TotalDepositAtRisk)
}

func TestTopFactors_LimitAndTies(t *testing.T) {
	counts := map[string]int{
		"A": 3, "B": 1, "C": 3, "D": 2, "E": 1, "F": 1,
	}
	firstSeen := []string{"A", "B", "C", "D", "E", "F"}

	got := topFactors(counts, firstSeen, 5)
	// Ties break by first-encounter order: A before C at 3, B before E
	// before F at 1; only five entries survive the cut.
	assert.Equal(t, "A (3 users); C (3 users); D (2 users); B (1 users); E (1 users)", got)
}

func TestTopFactors_Empty(t *testing.T) {
	assert.Empty(t, topFactors(map[string]int{}, nil, 5))
}
