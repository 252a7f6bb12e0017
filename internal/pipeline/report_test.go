package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/playmetrics/churn-cli/internal/churn"
	"github.com/playmetrics/churn-cli/internal/model"
)

func TestFormatReport(t *testing.T) {
	summary := model.BatchSummary{
		AnalysisID:              "CHURN_1756555200000",
		AnalyzedDate:            "2026-08-30",
		DataSource:              "https://api.example.com/v2/ml/churns",
		Domain:                  "api.example.com",
		TotalAnalyzed:           1250,
		TotalPredicted:          1248,
		HighRiskCount:           100,
		MediumRiskCount:         300,
		LowMediumRiskCount:      400,
		LowRiskCount:            448,
		ChurnedCount:            80,
		ImmediateActionRequired: 42,
		TotalDepositAtRisk:      "12345.67",
		AvgChurnScore:           "31.20",
		AvgDaysInactive:         "18.75",
		TopRiskFactors:          "Zero games in last 7 days (210 users); Never completed any bonus (44 users)",
	}
	stats := churn.BatchStats{Examined: 1250, Scored: 1248, SkippedNoData: 1, SkippedNoID: 1}

	out := FormatReport(summary, stats)

	assert.Contains(t, out, "# Churn Analysis: CHURN_1756555200000")
	assert.Contains(t, out, "Source: https://api.example.com/v2/ml/churns (api.example.com)")
	// Grouped for readability in the report only.
	assert.Contains(t, out, "Users analyzed: 1,250")
	assert.Contains(t, out, "Skipped (no signal): 1")
	assert.Contains(t, out, "Skipped (no user id): 1")
	assert.Contains(t, out, "Immediate action required: 42")
	assert.Contains(t, out, "Deposit exposure:          $12345.67")
	assert.Contains(t, out, "- Zero games in last 7 days (210 users)")
	assert.Contains(t, out, "- Never completed any bonus (44 users)")
}

func TestFormatReport_NoFactors(t *testing.T) {
	out := FormatReport(model.BatchSummary{AnalysisID: "CHURN_0"}, churn.BatchStats{})
	assert.NotContains(t, out, "Top Risk Factors")
	assert.NotContains(t, out, "Skipped")
}
