// Package store persists churn analysis runs: one flat summary row per run
// plus the normalized per-user prediction rows that back it.
package store

import (
	"context"

	"github.com/playmetrics/churn-cli/internal/model"
)

// Store defines the persistence interface for analysis runs.
type Store interface {
	// SaveAnalysis writes the summary and its user records atomically.
	SaveAnalysis(ctx context.Context, summary model.BatchSummary, records []model.UserRecord) error
	GetSummary(ctx context.Context, analysisID string) (*model.BatchSummary, error)
	ListSummaries(ctx context.Context, limit int) ([]model.BatchSummary, error)
	ListUserRecords(ctx context.Context, analysisID string) ([]model.UserRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// Column orders shared by both backends. summaryValues/scanSummary and
// recordValues/scanRecord must stay in sync with these lists.
var summaryColumns = []string{
	"analysis_id", "created_at", "analyzed_date",
	"total_analyzed", "total_predicted",
	"high_risk_count", "medium_risk_count", "low_medium_risk_count", "low_risk_count",
	"churned_count", "at_risk_count", "dormant_count", "active_count",
	"immediate_action_required", "users_inactive_60plus_days",
	"users_no_deposit_90plus_days", "high_value_risk_count",
	"total_deposit_at_risk", "avg_churn_score", "avg_days_inactive",
	"urgent_reactivation_count", "engagement_campaign_count",
	"dormant_wakeup_count", "vip_intervention_count",
	"top_risk_factors", "data_source", "domain", "base_url",
}

var recordColumns = []string{
	"id", "analysis_id", "analyzed_at", "created_at",
	"url", "domain", "base_url",
	"user_id", "email", "country",
	"churn_risk_level", "churn_score", "player_status",
	"risk_factors", "retention_actions",
	"days_since_last_game", "days_since_last_deposit",
	"games_last_7_days", "games_last_30_days", "total_games",
	"total_deposits", "total_deposit_amount", "total_wagered",
	"total_bonuses", "bonus_cancel_rate", "bonus_completion_rate",
	"account_age_days", "kyc_status", "is_vip",
}

func summaryValues(s model.BatchSummary) []any {
	return []any{
		s.AnalysisID, s.CreatedAt, s.AnalyzedDate,
		s.TotalAnalyzed, s.TotalPredicted,
		s.HighRiskCount, s.MediumRiskCount, s.LowMediumRiskCount, s.LowRiskCount,
		s.ChurnedCount, s.AtRiskCount, s.DormantCount, s.ActiveCount,
		s.ImmediateActionRequired, s.UsersInactive60Plus,
		s.UsersNoDeposit90Plus, s.HighValueAtRisk,
		s.TotalDepositAtRisk, s.AvgChurnScore, s.AvgDaysInactive,
		s.UrgentReactivationCount, s.EngagementCampaignCount,
		s.DormantWakeupCount, s.VIPInterventionCount,
		s.TopRiskFactors, s.DataSource, s.Domain, s.BaseURL,
	}
}

func summaryFields(s *model.BatchSummary) []any {
	return []any{
		&s.AnalysisID, &s.CreatedAt, &s.AnalyzedDate,
		&s.TotalAnalyzed, &s.TotalPredicted,
		&s.HighRiskCount, &s.MediumRiskCount, &s.LowMediumRiskCount, &s.LowRiskCount,
		&s.ChurnedCount, &s.AtRiskCount, &s.DormantCount, &s.ActiveCount,
		&s.ImmediateActionRequired, &s.UsersInactive60Plus,
		&s.UsersNoDeposit90Plus, &s.HighValueAtRisk,
		&s.TotalDepositAtRisk, &s.AvgChurnScore, &s.AvgDaysInactive,
		&s.UrgentReactivationCount, &s.EngagementCampaignCount,
		&s.DormantWakeupCount, &s.VIPInterventionCount,
		&s.TopRiskFactors, &s.DataSource, &s.Domain, &s.BaseURL,
	}
}

func recordValues(id string, r model.UserRecord) []any {
	return []any{
		id, r.AnalysisID, r.AnalyzedAt, r.CreatedAt,
		r.SourceURL, r.Domain, r.BaseURL,
		r.UserID, r.Email, r.Country,
		r.ChurnRiskLevel, r.ChurnScore, r.PlayerStatus,
		r.RiskFactors, r.RetentionActions,
		r.DaysSinceLastGame, r.DaysSinceLastDeposit,
		r.GamesLast7Days, r.GamesLast30Days, r.TotalGames,
		r.TotalDeposits, r.TotalDepositAmount, r.TotalWagered,
		r.TotalBonuses, r.BonusCancelRate, r.BonusCompletionRate,
		r.AccountAgeDays, r.KYCStatus, r.IsVIP,
	}
}

func recordFields(id *string, r *model.UserRecord) []any {
	return []any{
		id, &r.AnalysisID, &r.AnalyzedAt, &r.CreatedAt,
		&r.SourceURL, &r.Domain, &r.BaseURL,
		&r.UserID, &r.Email, &r.Country,
		&r.ChurnRiskLevel, &r.ChurnScore, &r.PlayerStatus,
		&r.RiskFactors, &r.RetentionActions,
		&r.DaysSinceLastGame, &r.DaysSinceLastDeposit,
		&r.GamesLast7Days, &r.GamesLast30Days, &r.TotalGames,
		&r.TotalDeposits, &r.TotalDepositAmount, &r.TotalWagered,
		&r.TotalBonuses, &r.BonusCancelRate, &r.BonusCompletionRate,
		&r.AccountAgeDays, &r.KYCStatus, &r.IsVIP,
	}
}
