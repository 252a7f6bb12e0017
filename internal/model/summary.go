package model

import "time"

// RunMeta carries upstream source metadata that is stamped onto the batch
// summary and every normalized user record of a run.
type RunMeta struct {
	SourceURL  string `json:"url"`
	Domain     string `json:"domain"`
	BaseURL    string `json:"base_url"`
	DataSource string `json:"data_source"`
}

// BatchSummary is the flat per-run summary record. Field names are the
// storage contract downstream reporting depends on; keep them stable.
type BatchSummary struct {
	AnalysisID   string `json:"analysis_id"`
	CreatedAt    string `json:"created_at"`    // RFC 3339 run timestamp
	AnalyzedDate string `json:"analyzed_date"` // YYYY-MM-DD

	TotalAnalyzed  int `json:"total_analyzed"`
	TotalPredicted int `json:"total_predicted"`

	HighRiskCount      int `json:"high_risk_count"`
	MediumRiskCount    int `json:"medium_risk_count"`
	LowMediumRiskCount int `json:"low_medium_risk_count"`
	LowRiskCount       int `json:"low_risk_count"`

	ChurnedCount int `json:"churned_count"`
	AtRiskCount  int `json:"at_risk_count"`
	DormantCount int `json:"dormant_count"`
	ActiveCount  int `json:"active_count"`

	ImmediateActionRequired int `json:"immediate_action_required"`
	UsersInactive60Plus     int `json:"users_inactive_60plus_days"`
	UsersNoDeposit90Plus    int `json:"users_no_deposit_90plus_days"`
	HighValueAtRisk         int `json:"high_value_risk_count"`

	TotalDepositAtRisk string `json:"total_deposit_at_risk"` // 2dp, "0.00" when none
	AvgChurnScore      string `json:"avg_churn_score"`       // 2dp, "0.00" when empty
	AvgDaysInactive    string `json:"avg_days_inactive"`     // 2dp, "0.00" when empty

	UrgentReactivationCount int `json:"urgent_reactivation_count"`
	EngagementCampaignCount int `json:"engagement_campaign_count"`
	DormantWakeupCount      int `json:"dormant_wakeup_count"`
	VIPInterventionCount    int `json:"vip_intervention_count"`

	TopRiskFactors string `json:"top_risk_factors"` // "factor (N users); ..."

	DataSource string `json:"data_source"`
	Domain     string `json:"domain"`
	BaseURL    string `json:"base_url"`
}

// UserRecord is the normalized per-user row written to storage alongside a
// batch summary. Flat by contract: no nested objects, days fields use the
// numeric DaysNever sentinel, factor/action text is clean (marker-free) and
// "; "-joined.
type UserRecord struct {
	AnalysisID string `json:"analysis_id"`
	AnalyzedAt string `json:"analyzed_at"`
	CreatedAt  string `json:"created_at"`

	SourceURL string `json:"url"`
	Domain    string `json:"domain"`
	BaseURL   string `json:"base_url"`

	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Country string `json:"country"`

	ChurnRiskLevel string `json:"churn_risk_level"`
	ChurnScore     int    `json:"churn_score"`
	PlayerStatus   string `json:"player_status"`

	RiskFactors      string `json:"risk_factors"`
	RetentionActions string `json:"retention_actions"`

	DaysSinceLastGame    float64 `json:"days_since_last_game"`
	DaysSinceLastDeposit float64 `json:"days_since_last_deposit"`
	GamesLast7Days       int     `json:"games_last_7_days"`
	GamesLast30Days      int     `json:"games_last_30_days"`
	TotalGames           int     `json:"total_games"`

	TotalDeposits      int     `json:"total_deposits"`
	TotalDepositAmount float64 `json:"total_deposit_amount"`
	TotalWagered       float64 `json:"total_wagered"`

	TotalBonuses        int     `json:"total_bonuses"`
	BonusCancelRate     float64 `json:"bonus_cancel_rate"`
	BonusCompletionRate float64 `json:"bonus_completion_rate"`

	AccountAgeDays int    `json:"account_age_days"`
	KYCStatus      string `json:"kyc_status"`
	IsVIP          bool   `json:"is_vip"`
}

// AnalysisTimestamps renders the shared run timestamps from a single
// instant so the summary and every user record agree to the second.
func AnalysisTimestamps(now time.Time) (createdAt, analyzedDate string) {
	utc := now.UTC()
	return utc.Format(time.RFC3339), utc.Format("2006-01-02")
}
