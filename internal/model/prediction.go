package model

// RiskTier buckets a churn score into an ordered severity band. Tiers are
// always recomputed from the score, never stored as independent state.
type RiskTier string

const (
	TierHigh      RiskTier = "High"
	TierMedium    RiskTier = "Medium"
	TierLowMedium RiskTier = "Low-Medium"
	TierLow       RiskTier = "Low"
)

// Tier score thresholds. A score in [60,100] is High, [30,60) Medium,
// [15,30) Low-Medium, below 15 Low.
const (
	TierHighMin      = 60
	TierMediumMin    = 30
	TierLowMediumMin = 15
)

// TierForScore derives the risk tier from a clamped churn score.
func TierForScore(score int) RiskTier {
	switch {
	case score >= TierHighMin:
		return TierHigh
	case score >= TierMediumMin:
		return TierMedium
	case score >= TierLowMediumMin:
		return TierLowMedium
	default:
		return TierLow
	}
}

// Marker returns the decorative icon used when rendering the tier for humans.
func (t RiskTier) Marker() string {
	switch t {
	case TierHigh:
		return "\U0001F534"
	case TierMedium:
		return "\U0001F7E1"
	case TierLowMedium:
		return "\U0001F7E0"
	default:
		return "\U0001F7E2"
	}
}

// PlayerStatus is the lifecycle classification set by the scoring rules.
type PlayerStatus string

const (
	StatusChurned PlayerStatus = "Churned"
	StatusAtRisk  PlayerStatus = "At Risk"
	StatusDormant PlayerStatus = "Dormant"
	StatusActive  PlayerStatus = "Active"
)

// Severity tags a risk factor for display purposes only. Aggregation counts
// factor text, never severity markers, so marker changes cannot skew counts.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityNotice   Severity = "notice"
	SeverityOK       Severity = "ok"
)

// Marker returns the decorative icon for a severity.
func (s Severity) Marker() string {
	switch s {
	case SeverityCritical:
		return "\U0001F534"
	case SeverityWarning:
		return "\U0001F7E1"
	case SeverityNotice:
		return "\U0001F7E0"
	default:
		return "✅"
	}
}

// FactorCode identifies a scoring rule independent of its display text.
type FactorCode string

const (
	FactorNoGameActivity    FactorCode = "no_game_activity"
	FactorInactive          FactorCode = "inactive"
	FactorDaysSinceGame     FactorCode = "days_since_game"
	FactorZeroGames7d       FactorCode = "zero_games_7d"
	FactorZeroGames30d      FactorCode = "zero_games_30d"
	FactorLowGames30d       FactorCode = "low_games_30d"
	FactorNeverDeposited    FactorCode = "never_deposited"
	FactorDepositInactive   FactorCode = "deposit_inactive"
	FactorDepositDeclining  FactorCode = "deposit_declining"
	FactorHighBonusCancel   FactorCode = "high_bonus_cancel"
	FactorNoBonusCompletion FactorCode = "no_bonus_completion"
	FactorNewUserLowUsage   FactorCode = "new_user_low_engagement"
	FactorActiveEngaged     FactorCode = "active_engaged"
)

// RiskFactor is one triggered rule, carrying a stable code, the clean
// human-readable text, and a display severity.
type RiskFactor struct {
	Code     FactorCode `json:"code"`
	Text     string     `json:"text"`
	Severity Severity   `json:"severity"`
}

// Display renders the factor with its severity marker for human output.
func (f RiskFactor) Display() string {
	return f.Severity.Marker() + " " + f.Text
}

// ActionCode identifies a retention intervention independent of its text.
type ActionCode string

const (
	ActionFirstDepositBonus ActionCode = "first_deposit_bonus"
	ActionReloadBonus       ActionCode = "reload_bonus"
	ActionWinBackOffer      ActionCode = "win_back_offer"
	ActionNoWageringCash    ActionCode = "no_wagering_cashback"
	ActionWelcomeCampaign   ActionCode = "welcome_campaign"
	ActionUrgentReactivate  ActionCode = "urgent_reactivation"
	ActionWinBackEmail      ActionCode = "win_back_email"
	ActionEngagementDrive   ActionCode = "engagement_campaign"
	ActionPromoteFavorites  ActionCode = "promote_favorite_games"
	ActionDormantWakeUp     ActionCode = "dormant_wake_up"
	ActionVIPIntervention   ActionCode = "vip_intervention"
)

// RetentionAction is one suggested intervention, code plus display text.
type RetentionAction struct {
	Code ActionCode `json:"code"`
	Text string     `json:"text"`
	Icon string     `json:"icon,omitempty"`
}

// Display renders the action with its icon for human output.
func (a RetentionAction) Display() string {
	if a.Icon == "" {
		return a.Text
	}
	return a.Icon + " " + a.Text
}

// Prediction is the full churn assessment for a single user. It is built
// once by the scorer and read-only afterwards; the aggregation stage never
// re-derives scores from it.
type Prediction struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	Country        string `json:"country"`
	CreatedAt      string `json:"created_at"`
	AccountAgeDays int    `json:"account_age_days"`

	ChurnScore       int               `json:"churn_score"`
	RiskTier         RiskTier          `json:"churn_risk"`
	PlayerStatus     PlayerStatus      `json:"player_status"`
	RiskFactors      []RiskFactor      `json:"risk_factors"`
	RetentionActions []RetentionAction `json:"retention_actions"`

	// Activity echo fields, normalized. Days fields carry the DaysNever
	// sentinel rather than the textual "Never".
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

	KYCStatus string `json:"kyc_status"`
	IsVIP     bool   `json:"is_vip"`
}
