package churn

import (
	"fmt"

	"github.com/playmetrics/churn-cli/internal/config"
	"github.com/playmetrics/churn-cli/internal/model"
)

// Point values for each rule. The score is the plain sum of triggered rule
// points, clamped to [0,100] after the fold.
const (
	pointsActivityCritical  = 40
	pointsActivityWarning   = 25
	pointsActivitySafe      = 10
	pointsZeroGames7d       = 15
	pointsZeroGames30d      = 20
	pointsLowGames30d       = 10
	pointsNeverDeposited    = 20
	pointsDepositInactive   = 25
	pointsDepositDeclining  = 15
	pointsHighBonusCancel   = 15
	pointsNoBonusCompletion = 10
	pointsNewUserLowUsage   = 10
)

// metrics holds one user's parsed signals. Missing or malformed "days
// since" fields default to the DaysNever sentinel; everything else to zero.
type metrics struct {
	daysSinceLastGame    float64
	daysSinceLastDeposit float64
	gamesLast7Days       int
	gamesLast30Days      int
	totalGames           int
	totalDeposits        int
	depositAmount        float64
	wagered              float64
	totalBonuses         int
	bonusCancelRate      float64
	bonusCompletionRate  float64
	accountAgeDays       int
}

func extractMetrics(u model.RawUser) metrics {
	return metrics{
		daysSinceLastGame:    model.ToFloat(u.DaysSinceLastGame, model.DaysNever),
		daysSinceLastDeposit: model.ToFloat(u.DaysSinceLastDeposit, model.DaysNever),
		gamesLast7Days:       model.ToInt(u.GamesLast7Days, 0),
		gamesLast30Days:      model.ToInt(u.GamesLast30Days, 0),
		totalGames:           model.ToInt(u.TotalGamesPlayed, 0),
		totalDeposits:        model.ToInt(u.TotalDeposits, 0),
		depositAmount:        model.ToFloat(u.TotalDepositAmount, 0),
		wagered:              model.ToFloat(u.TotalWagered, 0),
		totalBonuses:         model.ToInt(u.TotalBonuses, 0),
		bonusCancelRate:      model.ToFloat(u.BonusCancellationRate, 0),
		bonusCompletionRate:  model.ToFloat(u.BonusCompletionRate, 0),
	}
}

// ruleHit is one entry in the scoring log: the points a rule contributed,
// the factor it recorded, an optional status override, and an optional
// retention action. The log is folded left-to-right into the final
// prediction; for status the last write wins.
type ruleHit struct {
	points int
	factor model.RiskFactor
	status model.PlayerStatus
	action *model.RetentionAction
}

type ruleGroup func(m metrics, cfg config.ScoringConfig) []ruleHit

// ruleGroups is the fixed evaluation order. Activity, deposit, and
// lifecycle are first-match-wins within the group; the engagement and
// bonus groups can contribute more than one hit.
var ruleGroups = []ruleGroup{
	activityRules,
	engagementRules,
	depositRules,
	bonusRules,
	lifecycleRules,
}

func activityRules(m metrics, cfg config.ScoringConfig) []ruleHit {
	switch {
	case m.daysSinceLastGame >= cfg.ActivityCriticalDays:
		return []ruleHit{{
			points: pointsActivityCritical,
			factor: model.RiskFactor{
				Code:     model.FactorNoGameActivity,
				Text:     fmt.Sprintf("No game activity for %.0f days", m.daysSinceLastGame),
				Severity: model.SeverityCritical,
			},
			status: model.StatusChurned,
		}}
	case m.daysSinceLastGame >= cfg.ActivityWarningDays:
		return []ruleHit{{
			points: pointsActivityWarning,
			factor: model.RiskFactor{
				Code:     model.FactorInactive,
				Text:     fmt.Sprintf("Inactive for %.0f days", m.daysSinceLastGame),
				Severity: model.SeverityWarning,
			},
			status: model.StatusAtRisk,
		}}
	case m.daysSinceLastGame >= cfg.ActivitySafeDays:
		return []ruleHit{{
			points: pointsActivitySafe,
			factor: model.RiskFactor{
				Code:     model.FactorDaysSinceGame,
				Text:     fmt.Sprintf("%.0f days since last game", m.daysSinceLastGame),
				Severity: model.SeverityNotice,
			},
		}}
	}
	return nil
}

func engagementRules(m metrics, cfg config.ScoringConfig) []ruleHit {
	var hits []ruleHit

	if m.gamesLast7Days == 0 && m.totalGames > 0 {
		hits = append(hits, ruleHit{
			points: pointsZeroGames7d,
			factor: model.RiskFactor{
				Code:     model.FactorZeroGames7d,
				Text:     "Zero games in last 7 days",
				Severity: model.SeverityCritical,
			},
		})
	}

	if m.gamesLast30Days == 0 && m.totalGames > 0 {
		hits = append(hits, ruleHit{
			points: pointsZeroGames30d,
			factor: model.RiskFactor{
				Code:     model.FactorZeroGames30d,
				Text:     "Zero games in last 30 days",
				Severity: model.SeverityCritical,
			},
			status: model.StatusDormant,
		})
	} else if m.gamesLast30Days < cfg.LowGames30d && m.totalGames > 50 {
		hits = append(hits, ruleHit{
			points: pointsLowGames30d,
			factor: model.RiskFactor{
				Code:     model.FactorLowGames30d,
				Text:     fmt.Sprintf("Only %d games in 30 days", m.gamesLast30Days),
				Severity: model.SeverityWarning,
			},
		})
	}

	return hits
}

func depositRules(m metrics, cfg config.ScoringConfig) []ruleHit {
	switch {
	case m.totalDeposits == 0 && m.totalGames > 100:
		return []ruleHit{{
			points: pointsNeverDeposited,
			factor: model.RiskFactor{
				Code:     model.FactorNeverDeposited,
				Text:     "Never deposited (free player)",
				Severity: model.SeverityCritical,
			},
			action: &model.RetentionAction{
				Code: model.ActionFirstDepositBonus,
				Text: "First deposit bonus: 200% + 100 free spins",
				Icon: "\U0001F4B0",
			},
		}}
	case m.daysSinceLastDeposit >= cfg.DepositInactiveDays:
		return []ruleHit{{
			points: pointsDepositInactive,
			factor: model.RiskFactor{
				Code:     model.FactorDepositInactive,
				Text:     fmt.Sprintf("%.0f days since last deposit", m.daysSinceLastDeposit),
				Severity: model.SeverityCritical,
			},
			action: &model.RetentionAction{
				Code: model.ActionReloadBonus,
				Text: "Reload bonus: 150% up to $500",
				Icon: "\U0001F4B3",
			},
		}}
	case m.daysSinceLastDeposit >= cfg.DepositDecliningDays:
		return []ruleHit{{
			points: pointsDepositDeclining,
			factor: model.RiskFactor{
				Code:     model.FactorDepositDeclining,
				Text:     fmt.Sprintf("%.0f days since deposit", m.daysSinceLastDeposit),
				Severity: model.SeverityWarning,
			},
			action: &model.RetentionAction{
				Code: model.ActionWinBackOffer,
				Text: "Win-back offer: 50 free spins",
				Icon: "\U0001F4B0",
			},
		}}
	}
	return nil
}

func bonusRules(m metrics, cfg config.ScoringConfig) []ruleHit {
	var hits []ruleHit

	if m.bonusCancelRate >= cfg.HighBonusCancelPct && m.totalBonuses > 5 {
		hits = append(hits, ruleHit{
			points: pointsHighBonusCancel,
			factor: model.RiskFactor{
				Code:     model.FactorHighBonusCancel,
				Text:     fmt.Sprintf("High bonus cancel rate (%.0f%%)", m.bonusCancelRate),
				Severity: model.SeverityWarning,
			},
			action: &model.RetentionAction{
				Code: model.ActionNoWageringCash,
				Text: "No-wagering cashback offers",
				Icon: "\U0001F381",
			},
		})
	}

	if m.bonusCompletionRate == 0 && m.totalBonuses > 3 {
		hits = append(hits, ruleHit{
			points: pointsNoBonusCompletion,
			factor: model.RiskFactor{
				Code:     model.FactorNoBonusCompletion,
				Text:     "Never completed any bonus",
				Severity: model.SeverityCritical,
			},
		})
	}

	return hits
}

func lifecycleRules(m metrics, _ config.ScoringConfig) []ruleHit {
	if m.accountAgeDays < 30 && m.totalGames < 10 {
		return []ruleHit{{
			points: pointsNewUserLowUsage,
			factor: model.RiskFactor{
				Code:     model.FactorNewUserLowUsage,
				Text:     "New user, low engagement",
				Severity: model.SeverityCritical,
			},
			action: &model.RetentionAction{
				Code: model.ActionWelcomeCampaign,
				Text: "Welcome campaign: Daily login rewards",
				Icon: "\U0001F44B",
			},
		}}
	}
	return nil
}

// statusActions maps the final lifecycle status to the interventions that
// are always appended for it, after the rule fold.
func statusActions(status model.PlayerStatus) []model.RetentionAction {
	switch status {
	case model.StatusChurned:
		return []model.RetentionAction{
			{Code: model.ActionUrgentReactivate, Text: "Urgent: High-value reactivation offer", Icon: "\U0001F6A8"},
			{Code: model.ActionWinBackEmail, Text: "Email: 'We miss you - $50 bonus inside'", Icon: "\U0001F4E7"},
		}
	case model.StatusAtRisk:
		return []model.RetentionAction{
			{Code: model.ActionEngagementDrive, Text: "Priority: Engagement campaign", Icon: "⚠️"},
			{Code: model.ActionPromoteFavorites, Text: "Promote favorite games", Icon: "\U0001F3AE"},
		}
	case model.StatusDormant:
		return []model.RetentionAction{
			{Code: model.ActionDormantWakeUp, Text: "Wake-up: 100 free spins + $20 bonus", Icon: "\U0001F4A4"},
		}
	}
	return nil
}
