package pipeline

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/playmetrics/churn-cli/internal/model"
)

var exportHeader = []string{
	"user_id", "email", "country",
	"churn_risk_level", "churn_score", "player_status",
	"risk_factors", "retention_actions",
	"days_since_last_game", "days_since_last_deposit",
	"games_last_7_days", "games_last_30_days", "total_games",
	"total_deposits", "total_deposit_amount", "total_wagered",
	"total_bonuses", "bonus_cancel_rate", "bonus_completion_rate",
	"account_age_days", "kyc_status", "is_vip",
}

// WriteWorkbook exports one analysis run to an XLSX file with a summary
// sheet and a per-user predictions sheet.
func WriteWorkbook(path string, summary model.BatchSummary, records []model.UserRecord) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, summary); err != nil {
		return err
	}
	if err := addPredictionsSheet(f, records); err != nil {
		return err
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func addSummarySheet(f *xlsx.File, summary model.BatchSummary) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	addKV := func(key string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case string:
			row.AddCell().SetString(v)
		case int:
			row.AddCell().SetInt(v)
		}
	}

	addKV("analysis_id", summary.AnalysisID)
	addKV("created_at", summary.CreatedAt)
	addKV("analyzed_date", summary.AnalyzedDate)
	addKV("total_analyzed", summary.TotalAnalyzed)
	addKV("total_predicted", summary.TotalPredicted)
	addKV("high_risk_count", summary.HighRiskCount)
	addKV("medium_risk_count", summary.MediumRiskCount)
	addKV("low_medium_risk_count", summary.LowMediumRiskCount)
	addKV("low_risk_count", summary.LowRiskCount)
	addKV("churned_count", summary.ChurnedCount)
	addKV("at_risk_count", summary.AtRiskCount)
	addKV("dormant_count", summary.DormantCount)
	addKV("active_count", summary.ActiveCount)
	addKV("immediate_action_required", summary.ImmediateActionRequired)
	addKV("users_inactive_60plus_days", summary.UsersInactive60Plus)
	addKV("users_no_deposit_90plus_days", summary.UsersNoDeposit90Plus)
	addKV("high_value_risk_count", summary.HighValueAtRisk)
	addKV("total_deposit_at_risk", summary.TotalDepositAtRisk)
	addKV("avg_churn_score", summary.AvgChurnScore)
	addKV("avg_days_inactive", summary.AvgDaysInactive)
	addKV("urgent_reactivation_count", summary.UrgentReactivationCount)
	addKV("engagement_campaign_count", summary.EngagementCampaignCount)
	addKV("dormant_wakeup_count", summary.DormantWakeupCount)
	addKV("vip_intervention_count", summary.VIPInterventionCount)
	addKV("top_risk_factors", summary.TopRiskFactors)
	addKV("data_source", summary.DataSource)
	addKV("domain", summary.Domain)

	return nil
}

func addPredictionsSheet(f *xlsx.File, records []model.UserRecord) error {
	sheet, err := f.AddSheet("Predictions")
	if err != nil {
		return eris.Wrap(err, "export: add predictions sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.UserID)
		row.AddCell().SetString(r.Email)
		row.AddCell().SetString(r.Country)
		row.AddCell().SetString(r.ChurnRiskLevel)
		row.AddCell().SetInt(r.ChurnScore)
		row.AddCell().SetString(r.PlayerStatus)
		row.AddCell().SetString(r.RiskFactors)
		row.AddCell().SetString(r.RetentionActions)
		row.AddCell().SetString(model.FormatDays(r.DaysSinceLastGame))
		row.AddCell().SetString(model.FormatDays(r.DaysSinceLastDeposit))
		row.AddCell().SetInt(r.GamesLast7Days)
		row.AddCell().SetInt(r.GamesLast30Days)
		row.AddCell().SetInt(r.TotalGames)
		row.AddCell().SetInt(r.TotalDeposits)
		row.AddCell().SetFloat(r.TotalDepositAmount)
		row.AddCell().SetFloat(r.TotalWagered)
		row.AddCell().SetInt(r.TotalBonuses)
		row.AddCell().SetFloat(r.BonusCancelRate)
		row.AddCell().SetFloat(r.BonusCompletionRate)
		row.AddCell().SetInt(r.AccountAgeDays)
		row.AddCell().SetString(r.KYCStatus)
		row.AddCell().SetBool(r.IsVIP)
	}

	return nil
}
