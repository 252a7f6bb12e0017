package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/playmetrics/churn-cli/internal/model"
)

// topFactorLimit is how many risk factors the frequency table keeps.
const topFactorLimit = 5

// immediateActionScore is the alert band for the immediate-action count.
// It is deliberately stricter than the High tier cutoff at 60 and tuned
// independently of it.
const immediateActionScore = 70

// depositAtRiskScore is the score floor for summing deposit exposure.
const depositAtRiskScore = 60

// Aggregation thresholds for value-at-risk counting. The high-value count
// uses score >= 40 while the scorer's VIP action uses score > 40; the
// boundary difference is intentional tuning, keep them separate.
const (
	highValueDepositMin = 500
	highValueScoreMin   = 40
	vipScoreFloor       = 40
)

// Summarize reduces a scored batch into the flat summary record and the
// normalized per-user storage rows. It never re-derives scores; it only
// counts and sums what the scorer already computed. predictions must be the
// complete batch; the caller guarantees the scoring stage has finished.
// An empty batch yields zero counts and "0.00" averages, not an error.
func Summarize(predictions []model.Prediction, totalExamined int, meta model.RunMeta, now time.Time) (model.BatchSummary, []model.UserRecord) {
	createdAt, analyzedDate := model.AnalysisTimestamps(now)

	summary := model.BatchSummary{
		AnalysisID:         fmt.Sprintf("CHURN_%d", now.UnixMilli()),
		CreatedAt:          createdAt,
		AnalyzedDate:       analyzedDate,
		TotalAnalyzed:      totalExamined,
		TotalPredicted:     len(predictions),
		TotalDepositAtRisk: "0.00",
		AvgChurnScore:      "0.00",
		AvgDaysInactive:    "0.00",
		DataSource:         meta.DataSource,
		Domain:             meta.Domain,
		BaseURL:            meta.BaseURL,
	}

	var (
		scoreSum        int
		daysInactiveSum float64
		depositAtRisk   float64
		factorCounts    = make(map[string]int)
		factorFirstSeen []string
		records         = make([]model.UserRecord, 0, len(predictions))
	)

	for _, p := range predictions {
		switch p.RiskTier {
		case model.TierHigh:
			summary.HighRiskCount++
		case model.TierMedium:
			summary.MediumRiskCount++
		case model.TierLowMedium:
			summary.LowMediumRiskCount++
		default:
			summary.LowRiskCount++
		}

		switch p.PlayerStatus {
		case model.StatusChurned:
			summary.ChurnedCount++
		case model.StatusAtRisk:
			summary.AtRiskCount++
		case model.StatusDormant:
			summary.DormantCount++
		default:
			summary.ActiveCount++
		}

		if p.ChurnScore >= immediateActionScore {
			summary.ImmediateActionRequired++
		}
		// The sentinel means "never played/deposited", not "inactive for
		// 999 days"; it must not be counted as inactivity.
		if p.DaysSinceLastGame >= 60 && p.DaysSinceLastGame != model.DaysNever {
			summary.UsersInactive60Plus++
		}
		if p.DaysSinceLastDeposit >= 90 && p.DaysSinceLastDeposit != model.DaysNever {
			summary.UsersNoDeposit90Plus++
		}
		if p.TotalDepositAmount > highValueDepositMin && p.ChurnScore >= highValueScoreMin {
			summary.HighValueAtRisk++
		}
		if p.TotalDepositAmount > highValueDepositMin && p.ChurnScore > vipScoreFloor {
			summary.VIPInterventionCount++
		}
		if p.ChurnScore >= depositAtRiskScore {
			depositAtRisk += p.TotalDepositAmount
		}

		scoreSum += p.ChurnScore
		if p.DaysSinceLastGame != model.DaysNever {
			daysInactiveSum += p.DaysSinceLastGame
		}

		for _, f := range p.RiskFactors {
			if f.Text == "" {
				continue
			}
			if _, seen := factorCounts[f.Text]; !seen {
				factorFirstSeen = append(factorFirstSeen, f.Text)
			}
			factorCounts[f.Text]++
		}

		records = append(records, buildUserRecord(p, summary, meta))
	}

	summary.UrgentReactivationCount = summary.ChurnedCount
	summary.EngagementCampaignCount = summary.AtRiskCount
	summary.DormantWakeupCount = summary.DormantCount

	if len(predictions) > 0 {
		summary.TotalDepositAtRisk = strconv.FormatFloat(depositAtRisk, 'f', 2, 64)
		summary.AvgChurnScore = strconv.FormatFloat(float64(scoreSum)/float64(len(predictions)), 'f', 2, 64)
		// Sentinel entries are excluded from the numerator but the divisor
		// stays the full batch size. Intentional approximation, preserved
		// from the production definition of this metric.
		summary.AvgDaysInactive = strconv.FormatFloat(daysInactiveSum/float64(len(predictions)), 'f', 2, 64)
	}

	summary.TopRiskFactors = topFactors(factorCounts, factorFirstSeen, topFactorLimit)

	return summary, records
}

// topFactors renders the N most frequent factor texts as
// "factor (N users); ...". Ties break by first-encountered order, which the
// stable sort over the first-seen list guarantees.
func topFactors(counts map[string]int, firstSeen []string, limit int) string {
	ranked := make([]string, len(firstSeen))
	copy(ranked, firstSeen)
	sort.SliceStable(ranked, func(a, b int) bool {
		return counts[ranked[a]] > counts[ranked[b]]
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	parts := make([]string, 0, len(ranked))
	for _, text := range ranked {
		parts = append(parts, fmt.Sprintf("%s (%d users)", text, counts[text]))
	}
	return strings.Join(parts, "; ")
}

// buildUserRecord flattens one prediction into its storage row, stamping the
// shared run id/timestamps and upstream metadata.
func buildUserRecord(p model.Prediction, summary model.BatchSummary, meta model.RunMeta) model.UserRecord {
	return model.UserRecord{
		AnalysisID: summary.AnalysisID,
		AnalyzedAt: summary.AnalyzedDate,
		CreatedAt:  summary.CreatedAt,

		SourceURL: meta.SourceURL,
		Domain:    meta.Domain,
		BaseURL:   meta.BaseURL,

		UserID:  p.UserID,
		Email:   p.Email,
		Country: p.Country,

		ChurnRiskLevel: string(p.RiskTier),
		ChurnScore:     p.ChurnScore,
		PlayerStatus:   string(p.PlayerStatus),

		RiskFactors:      joinFactorText(p.RiskFactors),
		RetentionActions: joinActionText(p.RetentionActions),

		DaysSinceLastGame:    p.DaysSinceLastGame,
		DaysSinceLastDeposit: p.DaysSinceLastDeposit,
		GamesLast7Days:       p.GamesLast7Days,
		GamesLast30Days:      p.GamesLast30Days,
		TotalGames:           p.TotalGames,

		TotalDeposits:      p.TotalDeposits,
		TotalDepositAmount: p.TotalDepositAmount,
		TotalWagered:       p.TotalWagered,

		TotalBonuses:        p.TotalBonuses,
		BonusCancelRate:     p.BonusCancelRate,
		BonusCompletionRate: p.BonusCompletionRate,

		AccountAgeDays: p.AccountAgeDays,
		KYCStatus:      p.KYCStatus,
		IsVIP:          p.IsVIP,
	}
}

// joinFactorText joins the clean factor texts for flat storage. The
// structured factors carry markers separately, so no stripping is needed.
func joinFactorText(factors []model.RiskFactor) string {
	parts := make([]string, 0, len(factors))
	for _, f := range factors {
		if f.Text != "" {
			parts = append(parts, f.Text)
		}
	}
	return strings.Join(parts, "; ")
}

func joinActionText(actions []model.RetentionAction) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		if a.Text != "" {
			parts = append(parts, a.Text)
		}
	}
	return strings.Join(parts, "; ")
}
