package pipeline

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/playmetrics/churn-cli/internal/churn"
	"github.com/playmetrics/churn-cli/internal/model"
)

// FormatReport generates a human-readable analysis report from a batch
// summary. Numbers are grouped for readability; the stored record keeps the
// raw values.
func FormatReport(summary model.BatchSummary, stats churn.BatchStats) string {
	pr := message.NewPrinter(language.English)
	var b strings.Builder

	fmt.Fprintf(&b, "# Churn Analysis: %s\n", summary.AnalysisID)
	fmt.Fprintf(&b, "Date: %s\n", summary.AnalyzedDate)
	if summary.Domain != "" {
		fmt.Fprintf(&b, "Source: %s (%s)\n", summary.DataSource, summary.Domain)
	}
	b.WriteString("\n## Batch\n")
	pr.Fprintf(&b, "- Users analyzed: %d\n", summary.TotalAnalyzed)
	pr.Fprintf(&b, "- Predictions:    %d\n", summary.TotalPredicted)
	if stats.SkippedNoData > 0 {
		pr.Fprintf(&b, "- Skipped (no signal): %d\n", stats.SkippedNoData)
	}
	if stats.SkippedNoID > 0 {
		pr.Fprintf(&b, "- Skipped (no user id): %d\n", stats.SkippedNoID)
	}

	b.WriteString("\n## Risk Distribution\n")
	pr.Fprintf(&b, "- %s High:       %d\n", model.TierHigh.Marker(), summary.HighRiskCount)
	pr.Fprintf(&b, "- %s Medium:     %d\n", model.TierMedium.Marker(), summary.MediumRiskCount)
	pr.Fprintf(&b, "- %s Low-Medium: %d\n", model.TierLowMedium.Marker(), summary.LowMediumRiskCount)
	pr.Fprintf(&b, "- %s Low:        %d\n", model.TierLow.Marker(), summary.LowRiskCount)

	b.WriteString("\n## Player Status\n")
	pr.Fprintf(&b, "- Churned: %d\n", summary.ChurnedCount)
	pr.Fprintf(&b, "- At Risk: %d\n", summary.AtRiskCount)
	pr.Fprintf(&b, "- Dormant: %d\n", summary.DormantCount)
	pr.Fprintf(&b, "- Active:  %d\n", summary.ActiveCount)

	b.WriteString("\n## Alerts\n")
	pr.Fprintf(&b, "- Immediate action required: %d\n", summary.ImmediateActionRequired)
	pr.Fprintf(&b, "- Inactive 60+ days:         %d\n", summary.UsersInactive60Plus)
	pr.Fprintf(&b, "- No deposit 90+ days:       %d\n", summary.UsersNoDeposit90Plus)
	pr.Fprintf(&b, "- High-value at risk:        %d\n", summary.HighValueAtRisk)
	fmt.Fprintf(&b, "- Deposit exposure:          $%s\n", summary.TotalDepositAtRisk)

	b.WriteString("\n## Campaign Queue\n")
	pr.Fprintf(&b, "- Urgent reactivation: %d\n", summary.UrgentReactivationCount)
	pr.Fprintf(&b, "- Engagement campaign: %d\n", summary.EngagementCampaignCount)
	pr.Fprintf(&b, "- Dormant wake-up:     %d\n", summary.DormantWakeupCount)
	pr.Fprintf(&b, "- VIP intervention:    %d\n", summary.VIPInterventionCount)

	b.WriteString("\n## Averages\n")
	fmt.Fprintf(&b, "- Churn score:   %s\n", summary.AvgChurnScore)
	fmt.Fprintf(&b, "- Days inactive: %s\n", summary.AvgDaysInactive)

	if summary.TopRiskFactors != "" {
		b.WriteString("\n## Top Risk Factors\n")
		for _, f := range strings.Split(summary.TopRiskFactors, "; ") {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	return b.String()
}
