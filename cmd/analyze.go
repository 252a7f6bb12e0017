package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/playmetrics/churn-cli/internal/churn"
	"github.com/playmetrics/churn-cli/internal/config"
	"github.com/playmetrics/churn-cli/internal/fetcher"
	"github.com/playmetrics/churn-cli/internal/model"
	"github.com/playmetrics/churn-cli/internal/pipeline"
	"github.com/playmetrics/churn-cli/internal/store"
)

var (
	analyzeDryRun   bool
	analyzeLimit    int
	analyzeJSON     bool
	analyzeOutput   string
	analyzeRules    string
	analyzeMinScore int
	analyzeTop      int
	analyzeFormat   string
)

// limitSource caps the batch size for sampled runs.
type limitSource struct {
	inner pipeline.Source
	limit int
}

func (s limitSource) FetchUsers(ctx context.Context) ([]model.RawUser, model.RunMeta, error) {
	users, meta, err := s.inner.FetchUsers(ctx)
	if err != nil {
		return nil, meta, err
	}
	if s.limit > 0 && len(users) > s.limit {
		users = users[:s.limit]
	}
	return users, meta, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a churn analysis over the full user batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Source.BaseURL == "" {
			return eris.New("source base URL is required (CHURN_SOURCE_BASE_URL)")
		}
		if analyzeFormat != "table" && analyzeFormat != "csv" {
			return eris.Errorf("analyze: --format must be table or csv (got %q)", analyzeFormat)
		}

		var st store.Store
		if !analyzeDryRun {
			var err error
			st, err = openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
		} else {
			zap.L().Info("dry run, results will not be persisted")
		}

		var source pipeline.Source = fetcher.NewClient(cfg.Source)
		if analyzeLimit > 0 {
			source = limitSource{inner: source, limit: analyzeLimit}
		}

		scoring := cfg.Scoring
		if analyzeRules != "" {
			loaded, err := config.LoadScoring(analyzeRules)
			if err != nil {
				return err
			}
			scoring = loaded
			zap.L().Info("scoring thresholds loaded", zap.String("path", analyzeRules))
		}

		p := pipeline.New(source, churn.NewScorer(scoring), st)

		result, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "analysis run")
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Print(pipeline.FormatReport(result.Summary, result.Stats))

		if analyzeTop > 0 || analyzeMinScore > 0 || analyzeOutput != "" {
			rows := filterRecords(result.Records, analyzeMinScore, analyzeTop)
			if err := outputRecords(rows, analyzeFormat, analyzeOutput); err != nil {
				return err
			}
		}
		return nil
	},
}

// filterRecords keeps records at or above minScore, capped at top entries.
// Records arrive already sorted by churn score descending, so the cap is a
// top-N cut. top <= 0 means no cap.
func filterRecords(records []model.UserRecord, minScore, top int) []model.UserRecord {
	out := make([]model.UserRecord, 0, len(records))
	for _, r := range records {
		if r.ChurnScore < minScore {
			continue
		}
		out = append(out, r)
	}
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out
}

func outputRecords(records []model.UserRecord, format, outputPath string) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "analyze: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "csv":
		return writeRecordsCSV(w, records)
	case "table":
		return writeRecordsTable(w, records)
	default:
		return eris.Errorf("analyze: unsupported format %q", format)
	}
}

func writeRecordsCSV(w io.Writer, records []model.UserRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"user_id", "email", "risk_level", "churn_score", "player_status", "days_since_last_game", "total_deposit_amount", "is_vip"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "analyze: write CSV header")
	}

	for _, r := range records {
		row := []string{
			r.UserID,
			r.Email,
			r.ChurnRiskLevel,
			fmt.Sprintf("%d", r.ChurnScore),
			r.PlayerStatus,
			model.FormatDays(r.DaysSinceLastGame),
			fmt.Sprintf("%.2f", r.TotalDepositAmount),
			fmt.Sprintf("%v", r.IsVIP),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "analyze: write CSV row")
		}
	}
	return nil
}

func writeRecordsTable(w io.Writer, records []model.UserRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "USER\tEMAIL\tRISK\tSCORE\tSTATUS\tDAYS INACTIVE\tDEPOSITS\tVIP")
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%.2f\t%v\n",
			r.UserID,
			r.Email,
			r.ChurnRiskLevel,
			r.ChurnScore,
			r.PlayerStatus,
			model.FormatDays(r.DaysSinceLastGame),
			r.TotalDepositAmount,
			r.IsVIP,
		)
	}
	return eris.Wrap(tw.Flush(), "analyze: flush table")
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "score and report without persisting")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "cap the number of users scored (0 = all)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON instead of the report")
	analyzeCmd.Flags().IntVar(&analyzeMinScore, "min-score", 0, "only include users at or above this churn score in the table/csv output")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 0, "cap the table/csv output at the top N users (0 = all)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "per-user output format: table or csv")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "write the per-user table/csv to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeRules, "rules", "", "YAML file with scoring threshold overrides")
	rootCmd.AddCommand(analyzeCmd)
}
