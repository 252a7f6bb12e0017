package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/playmetrics/churn-cli/internal/churn"
	"github.com/playmetrics/churn-cli/internal/pipeline"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored analysis runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		summaries, err := st.ListSummaries(ctx, runsLimit)
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("no analysis runs stored")
			return nil
		}

		for _, s := range summaries {
			fmt.Printf("%-24s %s  analyzed=%d high=%d immediate=%d avg=%s\n",
				s.AnalysisID, s.AnalyzedDate,
				s.TotalAnalyzed, s.HighRiskCount,
				s.ImmediateActionRequired, s.AvgChurnScore,
			)
		}
		return nil
	},
}

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show one stored analysis run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := st.GetSummary(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "load analysis")
		}

		if showJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}

		fmt.Print(pipeline.FormatReport(*summary, churn.BatchStats{}))
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(showCmd)
}
