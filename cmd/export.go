package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/playmetrics/churn-cli/internal/pipeline"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <analysis-id>",
	Short: "Export a stored analysis run to XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		analysisID := args[0]

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		summary, err := st.GetSummary(ctx, analysisID)
		if err != nil {
			return eris.Wrap(err, "load analysis")
		}
		records, err := st.ListUserRecords(ctx, analysisID)
		if err != nil {
			return eris.Wrap(err, "load predictions")
		}

		out := exportOut
		if out == "" {
			out = analysisID + ".xlsx"
		}
		if err := pipeline.WriteWorkbook(out, *summary, records); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("analysis_id", analysisID),
			zap.String("path", out),
			zap.Int("user_records", len(records)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default <analysis-id>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
