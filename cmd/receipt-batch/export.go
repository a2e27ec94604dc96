package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/export"
	"github.com/joseph-ayodele/receipt-extractor/internal/repository"
)

func newExportCmd(a *app) *cobra.Command {
	var out, fromStr, toStr string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored receipts to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := parseDay("from", fromStr)
			if err != nil {
				return err
			}
			to, err := parseDay("to", toStr)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, err := repository.Open(ctx, a.cfg.Database, a.logger)
			if err != nil {
				a.logger.Error("failed to initialize database", "error", err)
				return err
			}
			defer repo.Close()

			b, err := export.NewService(repo, a.logger).ExportReceiptsXLSX(ctx, from, to)
			if err != nil {
				a.logger.Error("failed to export receipts", "error", err)
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported receipts to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "receipts.xlsx", "output XLSX file path")
	cmd.Flags().StringVar(&fromStr, "from", "", "first scan day, YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "last scan day, YYYY-MM-DD")
	return cmd
}

func parseDay(flag, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("invalid --%s date %q, use YYYY-MM-DD", flag, s), common.ErrInvalidInput)
	}
	return &t, nil
}
