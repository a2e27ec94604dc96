package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/core"
	"github.com/joseph-ayodele/receipt-extractor/internal/export"
	"github.com/joseph-ayodele/receipt-extractor/internal/ingest"
	"github.com/joseph-ayodele/receipt-extractor/internal/ocr"
	"github.com/joseph-ayodele/receipt-extractor/internal/repository"
)

type runFlags struct {
	dir          string
	relocateDir  string
	relocateMode string
	workers      int
	recursive    bool
	skipHidden   bool
	xlsx         string
	progress     bool
	inmem        bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every receipt image in a directory",
		Long: `run scans --dir for .jpg/.jpeg/.png images, OCRs and extracts each one on a
worker pool, optionally relocates processed images, and stores one record per image.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("relocate-dir") {
				a.cfg.Batch.RelocateDir = f.relocateDir
			}
			if cmd.Flags().Changed("relocate-mode") {
				a.cfg.Batch.RelocateMode = f.relocateMode
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Batch.Workers = f.workers
			}
			if cmd.Flags().Changed("recursive") {
				a.cfg.Batch.Recursive = f.recursive
			}
			if f.inmem {
				a.cfg.Database.Driver = "sqlite"
				a.cfg.Database.SQLitePath = ":memory:"
			}
			return a.run(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", "", "directory to process receipts from (required)")
	cmd.Flags().StringVar(&f.relocateDir, "relocate-dir", "", "move or copy processed images here")
	cmd.Flags().StringVar(&f.relocateMode, "relocate-mode", "move", "relocation mode (move, copy)")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "number of concurrent workers")
	cmd.Flags().BoolVar(&f.recursive, "recursive", false, "descend into subdirectories")
	cmd.Flags().BoolVar(&f.skipHidden, "skip-hidden", true, "ignore dotfiles and dot-directories")
	cmd.Flags().StringVar(&f.xlsx, "xlsx", "", "also write this batch's records to an XLSX file")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "show a progress bar on stderr")
	cmd.Flags().BoolVar(&f.inmem, "inmem", false, "use an in-memory SQLite database")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func (a *app) run(cmd *cobra.Command, f runFlags) error {
	ctx := cmd.Context()
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	p, err := a.pipeline()
	if err != nil {
		return err
	}

	repo, err := repository.Open(ctx, cfg.Database, a.logger)
	if err != nil {
		a.logger.Error("failed to initialize database", "error", err)
		return err
	}
	defer repo.Close()

	opts := []core.ProcessorOption{}
	scan := ingest.ScanOptions{Recursive: cfg.Batch.Recursive, SkipHidden: f.skipHidden}
	if cfg.Batch.RelocateDir != "" {
		mode, err := ingest.ParseRelocateMode(cfg.Batch.RelocateMode)
		if err != nil {
			return common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
		}
		rel, err := ingest.NewRelocator(cfg.Batch.RelocateDir, mode, a.logger)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithRelocator(rel))
		scan.Exclude = append(scan.Exclude, cfg.Batch.RelocateDir)
	}

	paths, stats, err := ingest.ScanDirectory(ctx, f.dir, scan, a.logger)
	if err != nil {
		return err
	}

	extractor := ocr.NewExtractor(ocr.ConfigFromCommon(cfg.OCR), a.logger)
	processor := core.NewProcessor(extractor, p, repo, a.logger, opts...)

	batch := core.BatchOptions{
		Workers:     cfg.Batch.Workers,
		QueueSize:   cfg.Batch.QueueSize,
		FileTimeout: cfg.Batch.FileTimeout,
	}
	if f.progress {
		batch.Progress = cmd.ErrOrStderr()
	}
	report, runErr := processor.RunBatch(ctx, paths, batch)

	if f.xlsx != "" {
		b, err := export.WriteXLSX(report.Records)
		if err != nil {
			return fmt.Errorf("export batch: %w", err)
		}
		if err := os.WriteFile(f.xlsx, b, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.xlsx, err)
		}
		a.logger.Info("exported batch", "output", f.xlsx, "rows", len(report.Records))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %s complete\n", report.BatchID)
	fmt.Fprintf(out, "- Files scanned: %d\n", stats.Scanned)
	fmt.Fprintf(out, "- Images matched: %d\n", stats.Matched)
	fmt.Fprintf(out, "- Processed: %d\n", report.Stats.Processed)
	fmt.Fprintf(out, "- Skipped: %d\n", report.Stats.Skipped)
	fmt.Fprintf(out, "- Failed: %d\n", report.Stats.Failed)
	fmt.Fprintf(out, "- Relocated: %d\n", report.Stats.Relocated)
	if f.xlsx != "" {
		fmt.Fprintf(out, "- Output: %s\n", f.xlsx)
	}
	return runErr
}
