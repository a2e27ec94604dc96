package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/corpus"
	"github.com/joseph-ayodele/receipt-extractor/internal/pipeline"
)

// app carries what PersistentPreRunE resolves for every subcommand.
type app struct {
	envFile   string
	logLevel  string
	logFormat string
	corpus    string

	cfg    *common.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "receipt-batch",
		Short: "Extract vendor, date, total and category from scanned receipts",
		Long: `receipt-batch OCRs receipt images, extracts structured fields with a
heuristic pipeline and stores the results in the configured database.

Configuration comes from the environment (optionally a .env file); flags override it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file to load when present")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (json, text)")
	root.PersistentFlags().StringVar(&a.corpus, "corpus", "", "corpus JSON file (default: embedded corpus)")

	root.AddCommand(newRunCmd(a), newExtractCmd(a), newExportCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return common.NewAppError(common.CodeConfig, fmt.Sprintf("load %s: %v", a.envFile, err), common.ErrInvalidInput)
		}
	}

	cfg := common.LoadConfig()
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.corpus != "" {
		cfg.Pipeline.CorpusFile = a.corpus
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = common.SetupLogger(common.ParseLevel(cfg.Log.Level), cfg.Log.Format)
	a.logger.Debug("configuration loaded", "command", cmd.Name(), "db_driver", cfg.Database.Driver)
	return nil
}

func (a *app) pipeline() (*pipeline.Pipeline, error) {
	reg, err := corpus.Resolve(a.cfg.Pipeline.CorpusFile)
	if err != nil {
		a.logger.Error("failed to load corpus", "corpus_file", a.cfg.Pipeline.CorpusFile, "error", err)
		return nil, err
	}
	return pipeline.New(reg, pipeline.ConfigFromCommon(a.cfg.Pipeline), a.logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(common.ExitCode(err))
	}
}
