package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/corpus"
	"github.com/joseph-ayodele/receipt-extractor/internal/ocr"
	"github.com/joseph-ayodele/receipt-extractor/internal/pipeline"
)

type output struct {
	Path         string                     `json:"path"`
	Preprocessed bool                       `json:"preprocessed"`
	DurationMS   int64                      `json:"duration_ms"`
	Warnings     []string                   `json:"warnings,omitempty"`
	Result       *pipeline.ExtractionResult `json:"result"`
}

func main() {
	_ = godotenv.Load()
	cfg := common.LoadConfig()

	var (
		preprocess = flag.Bool("preprocess", cfg.OCR.Preprocess, "binarize the image before OCR")
		psm        = flag.Int("psm", cfg.OCR.PSM, "tesseract page segmentation mode (0 = engine default)")
		timeout    = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	logger := common.SetupLogger(common.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: runocr [flags] <image>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(common.ExitCode(err))
	}

	reg, err := corpus.Resolve(cfg.Pipeline.CorpusFile)
	if err != nil {
		logger.Error("failed to load corpus", "error", err)
		os.Exit(common.ExitCode(err))
	}
	p, err := pipeline.New(reg, pipeline.ConfigFromCommon(cfg.Pipeline), logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(common.ExitCode(err))
	}

	ocrCfg := ocr.ConfigFromCommon(cfg.OCR)
	ocrCfg.Preprocess = *preprocess
	ocrCfg.PSM = *psm

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := ocr.NewExtractor(ocrCfg, logger).Extract(ctx, path)
	if err != nil {
		logger.Error("ocr failed", "file_path", path, "error", err)
		cancel()
		os.Exit(common.ExitCode(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{
		Path:         path,
		Preprocessed: res.Preprocessed,
		DurationMS:   res.Duration.Milliseconds(),
		Warnings:     res.Warnings,
		Result:       p.ExtractDocument(pipeline.RawDocument{Text: res.Text, TokenConfidences: res.TokenConfidences}),
	}); err != nil {
		logger.Error("failed to write output", "error", err)
		os.Exit(1)
	}
}
