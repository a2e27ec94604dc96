// Package ocr turns a receipt image into raw text by shelling out to tesseract.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/confidence"
)

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Lang      string // default "eng"

	TessdataDir         string
	EnableTSVConfidence bool
	Preprocess          bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	// WorkDir holds preprocessed temp images; empty uses the OS temp dir.
	WorkDir string
}

func ConfigFromCommon(c common.OCRConfig) Config {
	return Config{
		Tesseract:           c.Tesseract,
		Lang:                c.Lang,
		TessdataDir:         c.TessdataDir,
		EnableTSVConfidence: c.EnableTSVConfidence,
		Preprocess:          c.Preprocess,
		PSM:                 c.PSM,
		OEM:                 c.OEM,
		WorkDir:             c.ArtifactCacheDir,
	}
}

// Result is one image's OCR output.
type Result struct {
	Text string
	// TokenConfidences are the per-word confidences from the TSV pass, placeholders removed.
	TokenConfidences []int
	// Confidence is the mean token confidence (0..100), nil without a TSV pass.
	Confidence   *float64
	Language     string
	Preprocessed bool
	Duration     time.Duration
	Warnings     []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	e := &Extractor{cfg: cfg, runner: ExecRunner{Logger: logger}, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract runs the text pass and, when enabled, the TSV confidence pass concurrently.
// A failed TSV pass only adds a warning. Undecodable images fail with ErrUnreadableImage,
// tesseract failures with ErrOCRFailed.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !constants.IsAllowedExt(ext) {
		return Result{}, common.NewAppError(common.CodeUnreadableImage,
			fmt.Sprintf("unsupported extension %q", ext), common.ErrUnreadableImage)
	}

	res := Result{Language: e.cfg.Lang}
	input := path
	if e.cfg.Preprocess {
		out, cleanup, err := Preprocess(path, e.cfg.WorkDir)
		if err != nil {
			return res, common.NewAppError(common.CodeUnreadableImage, err.Error(), common.ErrUnreadableImage)
		}
		defer cleanup()
		input = out
		res.Preprocessed = true
	} else if _, _, err := DecodeHeader(path); err != nil {
		return res, common.NewAppError(common.CodeUnreadableImage, err.Error(), common.ErrUnreadableImage)
	}
	e.logger.Debug("starting ocr extraction", "path", path, "preprocessed", res.Preprocessed)

	var (
		text    string
		tokens  []int
		tsvWarn string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, errb, err := e.runner.Run(gctx, e.cfg.Tesseract, e.args(input)...)
		if err != nil {
			return fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(string(errb)))
		}
		text = string(out)
		return nil
	})
	if e.cfg.EnableTSVConfidence {
		g.Go(func() error {
			out, errb, err := e.runner.Run(gctx, e.cfg.Tesseract, append(e.args(input), "tsv")...)
			if err != nil {
				tsvWarn = fmt.Sprintf("tesseract tsv: %v: %s", err, strings.TrimSpace(string(errb)))
				return nil
			}
			tokens = parseTSVConfidences(string(out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, common.NewAppError(common.CodeOCRFailed, err.Error(), common.ErrOCRFailed)
	}

	res.Text = text
	res.TokenConfidences = tokens
	res.Confidence = confidence.TokenMean(tokens)
	if tsvWarn != "" {
		res.Warnings = append(res.Warnings, tsvWarn)
	}
	res.Duration = time.Since(start)

	e.logger.Info("ocr extraction complete",
		"path", path,
		"text_bytes", len(res.Text),
		"tokens", len(tokens),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// args builds "tesseract <file> stdout -l <lang> [--psm n] [--oem n] [--tessdata-dir d]".
func (e *Extractor) args(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}

// tsvConfColumn is the "conf" column of tesseract's 12-column TSV output.
const tsvConfColumn = 10

// parseTSVConfidences returns the word confidences, skipping the header, non-word rows
// (conf -1) and anything non-numeric.
func parseTSVConfidences(tsv string) []int {
	var out []int
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) <= tsvConfColumn {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[tsvConfColumn]), 64)
		if err != nil || v < 0 || v > 100 {
			continue
		}
		out = append(out, int(v+0.5))
	}
	return out
}
