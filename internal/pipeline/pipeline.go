// Package pipeline turns raw OCR text into a structured receipt record.
//
// A Pipeline is built once from a corpus registry and is then safe for concurrent use:
// every call owns its intermediate values and the pipeline performs no I/O.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/category"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/confidence"
	"github.com/joseph-ayodele/receipt-extractor/internal/corpus"
	"github.com/joseph-ayodele/receipt-extractor/internal/fields"
	"github.com/joseph-ayodele/receipt-extractor/internal/normalize"
	"github.com/joseph-ayodele/receipt-extractor/internal/vendor"
)

// Config tunes the extraction heuristics.
type Config struct {
	HeaderLines     int
	HeaderThreshold int
	ScanStrategy    string
	ScanThreshold   int

	DateOrder     string
	TotalStrategy string

	CategoryMinSimilarity float64
	// DisableTraining forces the keyword-only classifier.
	DisableTraining bool
}

func DefaultConfig() Config {
	return Config{
		HeaderLines:           10,
		HeaderThreshold:       75,
		ScanStrategy:          vendor.StrategyPartial,
		ScanThreshold:         80,
		DateOrder:             string(fields.DayFirst),
		TotalStrategy:         "largest_amount",
		CategoryMinSimilarity: 0.2,
	}
}

// ConfigFromCommon maps the environment-driven settings onto a pipeline Config.
func ConfigFromCommon(c common.PipelineConfig) Config {
	return Config{
		HeaderLines:           c.VendorHeaderLines,
		HeaderThreshold:       c.VendorHeaderThreshold,
		ScanStrategy:          c.VendorScanStrategy,
		ScanThreshold:         c.VendorScanThreshold,
		DateOrder:             c.DateOrder,
		TotalStrategy:         c.TotalStrategy,
		CategoryMinSimilarity: c.CategoryMinSimilarity,
	}
}

// RawDocument is one OCR output: the text plus optional per-token engine confidences.
type RawDocument struct {
	Text             string
	TokenConfidences []int
}

// ExtractionResult is the structured record for one receipt. Unset fields are nil and
// carry a zero confidence.
type ExtractionResult struct {
	Vendor   *string          `json:"vendor"`
	Date     *string          `json:"date"`
	Total    *decimal.Decimal `json:"total"`
	Category string           `json:"category"`

	VendorConfidence int               `json:"vendor_confidence"`
	DateConfidence   int               `json:"date_confidence"`
	TotalConfidence  int               `json:"total_confidence"`
	ConfidenceScore  float64           `json:"confidence_score"`
	QualityFlag      constants.Quality `json:"quality_flag"`

	// OCRConfidence is the engine's glyph-recognition confidence. It is reported only
	// and never feeds ConfidenceScore.
	OCRConfidence *float64 `json:"ocr_confidence,omitempty"`

	CategorySource category.Source `json:"category_source"`
	TotalPattern   string          `json:"total_pattern,omitempty"`
	// Text is the normalized text the fields were extracted from.
	Text string `json:"text"`
}

type Pipeline struct {
	logger     *slog.Logger
	normalizer *normalize.Normalizer
	vendors    *vendor.Matcher
	fields     *fields.Extractor
	classifier *category.Classifier
}

// New wires the components over reg. Only configuration problems fail; extraction never does.
func New(reg *corpus.Registry, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		return nil, common.NewAppError(common.CodeCorpusInvalid, "corpus registry is required", common.ErrCorpusInvalid)
	}

	norm, err := normalize.New(reg.Corrections())
	if err != nil {
		return nil, common.NewAppError(common.CodeCorpusInvalid, fmt.Sprintf("compile corrections: %v", err), common.ErrCorpusInvalid)
	}

	strategy, err := vendor.ParseStrategy(cfg.ScanStrategy)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
	}
	order, err := fields.ParseDateOrder(cfg.DateOrder)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
	}
	selector, err := fields.ParseTotalSelector(cfg.TotalStrategy)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
	}
	ext, err := fields.NewExtractor(fields.WithDateOrder(order), fields.WithTotalSelector(selector))
	if err != nil {
		return nil, fmt.Errorf("field extractor: %w", err)
	}

	classOpts := []category.Option{category.WithMinSimilarity(cfg.CategoryMinSimilarity)}
	if cfg.DisableTraining {
		classOpts = append(classOpts, category.WithoutTraining())
	}

	return &Pipeline{
		logger:     logger,
		normalizer: norm,
		vendors: vendor.NewMatcher(reg.Vendors(),
			vendor.WithHeader(cfg.HeaderLines, cfg.HeaderThreshold),
			vendor.WithScan(strategy, cfg.ScanThreshold),
		),
		fields:     ext,
		classifier: category.NewClassifier(reg.Categories(), reg.Training(), classOpts...),
	}, nil
}

// ExtractDocument runs Extract with the mean of the document's usable token confidences.
func (p *Pipeline) ExtractDocument(doc RawDocument) *ExtractionResult {
	return p.Extract(doc.Text, confidence.TokenMean(doc.TokenConfidences))
}

// Extract normalizes raw, then extracts vendor, date, total and category.
// Empty or garbage input yields an all-unset result with category "Expense".
func (p *Pipeline) Extract(raw string, ocrConfidence *float64) *ExtractionResult {
	text := p.normalizer.Normalize(raw)

	res := &ExtractionResult{Text: text, OCRConfidence: ocrConfidence}

	if m := p.vendors.Match(text); m.Found() {
		name := m.Name
		res.Vendor = &name
		res.VendorConfidence = m.Score
		p.logger.Debug("vendor.match", "vendor", m.Name, "score", m.Score, "line", m.Line)
	}

	date := p.fields.ExtractDate(text)
	res.Date = date.Value
	res.DateConfidence = date.Confidence

	total := p.fields.ExtractTotal(text)
	res.Total = total.Value
	res.TotalConfidence = total.Confidence
	res.TotalPattern = total.Pattern
	if total.Value != nil {
		p.logger.Debug("total.select",
			"amount", total.Value.String(),
			"source", total.Source,
			"pattern", total.Pattern,
			"candidates", len(total.Candidates),
		)
	}

	vendorName := ""
	if res.Vendor != nil {
		vendorName = *res.Vendor
	}
	cat := p.classifier.Classify(text, vendorName)
	res.Category = cat.Category
	res.CategorySource = cat.Source

	res.ConfidenceScore = confidence.Aggregate(res.VendorConfidence, res.DateConfidence, res.TotalConfidence)
	res.QualityFlag = confidence.Flag(res.ConfidenceScore)

	p.logger.Debug("pipeline.extract",
		"text_bytes", len(text),
		"category", res.Category,
		"confidence_score", res.ConfidenceScore,
		"quality_flag", res.QualityFlag,
	)
	return res
}
