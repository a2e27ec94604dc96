// Package core ties OCR, extraction, relocation and storage together for one image at a
// time, and drives batches of images through a worker pool.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
	"github.com/joseph-ayodele/receipt-extractor/internal/ocr"
	"github.com/joseph-ayodele/receipt-extractor/internal/pipeline"
)

// TextRecognizer turns an image into text; *ocr.Extractor satisfies it.
type TextRecognizer interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// FieldExtractor turns OCR output into a structured record; *pipeline.Pipeline satisfies it.
type FieldExtractor interface {
	ExtractDocument(doc pipeline.RawDocument) *pipeline.ExtractionResult
}

// Relocator places a processed image in its final location; *ingest.Relocator satisfies it.
type Relocator interface {
	Relocate(src string) (string, func() error, error)
}

// ReceiptSaver is the part of the storage sink the processor writes to.
type ReceiptSaver interface {
	Save(ctx context.Context, r *entity.ScannedReceipt) error
}

// Outcome describes what happened to one image.
type Outcome struct {
	Status    constants.FileStatus
	Record    *entity.ScannedReceipt
	Relocated bool
	Warnings  []string
}

// Processor runs one image through OCR, the extraction pipeline, optional relocation and
// the storage sink.
type Processor struct {
	logger    *slog.Logger
	ocr       TextRecognizer
	pipeline  FieldExtractor
	relocator Relocator
	repo      ReceiptSaver
	now       func() time.Time
}

type ProcessorOption func(*Processor)

// WithRelocator moves or copies each stored image; without it images stay where they are.
func WithRelocator(r Relocator) ProcessorOption {
	return func(p *Processor) {
		if r != nil {
			p.relocator = r
		}
	}
}

func withClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

func NewProcessor(recognizer TextRecognizer, extractor FieldExtractor, repo ReceiptSaver, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:   logger,
		ocr:      recognizer,
		pipeline: extractor,
		repo:     repo,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessFile handles the image at path. An undecodable image is reported as
// FileStatusSkipped with a nil error; OCR and storage failures return FileStatusFailed
// and the error. A failed save undoes the relocation.
func (p *Processor) ProcessFile(ctx context.Context, path string) (Outcome, error) {
	ctx = common.WithFilePath(ctx, path)
	log := p.logger.With("file_path", path)
	if batchID := common.BatchIDFromContext(ctx); batchID != "" {
		log = log.With("batch_id", batchID)
	}

	res, err := p.ocr.Extract(ctx, path)
	if err != nil {
		if errors.Is(err, common.ErrUnreadableImage) {
			log.Warn("skipping unreadable image", "error", err)
			return Outcome{Status: constants.FileStatusSkipped}, nil
		}
		log.Error("processor.ocr.failed", "error", err)
		return Outcome{Status: constants.FileStatusFailed}, err
	}
	for _, w := range res.Warnings {
		log.Warn("ocr warning", "warning", w)
	}

	extracted := p.pipeline.ExtractDocument(pipeline.RawDocument{
		Text:             res.Text,
		TokenConfidences: res.TokenConfidences,
	})

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	rec := &entity.ScannedReceipt{
		ID:               uuid.New(),
		ReceiptDate:      extracted.Date,
		Vendor:           extracted.Vendor,
		Amount:           extracted.Total,
		Category:         extracted.Category,
		ImagePath:        abs,
		SourcePath:       abs,
		RawText:          extracted.Text,
		VendorConfidence: extracted.VendorConfidence,
		DateConfidence:   extracted.DateConfidence,
		TotalConfidence:  extracted.TotalConfidence,
		ConfidenceScore:  extracted.ConfidenceScore,
		QualityFlag:      extracted.QualityFlag,
		OCRConfidence:    extracted.OCRConfidence,
		CreatedAt:        p.now(),
	}
	out := Outcome{Status: constants.FileStatusFailed, Record: rec, Warnings: res.Warnings}

	var undo func() error
	if p.relocator != nil {
		dst, u, err := p.relocator.Relocate(path)
		if err != nil {
			log.Error("processor.relocate.failed", "error", err)
			return out, fmt.Errorf("relocate: %w", err)
		}
		rec.ImagePath = dst
		undo = u
		out.Relocated = true
	}

	if err := p.repo.Save(ctx, rec); err != nil {
		log.Error("processor.save.failed", "id", rec.ID, "error", err)
		if undo != nil {
			if uerr := undo(); uerr != nil {
				log.Error("failed to undo relocation", "image_path", rec.ImagePath, "error", uerr)
				err = errors.Join(err, uerr)
			} else {
				rec.ImagePath = rec.SourcePath
				out.Relocated = false
			}
		}
		return out, err
	}

	out.Status = constants.FileStatusProcessed
	log.Info("processed receipt",
		"id", rec.ID,
		"vendor", deref(rec.Vendor),
		"category", rec.Category,
		"confidence_score", rec.ConfidenceScore,
		"quality_flag", rec.QualityFlag,
		"image_path", rec.ImagePath,
	)
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
