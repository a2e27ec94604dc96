package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
)

const sheet = "Receipts"

var headers = []string{
	"Receipt Date",
	"Vendor",
	"Category",
	"Amount",
	"Confidence",
	"Quality",
	"Image Path",
	"Scanned At",
}

// ReceiptLister is the read side of the storage sink.
type ReceiptLister interface {
	List(ctx context.Context, from, to *time.Time) ([]*entity.ScannedReceipt, error)
}

// Service produces XLSX bytes from stored receipts.
type Service struct {
	repo   ReceiptLister
	logger *slog.Logger
}

func NewService(repo ReceiptLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportReceiptsXLSX returns a workbook of the receipts scanned within the date window.
// Both bounds are whole days in UTC and inclusive; a nil bound is open.
func (s *Service) ExportReceiptsXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		toDate = &t
	}

	recs, err := s.repo.List(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	b, err := WriteXLSX(recs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"bytes", len(b),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b, nil
}

// WriteXLSX renders recs into a single "Receipts" sheet. Unset fields are left blank.
func WriteXLSX(recs []*entity.ScannedReceipt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if r.ReceiptDate != nil {
			write(1, *r.ReceiptDate)
		}
		if r.Vendor != nil {
			write(2, *r.Vendor)
		}
		write(3, r.Category)
		if r.Amount != nil {
			write(4, r.Amount.InexactFloat64())
		}
		write(5, r.ConfidenceScore)
		write(6, string(r.QualityFlag))
		write(7, r.ImagePath)
		write(8, r.CreatedAt.UTC().Format(time.RFC3339))
		row++
	}

	if len(recs) > 0 {
		money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
		if err != nil {
			return nil, err
		}
		last, _ := excelize.CoordinatesToCellName(4, row-1)
		if err := f.SetCellStyle(sheet, "D2", last, money); err != nil {
			return nil, err
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 14) // date
	_ = f.SetColWidth(sheet, "B", "C", 24)
	_ = f.SetColWidth(sheet, "D", "F", 12)
	_ = f.SetColWidth(sheet, "G", "G", 60) // path
	_ = f.SetColWidth(sheet, "H", "H", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
