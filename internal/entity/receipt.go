package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-extractor/constants"
)

// ScannedReceipt is one persisted extraction, a row of scanned_receipts.
// Nil pointers are stored as NULL.
type ScannedReceipt struct {
	ID          uuid.UUID        `json:"id"`
	ReceiptDate *string          `json:"receipt_date,omitempty"`
	Vendor      *string          `json:"vendor,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    string           `json:"category"`
	ImagePath   string           `json:"image_path"`
	SourcePath  string           `json:"source_path"`
	RawText     string           `json:"raw_text"`

	VendorConfidence int               `json:"vendor_confidence"`
	DateConfidence   int               `json:"date_confidence"`
	TotalConfidence  int               `json:"total_confidence"`
	ConfidenceScore  float64           `json:"confidence_score"`
	QualityFlag      constants.Quality `json:"quality_flag"`
	OCRConfidence    *float64          `json:"ocr_confidence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
