package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
)

const receiptsTable = "scanned_receipts"

var receiptColumns = []string{
	"id",
	"receipt_date",
	"vendor",
	"amount",
	"category",
	"image_path",
	"source_path",
	"raw_text",
	"vendor_confidence",
	"date_confidence",
	"total_confidence",
	"confidence_score",
	"quality_flag",
	"ocr_confidence",
	"created_at",
}

var schemaDDL = map[string]string{
	dialect.Postgres: `CREATE TABLE IF NOT EXISTS scanned_receipts (
	id                uuid PRIMARY KEY,
	receipt_date      text,
	vendor            text,
	amount            numeric(12,2),
	category          text NOT NULL,
	image_path        text NOT NULL,
	source_path       text NOT NULL,
	raw_text          text NOT NULL,
	vendor_confidence integer NOT NULL DEFAULT 0,
	date_confidence   integer NOT NULL DEFAULT 0,
	total_confidence  integer NOT NULL DEFAULT 0,
	confidence_score  double precision NOT NULL DEFAULT 0,
	quality_flag      text NOT NULL,
	ocr_confidence    double precision,
	created_at        timestamptz NOT NULL
)`,
	dialect.SQLite: `CREATE TABLE IF NOT EXISTS scanned_receipts (
	id                TEXT PRIMARY KEY,
	receipt_date      TEXT,
	vendor            TEXT,
	amount            TEXT,
	category          TEXT NOT NULL,
	image_path        TEXT NOT NULL,
	source_path       TEXT NOT NULL,
	raw_text          TEXT NOT NULL,
	vendor_confidence INTEGER NOT NULL DEFAULT 0,
	date_confidence   INTEGER NOT NULL DEFAULT 0,
	total_confidence  INTEGER NOT NULL DEFAULT 0,
	confidence_score  REAL NOT NULL DEFAULT 0,
	quality_flag      TEXT NOT NULL,
	ocr_confidence    REAL,
	created_at        DATETIME NOT NULL
)`,
}

// ReceiptRepository is the storage sink for finished extractions.
type ReceiptRepository interface {
	EnsureSchema(ctx context.Context) error
	Save(ctx context.Context, r *entity.ScannedReceipt) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ScannedReceipt, error)
	// List returns receipts created within [from, to], oldest first. Nil bounds are open.
	List(ctx context.Context, from, to *time.Time) ([]*entity.ScannedReceipt, error)
	HealthCheck(ctx context.Context, timeout time.Duration) error
	Close() error
}

type receiptRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewReceiptRepository(db *DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger}
}

func (r *receiptRepository) EnsureSchema(ctx context.Context) error {
	ddl, ok := schemaDDL[r.db.Dialect()]
	if !ok {
		return common.NewAppError(common.CodeConfig, "unsupported dialect "+r.db.Dialect(), common.ErrInvalidInput)
	}
	if err := r.db.Driver.Exec(ctx, ddl, []any{}, nil); err != nil {
		r.logger.Error("failed to create schema", "error", err)
		return storageErr("create schema", err)
	}
	return nil
}

func (r *receiptRepository) Save(ctx context.Context, rec *entity.ScannedReceipt) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Second)

	q, args := entsql.Dialect(r.db.Dialect()).
		Insert(receiptsTable).
		Columns(receiptColumns...).
		Values(
			rec.ID.String(),
			nullString(rec.ReceiptDate),
			nullString(rec.Vendor),
			nullDecimal(rec.Amount),
			rec.Category,
			rec.ImagePath,
			rec.SourcePath,
			rec.RawText,
			rec.VendorConfidence,
			rec.DateConfidence,
			rec.TotalConfidence,
			rec.ConfidenceScore,
			string(rec.QualityFlag),
			nullFloat(rec.OCRConfidence),
			rec.CreatedAt,
		).
		Query()

	tx, err := r.db.Driver.Tx(ctx)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	if err := tx.Exec(ctx, q, args, nil); err != nil {
		_ = tx.Rollback()
		r.logger.Error("failed to save receipt", "id", rec.ID, "image_path", rec.ImagePath, "error", err)
		return storageErr("insert receipt", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit receipt", err)
	}
	r.logger.Debug("saved receipt", "id", rec.ID, "image_path", rec.ImagePath)
	return nil
}

func (r *receiptRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ScannedReceipt, error) {
	b := entsql.Dialect(r.db.Dialect())
	q, args := b.Select(receiptColumns...).
		From(b.Table(receiptsTable)).
		Where(entsql.EQ("id", id.String())).
		Query()

	recs, err := r.query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, "receipt "+id.String(), common.ErrNotFound)
	}
	return recs[0], nil
}

func (r *receiptRepository) List(ctx context.Context, from, to *time.Time) ([]*entity.ScannedReceipt, error) {
	b := entsql.Dialect(r.db.Dialect())
	sel := b.Select(receiptColumns...).From(b.Table(receiptsTable))
	if from != nil {
		sel = sel.Where(entsql.GTE("created_at", from.UTC()))
	}
	if to != nil {
		sel = sel.Where(entsql.LTE("created_at", to.UTC()))
	}
	q, args := sel.OrderBy(entsql.Asc("created_at"), entsql.Asc("id")).Query()
	return r.query(ctx, q, args)
}

func (r *receiptRepository) HealthCheck(ctx context.Context, timeout time.Duration) error {
	return r.db.HealthCheck(ctx, timeout)
}

func (r *receiptRepository) Close() error { return r.db.Close() }

func (r *receiptRepository) query(ctx context.Context, q string, args []any) ([]*entity.ScannedReceipt, error) {
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, q, args, rows); err != nil {
		r.logger.Error("failed to query receipts", "error", err)
		return nil, storageErr("query receipts", err)
	}
	defer rows.Close()

	var out []*entity.ScannedReceipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, storageErr("scan receipt", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate receipts", err)
	}
	return out, nil
}

func scanReceipt(rows *entsql.Rows) (*entity.ScannedReceipt, error) {
	var (
		rec         entity.ScannedReceipt
		receiptDate stdsql.NullString
		vendor      stdsql.NullString
		amount      decimal.NullDecimal
		quality     string
		ocrConf     stdsql.NullFloat64
	)
	err := rows.Scan(
		&rec.ID,
		&receiptDate,
		&vendor,
		&amount,
		&rec.Category,
		&rec.ImagePath,
		&rec.SourcePath,
		&rec.RawText,
		&rec.VendorConfidence,
		&rec.DateConfidence,
		&rec.TotalConfidence,
		&rec.ConfidenceScore,
		&quality,
		&ocrConf,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if receiptDate.Valid {
		rec.ReceiptDate = &receiptDate.String
	}
	if vendor.Valid {
		rec.Vendor = &vendor.String
	}
	if amount.Valid {
		rec.Amount = &amount.Decimal
	}
	if ocrConf.Valid {
		rec.OCRConfidence = &ocrConf.Float64
	}
	rec.QualityFlag = constants.Quality(quality)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func storageErr(op string, err error) error {
	return common.NewAppError(common.CodeStorage, op, errors.Join(common.ErrDatabase, err))
}

func nullString(s *string) stdsql.NullString {
	if s == nil {
		return stdsql.NullString{}
	}
	return stdsql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) stdsql.NullFloat64 {
	if f == nil {
		return stdsql.NullFloat64{}
	}
	return stdsql.NullFloat64{Float64: *f, Valid: true}
}

// nullDecimal stores amounts as their exact decimal text.
func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}
