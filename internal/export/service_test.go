package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
)

type stubLister struct {
	recs     []*entity.ScannedReceipt
	err      error
	from, to *time.Time
}

func (s *stubLister) List(_ context.Context, from, to *time.Time) ([]*entity.ScannedReceipt, error) {
	s.from, s.to = from, to
	return s.recs, s.err
}

func records() []*entity.ScannedReceipt {
	vendor := "Starbucks"
	date := "2023-11-12"
	amount := decimal.RequireFromString("1234.50")
	return []*entity.ScannedReceipt{
		{
			ReceiptDate:     &date,
			Vendor:          &vendor,
			Amount:          &amount,
			Category:        "Meals",
			ImagePath:       "/done/a.jpg",
			ConfidenceScore: 96.67,
			QualityFlag:     constants.QualityExcellent,
			CreatedAt:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			Category:    "Expense",
			ImagePath:   "/done/b.jpg",
			QualityFlag: constants.QualityLow,
			CreatedAt:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	b, err := WriteXLSX(records())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Receipts"}, f.GetSheetList())
	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "2023-11-12", rows[1][0])
	assert.Equal(t, "Starbucks", rows[1][1])
	assert.Equal(t, "Meals", rows[1][2])
	assert.Equal(t, "1234.50", rows[1][3])
	assert.Equal(t, "Excellent", rows[1][5])
	assert.Equal(t, "/done/a.jpg", rows[1][6])
	assert.Equal(t, "2024-01-02T03:04:05Z", rows[1][7])

	assert.Empty(t, rows[2][0])
	assert.Empty(t, rows[2][1])
	assert.Equal(t, "Expense", rows[2][2])
	assert.Empty(t, rows[2][3])
}

func TestWriteXLSX_NoRows(t *testing.T) {
	b, err := WriteXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestService_ExportReceiptsXLSX_DayBounds(t *testing.T) {
	l := &stubLister{recs: records()}
	s := NewService(l, nil)

	from := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 1, 0, 0, 0, time.UTC)
	b, err := s.ExportReceiptsXLSX(context.Background(), &from, &to)
	require.NoError(t, err)
	assert.NotEmpty(t, b)

	require.NotNil(t, l.from)
	require.NotNil(t, l.to)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), *l.from)
	assert.Equal(t, time.Date(2024, 1, 3, 23, 59, 59, 0, time.UTC), *l.to)
}

func TestService_ExportReceiptsXLSX_OpenBounds(t *testing.T) {
	l := &stubLister{}
	_, err := NewService(l, nil).ExportReceiptsXLSX(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, l.from)
	assert.Nil(t, l.to)
}

func TestService_ExportReceiptsXLSX_ListError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewService(&stubLister{err: boom}, nil).ExportReceiptsXLSX(context.Background(), nil, nil)
	assert.ErrorIs(t, err, boom)
}
