package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/corpus"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
	"github.com/joseph-ayodele/receipt-extractor/internal/ingest"
	"github.com/joseph-ayodele/receipt-extractor/internal/ocr"
	"github.com/joseph-ayodele/receipt-extractor/internal/pipeline"
)

const receiptText = "STARBUCKS COFFEE\n12/11/2023 10:15\nLatte 150.00\nGRAND TOTAL 250.00\n"

type fakeOCR struct {
	texts map[string]string
	errs  map[string]error
}

func (f *fakeOCR) Extract(ctx context.Context, path string) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, common.NewAppError(common.CodeOCRFailed, "cancelled", errors.Join(common.ErrOCRFailed, err))
	}
	base := filepath.Base(path)
	if err, ok := f.errs[base]; ok {
		return ocr.Result{}, err
	}
	return ocr.Result{Text: f.texts[base], TokenConfidences: []int{90, 80}}, nil
}

type memSaver struct {
	mu    sync.Mutex
	saved []*entity.ScannedReceipt
	err   error
}

func (m *memSaver) Save(_ context.Context, r *entity.ScannedReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func newPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	reg, err := corpus.Default()
	require.NoError(t, err)
	p, err := pipeline.New(reg, pipeline.DefaultConfig(), nil)
	require.NoError(t, err)
	return p
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o644))
	return p
}

var (
	unreadable = common.NewAppError(common.CodeUnreadableImage, "decode", common.ErrUnreadableImage)
	ocrDown    = common.NewAppError(common.CodeOCRFailed, "tesseract: exit 1", common.ErrOCRFailed)
)

func TestProcessFile_StoresRecord(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "r1.jpg")
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	saver := &memSaver{}
	p := NewProcessor(&fakeOCR{texts: map[string]string{"r1.jpg": receiptText}}, newPipeline(t), saver, nil,
		withClock(func() time.Time { return fixed }))

	out, err := p.ProcessFile(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, constants.FileStatusProcessed, out.Status)
	assert.False(t, out.Relocated)
	require.Len(t, saver.saved, 1)

	rec := saver.saved[0]
	assert.Same(t, out.Record, rec)
	assert.Equal(t, img, rec.ImagePath)
	assert.Equal(t, img, rec.SourcePath)
	require.NotNil(t, rec.ReceiptDate)
	assert.Equal(t, "2023-11-12", *rec.ReceiptDate)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "250.00", rec.Amount.StringFixed(2))
	assert.Equal(t, 90, rec.DateConfidence)
	assert.NotEmpty(t, rec.Category)
	assert.Contains(t, rec.RawText, "GRAND TOTAL 250.00")
	require.NotNil(t, rec.OCRConfidence)
	assert.InDelta(t, 85.0, *rec.OCRConfidence, 1e-9)
	assert.Equal(t, fixed, rec.CreatedAt)
}

func TestProcessFile_SkipsUnreadableImage(t *testing.T) {
	img := writeFile(t, t.TempDir(), "bad.png")
	saver := &memSaver{}
	p := NewProcessor(&fakeOCR{errs: map[string]error{"bad.png": unreadable}}, newPipeline(t), saver, nil)

	out, err := p.ProcessFile(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, constants.FileStatusSkipped, out.Status)
	assert.Nil(t, out.Record)
	assert.Empty(t, saver.saved)
}

func TestProcessFile_OCRFailure(t *testing.T) {
	img := writeFile(t, t.TempDir(), "r.png")
	p := NewProcessor(&fakeOCR{errs: map[string]error{"r.png": ocrDown}}, newPipeline(t), &memSaver{}, nil)

	out, err := p.ProcessFile(context.Background(), img)
	assert.ErrorIs(t, err, common.ErrOCRFailed)
	assert.Equal(t, constants.FileStatusFailed, out.Status)
}

func TestProcessFile_RelocatesBeforeSaving(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "r1.jpg")
	rel, err := ingest.NewRelocator(filepath.Join(dir, "done"), ingest.RelocateMove, nil)
	require.NoError(t, err)

	saver := &memSaver{}
	p := NewProcessor(&fakeOCR{texts: map[string]string{"r1.jpg": receiptText}}, newPipeline(t), saver, nil,
		WithRelocator(rel))

	out, err := p.ProcessFile(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, out.Relocated)
	assert.Equal(t, filepath.Join(dir, "done", "r1.jpg"), out.Record.ImagePath)
	assert.Equal(t, img, out.Record.SourcePath)
	assert.FileExists(t, out.Record.ImagePath)
	assert.NoFileExists(t, img)
}

func TestProcessFile_UndoesRelocationWhenSaveFails(t *testing.T) {
	dir := t.TempDir()
	img := writeFile(t, dir, "r1.jpg")
	dest := filepath.Join(dir, "done")
	rel, err := ingest.NewRelocator(dest, ingest.RelocateMove, nil)
	require.NoError(t, err)

	saver := &memSaver{err: common.NewAppError(common.CodeStorage, "insert receipt", common.ErrDatabase)}
	p := NewProcessor(&fakeOCR{texts: map[string]string{"r1.jpg": receiptText}}, newPipeline(t), saver, nil,
		WithRelocator(rel))

	out, err := p.ProcessFile(context.Background(), img)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.Equal(t, constants.FileStatusFailed, out.Status)
	assert.False(t, out.Relocated)
	assert.Equal(t, img, out.Record.ImagePath)
	assert.FileExists(t, img)
	assert.NoFileExists(t, filepath.Join(dest, "r1.jpg"))
}

func TestRunBatch_CountsOutcomes(t *testing.T) {
	dir := t.TempDir()
	f := &fakeOCR{
		texts: map[string]string{},
		errs: map[string]error{
			"bad.png":  unreadable,
			"down.png": ocrDown,
		},
	}
	var paths []string
	for _, name := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		paths = append(paths, writeFile(t, dir, name))
		f.texts[name] = receiptText
	}
	paths = append(paths, writeFile(t, dir, "bad.png"), writeFile(t, dir, "down.png"))

	rel, err := ingest.NewRelocator(filepath.Join(dir, "copies"), ingest.RelocateCopy, nil)
	require.NoError(t, err)
	saver := &memSaver{}
	p := NewProcessor(f, newPipeline(t), saver, nil, WithRelocator(rel))

	var progress bytes.Buffer
	report, err := p.RunBatch(context.Background(), paths, BatchOptions{Workers: 2, QueueSize: 1, Progress: &progress})
	require.NoError(t, err)

	assert.Equal(t, BatchStats{Processed: 3, Skipped: 1, Failed: 1, Relocated: 3}, report.Stats)
	assert.EqualValues(t, 5, report.Stats.Total())
	assert.NotEmpty(t, report.BatchID)
	assert.NotEmpty(t, progress.String())

	require.Len(t, report.Records, 3)
	assert.Equal(t, filepath.Join(dir, "a.jpg"), report.Records[0].SourcePath)
	assert.Equal(t, filepath.Join(dir, "c.jpg"), report.Records[2].SourcePath)
	assert.Len(t, saver.saved, 3)
	for _, p := range paths[:3] {
		assert.FileExists(t, p)
	}
}

func TestRunBatch_CancelledContextFailsFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "a.jpg"), writeFile(t, dir, "b.jpg")}
	saver := &memSaver{}
	p := NewProcessor(&fakeOCR{texts: map[string]string{"a.jpg": receiptText, "b.jpg": receiptText}}, newPipeline(t), saver, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := p.RunBatch(ctx, paths, BatchOptions{Workers: 1, QueueSize: 4})
	require.NoError(t, err)

	assert.Zero(t, report.Stats.Processed)
	assert.EqualValues(t, 2, report.Stats.Failed)
	assert.Empty(t, saver.saved)
}

func TestRunBatch_Empty(t *testing.T) {
	p := NewProcessor(&fakeOCR{}, newPipeline(t), &memSaver{}, nil)
	report, err := p.RunBatch(context.Background(), nil, BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, BatchStats{}, report.Stats)
	assert.Empty(t, report.Records)
}
