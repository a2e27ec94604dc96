package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
	"github.com/joseph-ayodele/receipt-extractor/internal/pipeline"
	"github.com/joseph-ayodele/receipt-extractor/internal/repository"
)

const ocrText = "STARBUCKS COFFEE #221\nSM MALL OF ASIA\n12/11/2023 10:15\nCAFFE LATTE 150.00\nGRAND TOTAL 250.00\n"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtract_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.txt")
	require.NoError(t, os.WriteFile(path, []byte(ocrText), 0o644))

	out, err := execute(t, "", "extract", path)
	require.NoError(t, err)

	var res pipeline.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Date)
	assert.Equal(t, "2023-11-12", *res.Date)
	require.NotNil(t, res.Total)
	assert.Equal(t, "250.00", res.Total.StringFixed(2))
	assert.Equal(t, 90, res.DateConfidence)
	assert.NotEmpty(t, res.Category)
	assert.Nil(t, res.OCRConfidence)
}

func TestExtract_Stdin(t *testing.T) {
	out, err := execute(t, ocrText, "extract", "--compact")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
	assert.Contains(t, out, `"date":"2023-11-12"`)
}

func TestExtract_EmptyInput(t *testing.T) {
	out, err := execute(t, "", "extract", "-")
	require.NoError(t, err)

	var res pipeline.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Nil(t, res.Vendor)
	assert.Nil(t, res.Date)
	assert.Nil(t, res.Total)
	assert.Equal(t, string(constants.DefaultCategory), res.Category)
	assert.Equal(t, constants.QualityLow, res.QualityFlag)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := execute(t, "", "extract", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestExport_Bolt(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "receipts.bolt")
	t.Setenv("DB_DRIVER", "bolt")
	t.Setenv("BOLT_PATH", dbPath)

	repo, err := repository.OpenBolt(dbPath, nil)
	require.NoError(t, err)
	vendor := "Starbucks"
	amount := decimal.RequireFromString("250.00")
	require.NoError(t, repo.Save(context.Background(), &entity.ScannedReceipt{
		Vendor:      &vendor,
		Amount:      &amount,
		Category:    "Meals",
		ImagePath:   "/done/a.jpg",
		SourcePath:  "/in/a.jpg",
		QualityFlag: constants.QualityGood,
	}))
	require.NoError(t, repo.Close())

	xlsx := filepath.Join(dir, "out.xlsx")
	out, err := execute(t, "", "export", "--out", xlsx)
	require.NoError(t, err)
	assert.Contains(t, out, xlsx)

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Receipts")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Starbucks", rows[1][1])
}

func TestExport_BadDate(t *testing.T) {
	_, err := execute(t, "", "export", "--from", "11/12/2023")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Equal(t, 2, common.ExitCode(err))
}

func TestRun_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	out, err := execute(t, "", "run", "--inmem", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "- Files scanned: 1")
	assert.Contains(t, out, "- Images matched: 0")
	assert.Contains(t, out, "- Processed: 0")
}

func TestRun_RequiresDir(t *testing.T) {
	_, err := execute(t, "", "run", "--inmem")
	assert.Error(t, err)
}

func TestInvalidConfiguration(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := execute(t, "", "extract", "-")
	require.Error(t, err)
	assert.Equal(t, 2, common.ExitCode(err))
}
