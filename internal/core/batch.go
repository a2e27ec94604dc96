package core

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/receipt-extractor/constants"
	"github.com/joseph-ayodele/receipt-extractor/internal/async"
	"github.com/joseph-ayodele/receipt-extractor/internal/common"
	"github.com/joseph-ayodele/receipt-extractor/internal/entity"
)

// BatchOptions tunes a batch run.
type BatchOptions struct {
	Workers     int
	QueueSize   int
	FileTimeout time.Duration
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
}

// BatchStats counts per-file outcomes.
type BatchStats struct {
	Processed int64
	Skipped   int64
	Failed    int64
	Relocated int64
}

func (s BatchStats) Total() int64 { return s.Processed + s.Skipped + s.Failed }

// BatchReport is the result of RunBatch. Records holds the receipts stored by this run,
// ordered by source path.
type BatchReport struct {
	BatchID  string
	Stats    BatchStats
	Records  []*entity.ScannedReceipt
	Duration time.Duration
}

type batchCounters struct {
	processed, skipped, failed, relocated atomic.Int64
}

func (c *batchCounters) snapshot() BatchStats {
	return BatchStats{
		Processed: c.processed.Load(),
		Skipped:   c.skipped.Load(),
		Failed:    c.failed.Load(),
		Relocated: c.relocated.Load(),
	}
}

// RunBatch processes paths on a bounded worker pool. Per-file failures are counted, not
// returned; the error is non-nil only when ctx ends before every file was handed out or
// drained.
func (p *Processor) RunBatch(ctx context.Context, paths []string, opts BatchOptions) (BatchReport, error) {
	batchID := uuid.NewString()
	ctx = common.WithBatchID(ctx, batchID)
	start := time.Now()

	var (
		counters batchCounters
		mu       sync.Mutex
		records  []*entity.ScannedReceipt
		bar      *progressbar.ProgressBar
	)
	if opts.Progress != nil && len(paths) > 0 {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Extracting receipts..."),
		)
	}

	handle := func(jobCtx context.Context, job async.Job) error {
		out, err := p.ProcessFile(jobCtx, job.Path)
		switch out.Status {
		case constants.FileStatusProcessed:
			counters.processed.Add(1)
			mu.Lock()
			records = append(records, out.Record)
			mu.Unlock()
		case constants.FileStatusSkipped:
			counters.skipped.Add(1)
		default:
			counters.failed.Add(1)
		}
		if out.Relocated {
			counters.relocated.Add(1)
		}
		if bar != nil {
			if berr := bar.Add(1); berr != nil {
				p.logger.Warn("failed to update progress bar", "error", berr)
			}
		}
		return err
	}

	q := async.NewProcessorQueue(handle, p.logger,
		async.WithWorkers(opts.Workers),
		async.WithQueueSize(opts.QueueSize),
		async.WithProcessTimeout(opts.FileTimeout),
		async.WithBaseContext(ctx),
	)

	p.logger.Info("batch started", "batch_id", batchID, "files", len(paths))
	var runErr error
	for _, path := range paths {
		if err := q.Enqueue(ctx, async.Job{Path: path, TraceID: batchID}); err != nil {
			p.logger.Warn("batch interrupted", "batch_id", batchID, "file_path", path, "error", err)
			runErr = err
			break
		}
	}
	// Queued jobs drain even when ctx is cancelled; their contexts fail fast.
	if err := q.Shutdown(context.Background()); err != nil && runErr == nil {
		runErr = err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	sort.Slice(records, func(i, j int) bool { return records[i].SourcePath < records[j].SourcePath })
	report := BatchReport{
		BatchID:  batchID,
		Stats:    counters.snapshot(),
		Records:  records,
		Duration: time.Since(start),
	}
	p.logger.Log(ctx, summaryLevel(report.Stats), "batch complete",
		"batch_id", batchID,
		"files", len(paths),
		"processed", report.Stats.Processed,
		"skipped", report.Stats.Skipped,
		"failed", report.Stats.Failed,
		"relocated", report.Stats.Relocated,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, runErr
}

func summaryLevel(s BatchStats) slog.Level {
	if s.Failed > 0 {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
