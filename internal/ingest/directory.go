package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/receipt-extractor/constants"
)

// ScanDirectory walks root and returns the .jpg/.jpeg/.png files in lexical order.
// Unreadable entries are counted as failed and skipped; only a missing root or a
// cancelled context stops the walk.
func ScanDirectory(ctx context.Context, root string, opts ScanOptions, logger *slog.Logger) ([]string, DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	root = filepath.Clean(root)

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, ex := range opts.Exclude {
		if abs, err := filepath.Abs(ex); err == nil {
			excluded[abs] = struct{}{}
		}
	}

	var (
		paths []string
		stats DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logger.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if !opts.Recursive || (opts.SkipHidden && IsHidden(path)) {
				return filepath.SkipDir
			}
			if abs, err := filepath.Abs(path); err == nil {
				if _, skip := excluded[abs]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}

		stats.Scanned++
		if opts.SkipHidden && IsHidden(path) {
			return nil
		}
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, stats, fmt.Errorf("walk %s: %w", root, err)
	}

	logger.Info("directory scanned", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	return paths, stats, nil
}
