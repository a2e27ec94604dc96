package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RelocateMode says whether processed files are moved or copied.
type RelocateMode string

const (
	RelocateMove RelocateMode = "move"
	RelocateCopy RelocateMode = "copy"
)

// ParseRelocateMode accepts "move" (default when empty) or "copy".
func ParseRelocateMode(s string) (RelocateMode, error) {
	switch RelocateMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RelocateMove:
		return RelocateMove, nil
	case RelocateCopy:
		return RelocateCopy, nil
	default:
		return "", fmt.Errorf("unknown relocate mode %q", s)
	}
}

// Relocator moves or copies processed images into Dir. Name collisions get a numeric
// suffix (receipt_1.jpg, receipt_2.jpg, ...). Safe for concurrent use.
type Relocator struct {
	dir    string
	mode   RelocateMode
	logger *slog.Logger

	mu sync.Mutex
}

func NewRelocator(dir string, mode RelocateMode, logger *slog.Logger) (*Relocator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("relocation directory is required")
	}
	if mode == "" {
		mode = RelocateMove
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create relocation dir: %w", err)
	}
	return &Relocator{dir: dir, mode: mode, logger: logger}, nil
}

func (r *Relocator) Dir() string { return r.dir }

// Relocate places src in the relocation directory and returns the new path. The returned
// undo func restores the previous state and is never nil on success.
func (r *Relocator) Relocate(src string) (string, func() error, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dst, err := r.freeName(filepath.Base(src))
	if err != nil {
		return "", nil, err
	}

	if r.mode == RelocateCopy {
		if err := copyFile(src, dst); err != nil {
			return "", nil, fmt.Errorf("copy %s: %w", src, err)
		}
		r.logger.Debug("copied file", "from", src, "to", dst)
		return dst, func() error { return os.Remove(dst) }, nil
	}

	if err := moveFile(src, dst); err != nil {
		return "", nil, fmt.Errorf("move %s: %w", src, err)
	}
	r.logger.Debug("moved file", "from", src, "to", dst)
	return dst, func() error { return moveFile(dst, src) }, nil
}

func (r *Relocator) freeName(base string) (string, error) {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	candidate := filepath.Join(r.dir, base)
	for i := 1; ; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(r.dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
}

// moveFile renames, falling back to copy and remove when src and dst are on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
