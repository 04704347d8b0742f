// Package download writes a media stream to disk with progress reporting
// and optional rate limiting.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ytget/ytmp3/errs"
)

const (
	copyBufferSizeBytes = 32 * 1024 // 32KB
	temporaryFileSuffix = ".part"
)

// ErrEmpty is returned when the stream produced no bytes.
var ErrEmpty = errors.New("empty download: 0 bytes written")

// Progress holds information about download progress.
type Progress struct {
	TotalSize      int64
	DownloadedSize int64
	Percent        float64
}

// Writer copies streams into files. The zero value copies without limits.
type Writer struct {
	ProgressFunc func(Progress)
	// RateLimitBps caps throughput in bytes per second; 0 disables limiting.
	RateLimitBps int64
}

// New returns a Writer.
func New(progressFunc func(Progress), rateLimitBps int64) *Writer {
	if rateLimitBps < 0 {
		rateLimitBps = 0
	}
	return &Writer{ProgressFunc: progressFunc, RateLimitBps: rateLimitBps}
}

// WriteFile copies src into outputPath through a temporary file that is
// renamed on success and removed on failure. totalSize may be 0 when unknown;
// when known, a short stream is an error.
func (w *Writer) WriteFile(ctx context.Context, src io.Reader, totalSize int64, outputPath string) (int64, error) {
	tmpPath := outputPath + temporaryFileSuffix
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, &errs.FilesystemError{Op: "create", Path: tmpPath, Err: err}
	}

	n, err := w.copy(ctx, out, src, totalSize)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = &errs.FilesystemError{Op: "close", Path: tmpPath, Err: cerr}
	}
	if err == nil && n == 0 {
		err = ErrEmpty
	}
	if err == nil && totalSize > 0 && n != totalSize {
		err = fmt.Errorf("short download: got %d of %d bytes", n, totalSize)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return n, err
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return n, &errs.FilesystemError{Op: "rename", Path: outputPath, Err: err}
	}
	return n, nil
}

func (w *Writer) copy(ctx context.Context, dst io.Writer, src io.Reader, totalSize int64) (int64, error) {
	buf := make([]byte, copyBufferSizeBytes)
	var downloaded int64
	for {
		if err := ctx.Err(); err != nil {
			return downloaded, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return downloaded, &errs.FilesystemError{Op: "write", Path: "download", Err: werr}
			}
			downloaded += int64(n)
			if w.ProgressFunc != nil {
				p := Progress{TotalSize: totalSize, DownloadedSize: downloaded}
				if totalSize > 0 {
					p.Percent = float64(downloaded) / float64(totalSize) * 100
				}
				w.ProgressFunc(p)
			}
			if err := w.sleepForRate(ctx, int64(n)); err != nil {
				return downloaded, err
			}
		}
		if rerr == io.EOF {
			return downloaded, nil
		}
		if rerr != nil {
			return downloaded, fmt.Errorf("read stream: %w", rerr)
		}
	}
}

// sleepForRate enforces the rate limit for the bytes written in this step.
func (w *Writer) sleepForRate(ctx context.Context, written int64) error {
	if w.RateLimitBps <= 0 || written <= 0 {
		return nil
	}
	dur := time.Duration(int64(time.Second) * written / w.RateLimitBps)
	if dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ParseRate converts a human readable byte rate such as "2MiB/s" or "500K".
// Empty means unlimited.
func ParseRate(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if i := len(s) - len("/s"); i > 0 && strings.EqualFold(s[i:], "/s") {
		s = s[:i]
	}
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
