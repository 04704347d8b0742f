package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatingWriter is an io.WriteCloser that rolls the file over when it grows
// past maxSize or gets older than maxAge.
type RotatingWriter struct {
	filename   string
	maxSize    int64
	maxAge     time.Duration
	maxBackups int
	compress   bool

	mu       sync.Mutex
	file     *os.File
	size     int64
	openedAt time.Time
	now      func() time.Time
}

// NewRotatingWriter opens (or creates) filename for appending.
func NewRotatingWriter(filename string, maxSize int64, maxAge time.Duration, maxBackups int, compress bool) (*RotatingWriter, error) {
	rw := &RotatingWriter{
		filename:   filename,
		maxSize:    maxSize,
		maxAge:     maxAge,
		maxBackups: maxBackups,
		compress:   compress,
		now:        time.Now,
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

func (rw *RotatingWriter) open() error {
	file, err := os.OpenFile(rw.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	rw.file = file
	rw.size = stat.Size()
	rw.openedAt = rw.now()
	return nil
}

// Write implements io.Writer.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return 0, os.ErrClosed
	}
	if rw.needsRotation(int64(len(p))) {
		if err := rw.rotate(); err != nil {
			return 0, fmt.Errorf("rotate log file: %w", err)
		}
	}
	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

// Close closes the current file.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}

func (rw *RotatingWriter) needsRotation(incoming int64) bool {
	if rw.size == 0 {
		return false
	}
	if rw.maxSize > 0 && rw.size+incoming > rw.maxSize {
		return true
	}
	return rw.maxAge > 0 && rw.now().Sub(rw.openedAt) >= rw.maxAge
}

func (rw *RotatingWriter) rotate() error {
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("close current file: %w", err)
	}
	rw.file = nil

	backup := fmt.Sprintf("%s.%s", rw.filename, rw.now().Format("2006-01-02-15-04-05.000"))
	if err := os.Rename(rw.filename, backup); err != nil {
		return fmt.Errorf("rename log file: %w", err)
	}

	// Compression and pruning failures leave extra files behind but must not
	// stop logging.
	if rw.compress {
		if err := gzipFile(backup); err != nil {
			fmt.Fprintf(os.Stderr, "ytmp3: compress %s: %v\n", backup, err)
		}
	}
	if err := rw.pruneBackups(); err != nil {
		fmt.Fprintf(os.Stderr, "ytmp3: prune log backups: %v\n", err)
	}

	return rw.open()
}

func gzipFile(name string) error {
	src, err := os.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(name + ".gz")
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		dst.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	src.Close()
	return os.Remove(name)
}

// pruneBackups keeps the newest maxBackups rotated files. Backup names embed
// a sortable timestamp so lexical order is age order.
func (rw *RotatingWriter) pruneBackups() error {
	if rw.maxBackups <= 0 {
		return nil
	}
	dir := filepath.Dir(rw.filename)
	prefix := filepath.Base(rw.filename) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, entry.Name())
		}
	}
	if len(backups) <= rw.maxBackups {
		return nil
	}
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-rw.maxBackups] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// CreateLoggerWithRotation validates config and builds a logger. File outputs
// get a RotatingWriter when Rotation is set. The returned closer releases the
// output and is never nil.
func CreateLoggerWithRotation(config *LogConfig) (*Logger, io.Closer, error) {
	if err := config.ValidateConfig(); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	loggerConfig, err := (&LogConfig{
		Level:      config.Level,
		Format:     config.Format,
		Output:     "null",
		Components: config.Components,
		ShowCaller: config.ShowCaller,
		Timestamp:  config.Timestamp,
	}).ToLoggerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("convert config: %w", err)
	}

	var closer io.Closer = nopCloser{}
	path, isFile := filePath(config.Output)
	switch {
	case isFile && config.Rotation != nil:
		maxSize, _ := parseSize(config.Rotation.MaxSize)
		maxAge, _ := parseDuration(config.Rotation.MaxAge)
		rw, err := NewRotatingWriter(path, maxSize, maxAge, config.Rotation.MaxBackups, config.Rotation.Compress)
		if err != nil {
			return nil, nil, fmt.Errorf("create rotating writer: %w", err)
		}
		loggerConfig.Output = rw
		closer = rw
	default:
		output, err := parseOutput(config.Output)
		if err != nil {
			return nil, nil, fmt.Errorf("parse output: %w", err)
		}
		loggerConfig.Output = output
		if f, ok := output.(*os.File); ok && isFile {
			closer = f
		}
	}

	return New(loggerConfig), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
