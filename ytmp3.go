package ytmp3

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/logger"
	"github.com/ytget/ytmp3/internal/workdir"
	"github.com/ytget/ytmp3/types"
)

// Backend opens sessions against a media library or external tool.
type Backend interface {
	Open(ctx context.Context, cfg Config) (Session, error)
}

// Session is one scoped use of a Backend. Close is always called by the job,
// including on error paths.
type Session interface {
	// ResolvePlaylist returns the playlist entries in playlist order.
	ResolvePlaylist(ctx context.Context, playlistURL string) ([]types.MediaItem, error)
	// FetchAndTranscode downloads item and writes the converted file at
	// cfg.OutputPath(item).
	FetchAndTranscode(ctx context.Context, item types.MediaItem) (types.Output, error)
	Close() error
}

// Rewriter changes entry metadata before the output name is rendered.
type Rewriter interface {
	Rewrite(ctx context.Context, item types.MediaItem) (types.MediaItem, error)
}

// Observer receives job progress. Methods are called synchronously from Run.
type Observer interface {
	PlaylistResolved(total int)
	ItemStarted(item types.MediaItem, total int)
	ItemFinished(item types.MediaItem, out types.Output, err error)
}

// ItemFailure records an entry that could not be converted.
type ItemFailure struct {
	Item types.MediaItem
	Err  error
}

// Report summarizes a run.
type Report struct {
	PlaylistID string
	Attempted  int
	Succeeded  int
	Skipped    int
	Failures   []ItemFailure
	Outputs    []types.Output
	Duration   time.Duration
}

// BytesWritten sums the sizes of the outputs produced by this run. Reused
// files are not counted.
func (r *Report) BytesWritten() int64 {
	var n int64
	for _, o := range r.Outputs {
		if !o.Existing {
			n += o.Size
		}
	}
	return n
}

// Summary is the one-line completion message.
func (r *Report) Summary() string {
	return fmt.Sprintf("Done: %d attempted, %d succeeded, %d skipped", r.Attempted, r.Succeeded, r.Skipped)
}

// Job runs a playlist conversion. A Job holds no per-run state and may be
// reused.
type Job struct {
	backend  Backend
	log      *logger.Logger
	observer Observer
	rewriter Rewriter
	now      func() time.Time
}

// New returns a Job using backend.
func New(backend Backend) *Job {
	return &Job{
		backend: backend,
		log:     logger.Nop(),
		now:     time.Now,
	}
}

// WithLogger sets the logger. A nil logger discards output.
func (j *Job) WithLogger(l *logger.Logger) *Job {
	if l == nil {
		l = logger.Nop()
	}
	j.log = l
	return j
}

// WithObserver registers progress callbacks.
func (j *Job) WithObserver(o Observer) *Job {
	j.observer = o
	return j
}

// WithRewriter applies r to every entry before it is fetched.
func (j *Job) WithRewriter(r Rewriter) *Job {
	j.rewriter = r
	return j
}

// Run validates cfg, resolves the playlist and converts each entry in order.
//
// Configuration, filesystem and playlist resolution failures are returned
// with a nil report and nothing written. Entry failures follow
// cfg.ErrorPolicy: SkipAndContinue records them and returns a nil error,
// AbortOnError returns the report so far with an *errs.ItemFetchError.
func (j *Job) Run(ctx context.Context, cfg Config) (report *Report, err error) {
	log := j.log.WithComponent(logger.ComponentJob)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	playlistID, err := ParsePlaylistID(cfg.PlaylistURL)
	if err != nil {
		return nil, &errs.PlaylistResolutionError{URL: cfg.PlaylistURL, Err: err}
	}
	if err := workdir.Ensure(cfg.OutputDir); err != nil {
		return nil, err
	}

	session, err := j.backend.Open(ctx, cfg)
	if err != nil {
		if errs.IsFilesystem(err) {
			return nil, err
		}
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("Closing session failed", map[string]interface{}{"error": cerr.Error()})
		}
	}()

	started := j.now()
	items, err := session.ResolvePlaylist(ctx, cfg.PlaylistURL)
	if err != nil {
		if !errs.IsPlaylistResolution(err) {
			err = &errs.PlaylistResolutionError{URL: cfg.PlaylistURL, Err: err}
		}
		return nil, err
	}
	for i := range items {
		if items[i].Index == 0 {
			items[i].Index = i + 1
		}
	}
	if cfg.Limit > 0 && len(items) > cfg.Limit {
		items = items[:cfg.Limit]
	}

	log.Info("Resolved playlist", map[string]interface{}{"playlist": playlistID, "entries": len(items)})
	if j.observer != nil {
		j.observer.PlaylistResolved(len(items))
	}

	report = &Report{PlaylistID: playlistID}
	defer func() {
		if report != nil {
			report.Duration = j.now().Sub(started)
		}
	}()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		report.Attempted++
		if j.observer != nil {
			j.observer.ItemStarted(item, len(items))
		}
		log.Debug("Fetching entry", map[string]interface{}{"index": item.Index, "id": item.ID, "title": item.Title})

		out, err := j.process(ctx, cfg, session, item)
		if j.observer != nil {
			j.observer.ItemFinished(item, out, err)
		}

		if err == nil {
			report.Succeeded++
			report.Outputs = append(report.Outputs, out)
			log.Info("Saved entry", map[string]interface{}{
				"index":    item.Index,
				"path":     out.Path,
				"size":     humanize.Bytes(uint64(out.Size)),
				"existing": out.Existing,
			})
			continue
		}

		if errs.IsFilesystem(err) {
			log.Error("Output location failed", map[string]interface{}{"index": item.Index, "error": err.Error()})
			return report, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}

		failure := &errs.ItemFetchError{Index: item.Index, ID: item.ID, Title: item.Title, Err: err}
		report.Failures = append(report.Failures, ItemFailure{Item: item, Err: failure})
		if cfg.ErrorPolicy == AbortOnError {
			log.Error("Entry failed, aborting", map[string]interface{}{"index": item.Index, "error": err.Error()})
			return report, failure
		}
		report.Skipped++
		log.Warn("Entry failed, skipping", map[string]interface{}{"index": item.Index, "error": err.Error()})
	}

	return report, nil
}

// process converts one entry, reusing an existing output unless Overwrite
// is set.
func (j *Job) process(ctx context.Context, cfg Config, session Session, item types.MediaItem) (types.Output, error) {
	if j.rewriter != nil {
		rewritten, err := j.rewriter.Rewrite(ctx, item)
		if err != nil {
			return types.Output{}, fmt.Errorf("metadata script: %w", err)
		}
		item = rewritten
	}

	if !cfg.Overwrite {
		path, err := cfg.OutputPath(item)
		if err != nil {
			return types.Output{}, err
		}
		size, ok, err := workdir.Stat(path)
		if err != nil {
			return types.Output{}, err
		}
		if ok {
			return types.Output{Path: path, Size: size, Existing: true}, nil
		}
	}

	return session.FetchAndTranscode(ctx, item)
}
