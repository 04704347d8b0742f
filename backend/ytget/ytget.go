// Package ytget implements the job backend with the github.com/ytget/ytdlp/v2
// Innertube downloader. The selected audio stream lands in a session scratch
// directory and is converted with ffmpeg.
package ytget

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/download"
	"github.com/ytget/ytmp3/internal/ffmpeg"
	"github.com/ytget/ytmp3/internal/formats"
	"github.com/ytget/ytmp3/internal/logger"
	"github.com/ytget/ytmp3/internal/workdir"
	"github.com/ytget/ytmp3/pkg/client"
	"github.com/ytget/ytmp3/types"
)

const (
	downloadTimeout  = 30 * time.Minute
	progressInterval = 2 * time.Second
)

// Options configures the backend.
type Options struct {
	FFmpegPath string
	Proxy      string
	// RateLimit is a human readable byte rate such as "2M" or "500KiB".
	RateLimit string
	Logger    *logger.Logger
}

// Backend creates ytget sessions.
type Backend struct {
	opts Options
	log  *logger.ComponentLogger
}

// New returns a ytget backend.
func New(opts Options) *Backend {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Backend{opts: opts, log: l.WithComponent(logger.ComponentBackend)}
}

// Open checks ffmpeg, parses the rate limit and creates the scratch directory.
func (b *Backend) Open(ctx context.Context, cfg ytmp3.Config) (ytmp3.Session, error) {
	rate, err := download.ParseRate(b.opts.RateLimit)
	if err != nil {
		return nil, &errs.ConfigError{Field: "rate limit", Err: err}
	}
	tc := ffmpeg.New(b.opts.FFmpegPath, b.opts.Logger)
	if err := tc.Check(); err != nil {
		return nil, err
	}
	scratch, cleanup, err := workdir.Scratch("ytmp3-ytget-")
	if err != nil {
		return nil, err
	}

	// The library reports through the standard logger.
	restoreLog := redirectStdLog(b.log)

	hc := client.NewWith(client.Config{
		Timeout:  downloadTimeout,
		ProxyURL: b.opts.Proxy,
		Logger:   b.opts.Logger,
	})
	return &session{
		b:          b,
		cfg:        cfg,
		http:       hc,
		rate:       rate,
		transcoder: tc,
		scratch:    scratch,
		cleanup:    cleanup,
		restoreLog: restoreLog,
	}, nil
}

type session struct {
	b          *Backend
	cfg        ytmp3.Config
	http       *client.Client
	rate       int64
	transcoder *ffmpeg.Transcoder
	scratch    string
	cleanup    func() error
	restoreLog func()
}

func (s *session) downloader() *ytdlp.Downloader {
	return ytdlp.New().WithHTTPClient(s.http.HTTPClient).WithRateLimit(s.rate)
}

func (s *session) ResolvePlaylist(ctx context.Context, playlistURL string) ([]types.MediaItem, error) {
	id, err := ytmp3.ParsePlaylistID(playlistURL)
	if err != nil {
		return nil, &errs.PlaylistResolutionError{URL: playlistURL, Err: err}
	}
	entries, err := s.downloader().GetPlaylistItemsAll(ctx, id, 0)
	if err != nil {
		return nil, &errs.PlaylistResolutionError{URL: playlistURL, Err: classify(err)}
	}

	items := make([]types.MediaItem, 0, len(entries))
	for i, e := range entries {
		index := e.Index
		if index <= 0 {
			index = i + 1
		}
		items = append(items, types.MediaItem{
			ID:    e.VideoID,
			Title: e.Title,
			URL:   ytmp3.WatchURL(e.VideoID),
			Index: index,
		})
	}
	return items, nil
}

func (s *session) FetchAndTranscode(ctx context.Context, item types.MediaItem) (types.Output, error) {
	target, err := s.cfg.OutputPath(item)
	if err != nil {
		return types.Output{}, err
	}

	_, info, err := s.downloader().ResolveURL(ctx, item.URL)
	if err != nil {
		return types.Output{}, classify(err)
	}
	chosen, err := formats.SelectAudio(convertFormats(info.Formats), s.cfg.FormatSelector)
	if err != nil {
		return types.Output{}, err
	}

	media := filepath.Join(s.scratch, fmt.Sprintf("entry-%d.%s", item.Index, formats.Ext(*chosen)))
	defer os.Remove(media)
	dl := s.downloader().
		WithFormat(fmt.Sprintf("itag=%d", chosen.Itag), "").
		WithOutputPath(media).
		WithProgress(s.progress(item))
	if _, err := dl.Download(ctx, item.URL); err != nil {
		if ctx.Err() != nil {
			return types.Output{}, ctx.Err()
		}
		return types.Output{}, classify(err)
	}

	if err := workdir.EnsureParent(target); err != nil {
		return types.Output{}, err
	}
	if err := s.transcoder.Transcode(ctx, media, target, s.cfg.TranscodeParams()); err != nil {
		return types.Output{}, err
	}
	size, _, err := workdir.Stat(target)
	if err != nil {
		return types.Output{}, err
	}
	return types.Output{Path: target, Size: size}, nil
}

// progress logs download progress at most once per progressInterval.
func (s *session) progress(item types.MediaItem) func(ytdlp.Progress) {
	if !s.b.log.Enabled(logger.DEBUG) {
		return nil
	}
	var last time.Time
	return func(p ytdlp.Progress) {
		if time.Since(last) < progressInterval && p.DownloadedSize < p.TotalSize {
			return
		}
		last = time.Now()
		s.b.log.Debug("Download progress", map[string]interface{}{
			"id":      item.ID,
			"percent": fmt.Sprintf("%.1f", p.Percent),
			"bytes":   humanize.Bytes(uint64(p.DownloadedSize)),
		})
	}
}

func (s *session) Close() error {
	s.restoreLog()
	return s.cleanup()
}

func convertFormats(in []ytdlp.Format) []types.Format {
	out := make([]types.Format, 0, len(in))
	for _, f := range in {
		out = append(out, types.Format{
			Itag:     f.Itag,
			URL:      f.URL,
			Quality:  f.Quality,
			MimeType: f.MimeType,
			Bitrate:  f.Bitrate,
			Size:     f.Size,
		})
	}
	return out
}

// classify keeps library sentinels and attaches ours when the text matches.
func classify(err error) error {
	if sentinel := errs.Classify(err.Error()); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

// redirectStdLog points the standard logger at cl and returns a func that
// puts back the previous writer and flags.
func redirectStdLog(cl *logger.ComponentLogger) (restore func()) {
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetFlags(0)
	log.SetOutput(logWriter{cl})
	return func() {
		log.SetFlags(prevFlags)
		log.SetOutput(prevOut)
	}
}

type logWriter struct {
	log *logger.ComponentLogger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.log.Debug(strings.TrimSpace(string(p)))
	return len(p), nil
}
