// Package kkdai implements the job backend with the pure-Go
// github.com/kkdai/youtube/v2 client. Streams are downloaded into a session
// scratch directory and converted with ffmpeg.
package kkdai

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kkdai/youtube/v2"

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
	// downloadTimeout bounds a single stream download.
	downloadTimeout  = 30 * time.Minute
	progressInterval = 2 * time.Second
)

// Options configures the backend.
type Options struct {
	FFmpegPath string
	Proxy      string
	// RateLimit is a human readable byte rate such as "2MiB/s".
	RateLimit string
	Logger    *logger.Logger
}

// Backend creates kkdai sessions.
type Backend struct {
	opts Options
	log  *logger.ComponentLogger
}

// New returns a kkdai backend.
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
	scratch, cleanup, err := workdir.Scratch("ytmp3-kkdai-")
	if err != nil {
		return nil, err
	}
	hc := client.NewWith(client.Config{
		Timeout:  downloadTimeout,
		ProxyURL: b.opts.Proxy,
		Logger:   b.opts.Logger,
	})
	return &session{
		b:          b,
		cfg:        cfg,
		yt:         &youtube.Client{HTTPClient: hc.HTTPClient},
		rate:       rate,
		transcoder: tc,
		scratch:    scratch,
		cleanup:    cleanup,
	}, nil
}

type session struct {
	b          *Backend
	cfg        ytmp3.Config
	yt         *youtube.Client
	rate       int64
	transcoder *ffmpeg.Transcoder
	scratch    string
	cleanup    func() error
}

func (s *session) ResolvePlaylist(ctx context.Context, playlistURL string) ([]types.MediaItem, error) {
	pl, err := s.yt.GetPlaylistContext(ctx, playlistURL)
	if err != nil {
		return nil, &errs.PlaylistResolutionError{URL: playlistURL, Err: classify(err)}
	}
	s.b.log.Debug("Fetched playlist", map[string]interface{}{"title": pl.Title, "author": pl.Author, "entries": len(pl.Videos)})

	items := make([]types.MediaItem, 0, len(pl.Videos))
	for i, v := range pl.Videos {
		items = append(items, types.MediaItem{
			ID:    v.ID,
			Title: v.Title,
			URL:   ytmp3.WatchURL(v.ID),
			Index: i + 1,
		})
	}
	return items, nil
}

func (s *session) FetchAndTranscode(ctx context.Context, item types.MediaItem) (types.Output, error) {
	target, err := s.cfg.OutputPath(item)
	if err != nil {
		return types.Output{}, err
	}

	ref := item.URL
	if ref == "" {
		ref = item.ID
	}
	video, err := s.yt.GetVideoContext(ctx, ref)
	if err != nil {
		return types.Output{}, classify(err)
	}

	available := make([]types.Format, 0, len(video.Formats))
	for _, f := range video.Formats.WithAudioChannels() {
		available = append(available, toFormat(f))
	}
	chosen, err := formats.SelectAudio(available, s.cfg.FormatSelector)
	if err != nil {
		return types.Output{}, err
	}
	var source *youtube.Format
	for i := range video.Formats {
		if video.Formats[i].ItagNo == chosen.Itag {
			source = &video.Formats[i]
			break
		}
	}
	if source == nil {
		return types.Output{}, errs.ErrNoAudioFormat
	}

	media := filepath.Join(s.scratch, fmt.Sprintf("entry-%d.%s", item.Index, formats.Ext(*chosen)))
	defer os.Remove(media)
	if err := s.download(ctx, video, source, media); err != nil {
		return types.Output{}, err
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

func (s *session) download(ctx context.Context, video *youtube.Video, format *youtube.Format, path string) error {
	stream, size, err := s.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return classify(err)
	}
	defer stream.Close()

	n, err := download.New(s.progress(video.ID), s.rate).WriteFile(ctx, stream, size, path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("download stream: %w", err)
	}
	s.b.log.Debug("Downloaded stream", map[string]interface{}{"id": video.ID, "itag": format.ItagNo, "bytes": n})
	return nil
}

// progress logs download progress at most once per progressInterval.
func (s *session) progress(id string) func(download.Progress) {
	if !s.b.log.Enabled(logger.DEBUG) {
		return nil
	}
	var last time.Time
	return func(p download.Progress) {
		if time.Since(last) < progressInterval {
			return
		}
		last = time.Now()
		s.b.log.Debug("Download progress", map[string]interface{}{
			"id":      id,
			"percent": fmt.Sprintf("%.1f", p.Percent),
			"bytes":   humanize.Bytes(uint64(p.DownloadedSize)),
		})
	}
}

func (s *session) Close() error {
	return s.cleanup()
}

func toFormat(f youtube.Format) types.Format {
	return types.Format{
		Itag:          f.ItagNo,
		URL:           f.URL,
		Quality:       f.Quality,
		MimeType:      f.MimeType,
		Bitrate:       f.Bitrate,
		Size:          f.ContentLength,
		AudioChannels: f.AudioChannels,
	}
}

// classify attaches a sentinel matching the library's error text.
func classify(err error) error {
	if sentinel := errs.Classify(err.Error()); sentinel != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}
