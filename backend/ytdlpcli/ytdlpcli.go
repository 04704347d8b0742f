// Package ytdlpcli implements the job backend on top of the yt-dlp binary,
// driven through github.com/lrstanley/go-ytdlp. yt-dlp performs download,
// audio extraction and the ffmpeg conversion in one invocation per entry.
package ytdlpcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/logger"
	"github.com/ytget/ytmp3/internal/workdir"
	"github.com/ytget/ytmp3/types"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "yt-dlp"

const progressInterval = 2 * time.Second

// Options configures the backend.
type Options struct {
	// YtDlpPath and FFmpegPath override PATH lookup.
	YtDlpPath  string
	FFmpegPath string
	// InstallTools downloads yt-dlp and ffmpeg into the user cache when
	// they are not configured.
	InstallTools bool
	Proxy        string
	// RateLimit is passed to --limit-rate, e.g. "2M".
	RateLimit string
	Logger    *logger.Logger
}

// Backend runs yt-dlp.
type Backend struct {
	opts Options
	log  *logger.ComponentLogger
}

// New returns a yt-dlp backend.
func New(opts Options) *Backend {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Backend{opts: opts, log: l.WithComponent(logger.ComponentBackend)}
}

// Open locates (or installs) the tools and creates a scratch directory for
// intermediate downloads.
func (b *Backend) Open(ctx context.Context, cfg ytmp3.Config) (ytmp3.Session, error) {
	ytdlpPath, ffmpegPath, err := b.tools(ctx)
	if err != nil {
		return nil, err
	}
	scratch, cleanup, err := workdir.Scratch("ytmp3-ytdlp-")
	if err != nil {
		return nil, err
	}
	b.log.Debug("Opened session", map[string]interface{}{"yt-dlp": ytdlpPath, "ffmpeg": ffmpegPath, "scratch": scratch})
	return &session{
		b:       b,
		cfg:     cfg,
		ytdlp:   ytdlpPath,
		ffmpeg:  ffmpegPath,
		scratch: scratch,
		cleanup: cleanup,
	}, nil
}

func (b *Backend) tools(ctx context.Context) (string, string, error) {
	ytdlpPath, ffmpegPath := b.opts.YtDlpPath, b.opts.FFmpegPath

	if b.opts.InstallTools {
		if ytdlpPath == "" {
			res, err := ytdlp.Install(ctx, nil)
			if err != nil {
				return "", "", fmt.Errorf("%w: install yt-dlp: %v", errs.ErrToolNotFound, err)
			}
			ytdlpPath = res.Executable
			b.log.Info("Using installed yt-dlp", map[string]interface{}{"path": ytdlpPath})
		}
		if ffmpegPath == "" {
			res, err := ytdlp.InstallFFmpeg(ctx, nil)
			if err != nil {
				return "", "", fmt.Errorf("%w: install ffmpeg: %v", errs.ErrToolNotFound, err)
			}
			ffmpegPath = res.Executable
			b.log.Info("Using installed ffmpeg", map[string]interface{}{"path": ffmpegPath})
		}
	}

	if ytdlpPath == "" {
		ytdlpPath = DefaultBinary
	}
	resolved, err := exec.LookPath(ytdlpPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", errs.ErrToolNotFound, ytdlpPath, err)
	}
	if ffmpegPath != "" {
		if _, err := exec.LookPath(ffmpegPath); err != nil {
			return "", "", fmt.Errorf("%w: %s: %v", errs.ErrToolNotFound, ffmpegPath, err)
		}
	}
	return resolved, ffmpegPath, nil
}

type session struct {
	b       *Backend
	cfg     ytmp3.Config
	ytdlp   string
	ffmpeg  string
	scratch string
	cleanup func() error
}

func (s *session) command() *ytdlp.Command {
	cmd := ytdlp.New().SetExecutable(s.ytdlp).IgnoreConfig()
	if s.ffmpeg != "" {
		cmd = cmd.FFmpegLocation(s.ffmpeg)
	}
	if s.b.opts.Proxy != "" {
		cmd = cmd.Proxy(s.b.opts.Proxy)
	}
	if s.b.opts.RateLimit != "" {
		cmd = cmd.LimitRate(s.b.opts.RateLimit)
	}
	return cmd
}

// ResolvePlaylist lists the playlist with --flat-playlist -J.
func (s *session) ResolvePlaylist(ctx context.Context, playlistURL string) ([]types.MediaItem, error) {
	res, err := s.command().FlatPlaylist().DumpSingleJSON().Run(ctx, playlistURL)
	s.logStderr(res)
	if err != nil {
		return nil, &errs.PlaylistResolutionError{URL: playlistURL, Err: classify(res, err)}
	}
	items, err := parseFlatPlaylist([]byte(res.Stdout))
	if err != nil {
		return nil, &errs.PlaylistResolutionError{URL: playlistURL, Err: err}
	}
	return items, nil
}

// FetchAndTranscode downloads the best audio stream and lets yt-dlp convert
// it with ffmpeg into cfg.OutputPath(item).
func (s *session) FetchAndTranscode(ctx context.Context, item types.MediaItem) (types.Output, error) {
	target, err := s.cfg.OutputPath(item)
	if err != nil {
		return types.Output{}, err
	}
	if err := workdir.EnsureParent(target); err != nil {
		return types.Output{}, err
	}

	codec := s.cfg.Codec()
	cmd := s.command().
		NoPlaylist().
		Format(s.cfg.FormatSelector).
		ExtractAudio().
		AudioFormat(s.cfg.AudioFormat).
		AudioQuality(audioQuality(s.cfg)).
		ForceOverwrites().
		Paths("temp:" + s.scratch).
		Output(outputTemplate(target, codec.Ext))

	log := s.b.log
	if log.Enabled(logger.DEBUG) {
		cmd = cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			if update.TotalBytes > 0 {
				percent := float64(update.DownloadedBytes) / float64(update.TotalBytes) * 100
				log.Debug("Download progress", map[string]interface{}{
					"index":   item.Index,
					"percent": fmt.Sprintf("%.1f", percent),
				})
			}
		})
	}

	res, err := cmd.Run(ctx, item.URL)
	s.logStderr(res)
	if err != nil {
		if ctx.Err() != nil {
			return types.Output{}, ctx.Err()
		}
		return types.Output{}, classify(res, err)
	}

	size, ok, err := workdir.Stat(target)
	if err != nil {
		return types.Output{}, err
	}
	if !ok {
		return types.Output{}, fmt.Errorf("%w: yt-dlp finished but %s is missing", errs.ErrTranscodeFailed, target)
	}
	return types.Output{Path: target, Size: size}, nil
}

func (s *session) Close() error {
	if s.cleanup == nil {
		return nil
	}
	return s.cleanup()
}

func (s *session) logStderr(res *ytdlp.Result) {
	if res == nil || !s.b.log.Enabled(logger.DEBUG) {
		return
	}
	for _, line := range strings.Split(strings.TrimSpace(res.Stderr), "\n") {
		if line != "" {
			s.b.log.Debug(line, map[string]interface{}{"tool": "yt-dlp"})
		}
	}
}

// audioQuality formats the bitrate the way --audio-quality expects it.
// Lossless formats use "0", the best VBR setting.
func audioQuality(cfg ytmp3.Config) string {
	if cfg.Codec().Lossless || cfg.AudioQuality == 0 {
		return "0"
	}
	return fmt.Sprintf("%dK", cfg.AudioQuality)
}

// outputTemplate turns a rendered target path into a yt-dlp output template.
// Literal percent signs are escaped and the extension is left to yt-dlp so
// the post-processed file lands exactly on target.
func outputTemplate(target, ext string) string {
	base := strings.TrimSuffix(target, "."+ext)
	return strings.ReplaceAll(base, "%", "%%") + ".%(ext)s"
}

// flatPlaylist matches the subset of yt-dlp -J --flat-playlist output we use.
type flatPlaylist struct {
	Type    string      `json:"_type"`
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Entries []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func parseFlatPlaylist(data []byte) ([]types.MediaItem, error) {
	var pl flatPlaylist
	if err := json.Unmarshal(data, &pl); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	if pl.Type != "" && pl.Type != "playlist" {
		return nil, fmt.Errorf("%w: yt-dlp returned a %s", errs.ErrInvalidPlaylist, pl.Type)
	}
	items := make([]types.MediaItem, 0, len(pl.Entries))
	for i, e := range pl.Entries {
		url := e.URL
		if url == "" || !strings.HasPrefix(url, "http") {
			url = ytmp3.WatchURL(e.ID)
		}
		items = append(items, types.MediaItem{
			ID:    e.ID,
			Title: e.Title,
			URL:   url,
			Index: i + 1,
		})
	}
	return items, nil
}

// classify attaches a sentinel from yt-dlp's stderr when one matches.
func classify(res *ytdlp.Result, err error) error {
	var stderr string
	if res != nil {
		stderr = res.Stderr
	}
	base := err
	if msg := lastError(stderr); msg != "" {
		base = fmt.Errorf("%s (%w)", msg, err)
	}
	if sentinel := errs.Classify(stderr + "\n" + err.Error()); sentinel != nil && !errors.Is(err, sentinel) {
		return fmt.Errorf("%w: %w", sentinel, base)
	}
	return base
}

// lastError returns the last "ERROR:" line of yt-dlp output.
func lastError(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(lines[i], "ERROR:"))
		}
	}
	return ""
}
