package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/backend/kkdai"
	"github.com/ytget/ytmp3/backend/ytdlpcli"
	"github.com/ytget/ytmp3/backend/ytget"
	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/configfile"
	"github.com/ytget/ytmp3/internal/logger"
	"github.com/ytget/ytmp3/internal/metascript"
)

// Exit codes.
const (
	exitOK         = 0
	exitUnexpected = 1
	exitUsage      = 2
	exitItem       = 3
	exitPlaylist   = 4
	exitFilesystem = 5
)

// Backend names accepted by --backend.
const (
	backendYtDlp = "ytdlp"
	backendYtGet = "ytget"
	backendKkdai = "kkdai"
)

type backendOptions struct {
	Name         string
	YtDlpPath    string
	FFmpegPath   string
	InstallTools bool
	Proxy        string
	RateLimit    string
	Logger       *logger.Logger
}

type app struct {
	stdout     io.Writer
	stderr     io.Writer
	isTTY      bool
	newBackend func(backendOptions) (ytmp3.Backend, error)
}

// unexpectedError marks failures that are not one of the typed job errors.
type unexpectedError struct {
	err error
}

func (e *unexpectedError) Error() string { return e.err.Error() }
func (e *unexpectedError) Unwrap() error { return e.err }

func (a *app) run(ctx context.Context, args []string) int {
	cmd := a.command()
	cmd.Writer = a.stdout
	cmd.ErrWriter = a.stderr
	err := cmd.Run(ctx, args)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "ytmp3",
		Usage:     "Download a YouTube playlist as MP3 files",
		ArgsUsage: "[playlist-url]",
		Flags:     flags(),
		Action:    a.action,
	}
}

func (a *app) action(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() > 1 {
		return fmt.Errorf("expected at most one playlist URL, got %d arguments", cmd.NArg())
	}

	file, path, err := configfile.Find(cmd.String("config"))
	if err != nil {
		return err
	}
	cfg, err := buildConfig(cmd, file)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, closer, err := logger.CreateLoggerWithRotation(buildLogConfig(cmd, file, cfg.Verbosity))
	if err != nil {
		return &errs.ConfigError{Field: "log", Err: err}
	}
	defer closer.Close()
	l.SetField("run", uuid.NewString())
	log := l.WithComponent(logger.ComponentApp)

	opts := backendOptions{
		Name:         setting(cmd, "backend", file.Backend),
		YtDlpPath:    setting(cmd, "yt-dlp", file.Tools.YtDlp),
		FFmpegPath:   setting(cmd, "ffmpeg", file.Tools.FFmpeg),
		InstallTools: cmd.Bool("install-tools"),
		Proxy:        setting(cmd, "proxy", file.Proxy),
		RateLimit:    setting(cmd, "rate-limit", file.RateLimit),
		Logger:       l,
	}
	log.Debug("Loaded configuration", map[string]interface{}{
		"config_file": path,
		"backend":     opts.Name,
		"playlist":    cfg.PlaylistURL,
		"output_dir":  cfg.OutputDir,
	})

	backend, err := a.newBackend(opts)
	if err != nil {
		return err
	}
	if a.isTTY && cfg.Verbosity == ytmp3.Normal {
		backend = spinnerBackend{backend}
	}

	job := ytmp3.New(backend).
		WithLogger(l).
		WithObserver(&printer{w: a.stdout, verbosity: cfg.Verbosity})
	if script := setting(cmd, "metadata-script", file.MetadataScript); script != "" {
		rw, err := metascript.Load(script, l)
		if err != nil {
			return &errs.ConfigError{Field: "metadata script", Err: err}
		}
		job.WithRewriter(rw)
	}

	fmt.Fprintln(a.stdout, "Downloading music from YouTube playlist...")
	fmt.Fprintln(a.stdout, "Files will be saved as "+cfg.Description())

	report, err := job.Run(ctx, cfg)
	if report != nil {
		fmt.Fprintln(a.stdout, report.Summary())
		log.Info("Finished", map[string]interface{}{
			"written":  humanize.Bytes(uint64(report.BytesWritten())),
			"failures": len(report.Failures),
			"duration": report.Duration.Round(time.Millisecond),
		})
	}
	if err != nil && !typed(err) {
		return &unexpectedError{err: err}
	}
	return err
}

func typed(err error) bool {
	return errs.IsConfig(err) || errs.IsFilesystem(err) || errs.IsPlaylistResolution(err) || errs.IsItemFetch(err)
}

func exitCode(err error) int {
	var unexpected *unexpectedError
	switch {
	case err == nil:
		return exitOK
	case errs.IsConfig(err):
		return exitUsage
	case errs.IsFilesystem(err):
		return exitFilesystem
	case errs.IsPlaylistResolution(err):
		return exitPlaylist
	case errs.IsItemFetch(err):
		return exitItem
	case errors.As(err, &unexpected):
		return exitUnexpected
	default:
		// flag parsing and argument errors from the command itself
		return exitUsage
	}
}

func newBackend(o backendOptions) (ytmp3.Backend, error) {
	switch o.Name {
	case backendYtDlp, "yt-dlp", "":
		return ytdlpcli.New(ytdlpcli.Options{
			YtDlpPath:    o.YtDlpPath,
			FFmpegPath:   o.FFmpegPath,
			InstallTools: o.InstallTools,
			Proxy:        o.Proxy,
			RateLimit:    o.RateLimit,
			Logger:       o.Logger,
		}), nil
	case backendYtGet:
		return ytget.New(ytget.Options{
			FFmpegPath: o.FFmpegPath,
			Proxy:      o.Proxy,
			RateLimit:  o.RateLimit,
			Logger:     o.Logger,
		}), nil
	case backendKkdai:
		return kkdai.New(kkdai.Options{
			FFmpegPath: o.FFmpegPath,
			Proxy:      o.Proxy,
			RateLimit:  o.RateLimit,
			Logger:     o.Logger,
		}), nil
	}
	return nil, &errs.ConfigError{
		Field: "backend",
		Err:   fmt.Errorf("%q is not %s, %s or %s", o.Name, backendYtDlp, backendYtGet, backendKkdai),
	}
}
