package main

import (
	"maps"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/configfile"
	"github.com/ytget/ytmp3/internal/logger"
)

func env(name string) cli.ValueSourceChain {
	return cli.EnvVars("YTMP3_" + name)
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file (default: $XDG_CONFIG_HOME/" + configfile.RelPath + ")", Sources: env("CONFIG")},
		&cli.StringFlag{Name: "playlist-url", Usage: "playlist to download; the positional argument takes precedence", Sources: env("PLAYLIST_URL")},
		&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "directory the files are written to", Value: ytmp3.DefaultOutputDir, Sources: env("OUTPUT_DIR")},
		&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "output file name template", Value: ytmp3.DefaultOutputTemplate, Sources: env("OUTPUT_TEMPLATE")},
		&cli.StringFlag{Name: "audio-format", Aliases: []string{"f"}, Usage: "target audio format", Value: ytmp3.DefaultAudioFormat, Sources: env("AUDIO_FORMAT")},
		&cli.IntFlag{Name: "audio-quality", Aliases: []string{"q"}, Usage: "target bitrate in kbps (0 for lossless formats)", Value: ytmp3.DefaultAudioQuality, Sources: env("AUDIO_QUALITY")},
		&cli.StringFlag{Name: "error-policy", Usage: "abort-on-error or skip-and-continue", Value: string(ytmp3.SkipAndContinue), Sources: env("ERROR_POLICY")},
		&cli.StringFlag{Name: "verbosity", Usage: "quiet, normal or verbose", Value: string(ytmp3.Verbose), Sources: env("VERBOSITY")},
		&cli.StringFlag{Name: "format-selector", Usage: "source stream preference, e.g. bestaudio/best or itag=140", Value: ytmp3.DefaultFormatSelector, Sources: env("FORMAT_SELECTOR")},
		&cli.IntFlag{Name: "limit", Usage: "convert at most this many entries (0 means all)", Sources: env("LIMIT")},
		&cli.BoolFlag{Name: "overwrite", Usage: "convert again even when the output file exists", Sources: env("OVERWRITE")},

		&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "ytdlp, ytget or kkdai", Value: backendYtDlp, Sources: env("BACKEND")},
		&cli.StringFlag{Name: "yt-dlp", Usage: "yt-dlp binary", Sources: env("YT_DLP")},
		&cli.StringFlag{Name: "ffmpeg", Usage: "ffmpeg binary", Sources: env("FFMPEG")},
		&cli.BoolFlag{Name: "install-tools", Usage: "download yt-dlp and ffmpeg when they are not configured", Sources: env("INSTALL_TOOLS")},
		&cli.StringFlag{Name: "metadata-script", Usage: "JavaScript file defining rewrite(item)", Sources: env("METADATA_SCRIPT")},
		&cli.StringFlag{Name: "proxy", Usage: "proxy URL (http, https or socks5)", Sources: env("PROXY")},
		&cli.StringFlag{Name: "rate-limit", Usage: "download rate limit, e.g. 2MiB/s", Sources: env("RATE_LIMIT")},

		&cli.StringFlag{Name: "log-level", Usage: "override the level implied by verbosity"},
		&cli.StringFlag{Name: "log-format", Usage: "text, json or color"},
		&cli.StringFlag{Name: "log-output", Usage: "stderr, stdout, null or file:<path>"},
		&cli.BoolFlag{Name: "log-caller", Usage: "include the source location"},
		&cli.BoolFlag{Name: "log-timestamp", Usage: "include a timestamp"},
	}
}

// setting returns the flag value when it was given on the command line or in
// the environment, else the config file value, else the flag default.
func setting(cmd *cli.Command, name, fileValue string) string {
	if cmd.IsSet(name) || fileValue == "" {
		return cmd.String(name)
	}
	return fileValue
}

// buildConfig layers the config file and then flags over the defaults.
func buildConfig(cmd *cli.Command, file *configfile.File) (ytmp3.Config, error) {
	cfg := ytmp3.Default()
	if err := file.Apply(&cfg); err != nil {
		return cfg, err
	}

	if cmd.IsSet("playlist-url") {
		cfg.PlaylistURL = cmd.String("playlist-url")
	}
	if cmd.NArg() == 1 {
		cfg.PlaylistURL = cmd.Args().First()
	}
	if cmd.IsSet("output-dir") {
		cfg.OutputDir = cmd.String("output-dir")
	}
	if cmd.IsSet("template") {
		cfg.OutputTemplate = cmd.String("template")
	}
	if cmd.IsSet("audio-format") {
		cfg.AudioFormat = cmd.String("audio-format")
	}
	if cmd.IsSet("audio-quality") {
		cfg.AudioQuality = cmd.Int("audio-quality")
	}
	if cmd.IsSet("error-policy") {
		p, err := ytmp3.ParseErrorPolicy(cmd.String("error-policy"))
		if err != nil {
			return cfg, &errs.ConfigError{Field: "error policy", Err: err}
		}
		cfg.ErrorPolicy = p
	}
	if cmd.IsSet("verbosity") {
		v, err := ytmp3.ParseVerbosity(cmd.String("verbosity"))
		if err != nil {
			return cfg, &errs.ConfigError{Field: "verbosity", Err: err}
		}
		cfg.Verbosity = v
	}
	if cmd.IsSet("format-selector") {
		cfg.FormatSelector = cmd.String("format-selector")
	}
	if cmd.IsSet("limit") {
		cfg.Limit = cmd.Int("limit")
	}
	if cmd.IsSet("overwrite") {
		cfg.Overwrite = cmd.Bool("overwrite")
	}
	return cfg, nil
}

// buildLogConfig starts from the config file's log section, maps verbosity
// to a level, then applies YTMP3_LOG_* and the --log-* flags. An explicit
// log.level or log.components in the file beats the verbosity mapping unless
// --verbosity is given.
func buildLogConfig(cmd *cli.Command, file *configfile.File, v ytmp3.Verbosity) *logger.LogConfig {
	lc := logger.DefaultLogConfig()
	if file.Log != nil {
		copied := *file.Log
		copied.Components = maps.Clone(file.Log.Components)
		lc = &copied
	}
	explicit := cmd.IsSet("verbosity")
	if explicit || !file.LogLevelSet() {
		switch v {
		case ytmp3.Quiet:
			lc.Level = logger.WARN.String()
		case ytmp3.Normal:
			lc.Level = logger.INFO.String()
		case ytmp3.Verbose:
			lc.Level = logger.DEBUG.String()
		}
	}
	if v == ytmp3.Verbose && (explicit || !file.LogComponentsSet()) {
		lc.EnableAll()
	}
	lc.ApplyEnvironment(lookupEnv)

	if cmd.IsSet("log-level") {
		lc.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		lc.Format = cmd.String("log-format")
	}
	if cmd.IsSet("log-output") {
		lc.Output = cmd.String("log-output")
	}
	if cmd.IsSet("log-caller") {
		lc.ShowCaller = cmd.Bool("log-caller")
	}
	if cmd.IsSet("log-timestamp") {
		lc.Timestamp = cmd.Bool("log-timestamp")
	}
	return lc
}

var lookupEnv = os.LookupEnv
