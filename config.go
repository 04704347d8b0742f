package ytmp3

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/ffmpeg"
	"github.com/ytget/ytmp3/internal/outtmpl"
	"github.com/ytget/ytmp3/types"
)

// Compiled-in defaults.
const (
	DefaultAudioFormat    = "mp3"
	DefaultAudioQuality   = 320
	DefaultOutputTemplate = "%(title)s.%(ext)s"
	DefaultPlaylistURL    = "https://www.youtube.com/playlist?list=PLr1-EhgV88FW2V3LcaQWQ2YH9pow-Gpoz"
	DefaultOutputDir      = "."
	DefaultFormatSelector = "bestaudio/best"
)

// ErrorPolicy decides what happens when a single entry fails.
type ErrorPolicy string

const (
	// AbortOnError stops the job at the first failed entry.
	AbortOnError ErrorPolicy = "abort-on-error"
	// SkipAndContinue records the failure and moves on to the next entry.
	SkipAndContinue ErrorPolicy = "skip-and-continue"
)

// ParseErrorPolicy accepts the canonical names plus "abort" and "skip".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(AbortOnError), "abort":
		return AbortOnError, nil
	case string(SkipAndContinue), "skip", "ignore":
		return SkipAndContinue, nil
	}
	return "", fmt.Errorf("unknown error policy %q (want %s or %s)", s, AbortOnError, SkipAndContinue)
}

// Verbosity controls how much the job reports.
type Verbosity string

const (
	Quiet   Verbosity = "quiet"
	Normal  Verbosity = "normal"
	Verbose Verbosity = "verbose"
)

// ParseVerbosity parses a verbosity name.
func ParseVerbosity(s string) (Verbosity, error) {
	switch v := Verbosity(strings.ToLower(strings.TrimSpace(s))); v {
	case Quiet, Normal, Verbose:
		return v, nil
	}
	return "", fmt.Errorf("unknown verbosity %q (want quiet, normal or verbose)", s)
}

// Config is the job configuration. Build it with Default and override
// fields; Run validates it before touching anything.
type Config struct {
	// AudioFormat is the target codec, e.g. "mp3".
	AudioFormat string
	// AudioQuality is the target bitrate in kbps; 0 for lossless formats.
	AudioQuality int
	// OutputTemplate names each file, relative to OutputDir.
	OutputTemplate string
	PlaylistURL    string
	ErrorPolicy    ErrorPolicy
	Verbosity      Verbosity

	OutputDir string
	// FormatSelector states the preferred source stream.
	FormatSelector string
	// Limit caps the number of entries processed; 0 means all.
	Limit int
	// Overwrite re-fetches entries whose output file already exists.
	Overwrite bool
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		AudioFormat:    DefaultAudioFormat,
		AudioQuality:   DefaultAudioQuality,
		OutputTemplate: DefaultOutputTemplate,
		PlaylistURL:    DefaultPlaylistURL,
		ErrorPolicy:    SkipAndContinue,
		Verbosity:      Verbose,
		OutputDir:      DefaultOutputDir,
		FormatSelector: DefaultFormatSelector,
	}
}

// lossyBitrates lists the accepted kbps values per lossy format.
var lossyBitrates = map[string][]int{
	"mp3":    {32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	"aac":    {32, 48, 64, 96, 128, 160, 192, 256, 320},
	"m4a":    {32, 48, 64, 96, 128, 160, 192, 256, 320},
	"opus":   {32, 48, 64, 96, 128, 160, 192, 256},
	"vorbis": {64, 96, 128, 160, 192, 256, 320},
}

// Validate checks every field and returns an *errs.ConfigError for the first
// rejected one.
func (c Config) Validate() error {
	format := strings.ToLower(strings.TrimSpace(c.AudioFormat))
	codec, ok := ffmpeg.Lookup(format)
	if !ok {
		return &errs.ConfigError{Field: "audio format", Err: fmt.Errorf("%q is not one of %s", c.AudioFormat, strings.Join(ffmpeg.Formats(), ", "))}
	}
	if codec.Lossless {
		if c.AudioQuality != 0 {
			return &errs.ConfigError{Field: "audio quality", Err: fmt.Errorf("%s is lossless and takes quality 0, got %d", format, c.AudioQuality)}
		}
	} else if !slices.Contains(lossyBitrates[format], c.AudioQuality) {
		return &errs.ConfigError{Field: "audio quality", Err: fmt.Errorf("%d kbps is not valid for %s (valid: %v)", c.AudioQuality, format, lossyBitrates[format])}
	}

	if _, err := outtmpl.Parse(c.OutputTemplate); err != nil {
		return &errs.ConfigError{Field: "output template", Err: err}
	}
	if c.ErrorPolicy != AbortOnError && c.ErrorPolicy != SkipAndContinue {
		return &errs.ConfigError{Field: "error policy", Err: fmt.Errorf("%q is not %s or %s", c.ErrorPolicy, AbortOnError, SkipAndContinue)}
	}
	switch c.Verbosity {
	case Quiet, Normal, Verbose:
	default:
		return &errs.ConfigError{Field: "verbosity", Err: fmt.Errorf("%q is not quiet, normal or verbose", c.Verbosity)}
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return &errs.ConfigError{Field: "output directory", Err: errors.New("must not be empty")}
	}
	if strings.TrimSpace(c.FormatSelector) == "" {
		return &errs.ConfigError{Field: "format selector", Err: errors.New("must not be empty")}
	}
	if c.Limit < 0 {
		return &errs.ConfigError{Field: "limit", Err: fmt.Errorf("must not be negative, got %d", c.Limit)}
	}
	return nil
}

// Codec returns the transcoder settings for AudioFormat.
func (c Config) Codec() ffmpeg.Codec {
	codec, _ := ffmpeg.Lookup(c.AudioFormat)
	return codec
}

// TranscodeParams returns the encoder parameters for this configuration.
func (c Config) TranscodeParams() ffmpeg.Params {
	return ffmpeg.Params{Format: c.AudioFormat, BitrateKbps: c.AudioQuality}
}

// OutputPath renders the final file path of item. Equal items always map to
// the same path.
func (c Config) OutputPath(item types.MediaItem) (string, error) {
	tmpl, err := outtmpl.Parse(c.OutputTemplate)
	if err != nil {
		return "", &errs.ConfigError{Field: "output template", Err: err}
	}
	playlistID, _ := ParsePlaylistID(c.PlaylistURL)
	name := tmpl.Execute(outtmpl.Fields{
		Title:         item.Title,
		ID:            item.ID,
		Ext:           c.Codec().Ext,
		PlaylistIndex: item.Index,
		PlaylistID:    playlistID,
	})
	return filepath.Join(c.OutputDir, name), nil
}

// Description is a short human form of the target encoding, e.g.
// "MP3 at 320kbps".
func (c Config) Description() string {
	name := strings.ToUpper(c.AudioFormat)
	if c.Codec().Lossless {
		return name + " (lossless)"
	}
	return fmt.Sprintf("%s at %dkbps", name, c.AudioQuality)
}
