// Package configfile loads the optional YAML configuration file.
package configfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/logger"
)

// RelPath is the file looked up in the XDG config directories.
const RelPath = "ytmp3/config.yaml"

// Tools locates external binaries.
type Tools struct {
	YtDlp  string `yaml:"yt_dlp"`
	FFmpeg string `yaml:"ffmpeg"`
}

// File mirrors the configuration file. Empty or absent keys leave the
// corresponding setting unchanged.
type File struct {
	AudioFormat    string `yaml:"audio_format"`
	AudioQuality   *int   `yaml:"audio_quality"`
	OutputTemplate string `yaml:"output_template"`
	PlaylistURL    string `yaml:"playlist_url"`
	ErrorPolicy    string `yaml:"error_policy"`
	Verbosity      string `yaml:"verbosity"`
	OutputDir      string `yaml:"output_dir"`
	FormatSelector string `yaml:"format_selector"`
	Limit          *int   `yaml:"limit"`
	Overwrite      *bool  `yaml:"overwrite"`

	Backend        string `yaml:"backend"`
	Tools          Tools  `yaml:"tools"`
	MetadataScript string `yaml:"metadata_script"`
	Proxy          string `yaml:"proxy"`
	RateLimit      string `yaml:"rate_limit"`

	Log *logger.LogConfig `yaml:"log"`

	logLevelSet      bool
	logComponentsSet bool
}

// logKeys records which log keys the file spells out, since Log is
// pre-filled with defaults.
type logKeys struct {
	Log struct {
		Level      *string        `yaml:"level"`
		Components map[string]any `yaml:"components"`
	} `yaml:"log"`
}

// Find loads explicit when set; otherwise it searches the XDG config
// directories for RelPath. A missing default file is not an error: an empty
// File and an empty path are returned.
func Find(explicit string) (*File, string, error) {
	if explicit != "" {
		f, err := Load(explicit)
		return f, explicit, err
	}
	path, err := xdg.SearchConfigFile(RelPath)
	if err != nil {
		return &File{}, "", nil
	}
	f, err := Load(path)
	return f, path, err
}

// Load reads and decodes the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.ConfigError{Field: "config file", Err: err}
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &errs.ConfigError{Field: "config file", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return f, nil
}

// Decode parses YAML from r. Unknown keys are rejected. The log section is
// decoded over logger.DefaultLogConfig.
func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f := &File{Log: logger.DefaultLogConfig()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	var keys logKeys
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, err
	}
	f.logLevelSet = keys.Log.Level != nil
	f.logComponentsSet = keys.Log.Components != nil
	return f, nil
}

// LogLevelSet reports whether the file sets log.level.
func (f *File) LogLevelSet() bool { return f.logLevelSet }

// LogComponentsSet reports whether the file sets log.components.
func (f *File) LogComponentsSet() bool { return f.logComponentsSet }

// Apply copies the set keys onto cfg.
func (f *File) Apply(cfg *ytmp3.Config) error {
	if f.AudioFormat != "" {
		cfg.AudioFormat = f.AudioFormat
	}
	if f.AudioQuality != nil {
		cfg.AudioQuality = *f.AudioQuality
	}
	if f.OutputTemplate != "" {
		cfg.OutputTemplate = f.OutputTemplate
	}
	if f.PlaylistURL != "" {
		cfg.PlaylistURL = f.PlaylistURL
	}
	if f.ErrorPolicy != "" {
		p, err := ytmp3.ParseErrorPolicy(f.ErrorPolicy)
		if err != nil {
			return &errs.ConfigError{Field: "error policy", Err: err}
		}
		cfg.ErrorPolicy = p
	}
	if f.Verbosity != "" {
		v, err := ytmp3.ParseVerbosity(f.Verbosity)
		if err != nil {
			return &errs.ConfigError{Field: "verbosity", Err: err}
		}
		cfg.Verbosity = v
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.FormatSelector != "" {
		cfg.FormatSelector = f.FormatSelector
	}
	if f.Limit != nil {
		cfg.Limit = *f.Limit
	}
	if f.Overwrite != nil {
		cfg.Overwrite = *f.Overwrite
	}
	return nil
}
