// Package ffmpeg converts downloaded streams into the requested audio format
// by running the ffmpeg binary.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/logger"
)

// DefaultBinary is looked up on PATH when no binary is configured.
const DefaultBinary = "ffmpeg"

// Codec describes how one target audio format is produced.
type Codec struct {
	// Encoder is the ffmpeg -c:a value.
	Encoder string
	// Muxer is the ffmpeg -f value; output is written to a temporary name so
	// it cannot be inferred from the extension.
	Muxer string
	// Ext is the file extension of the result.
	Ext string
	// Lossless codecs take no bitrate.
	Lossless bool
}

var codecs = map[string]Codec{
	"mp3":    {Encoder: "libmp3lame", Muxer: "mp3", Ext: "mp3"},
	"aac":    {Encoder: "aac", Muxer: "adts", Ext: "aac"},
	"m4a":    {Encoder: "aac", Muxer: "ipod", Ext: "m4a"},
	"opus":   {Encoder: "libopus", Muxer: "opus", Ext: "opus"},
	"vorbis": {Encoder: "libvorbis", Muxer: "ogg", Ext: "ogg"},
	"flac":   {Encoder: "flac", Muxer: "flac", Ext: "flac", Lossless: true},
	"wav":    {Encoder: "pcm_s16le", Muxer: "wav", Ext: "wav", Lossless: true},
}

// Lookup returns the codec for an audio format name such as "mp3".
func Lookup(format string) (Codec, bool) {
	c, ok := codecs[strings.ToLower(strings.TrimSpace(format))]
	return c, ok
}

// Formats lists the supported audio format names.
func Formats() []string {
	return []string{"mp3", "aac", "m4a", "opus", "vorbis", "flac", "wav"}
}

// Params selects the output encoding.
type Params struct {
	Format      string
	BitrateKbps int
}

// Transcoder runs ffmpeg.
type Transcoder struct {
	binary string
	log    *logger.ComponentLogger
}

// New returns a Transcoder for binary, or DefaultBinary when empty.
func New(binary string, l *logger.Logger) *Transcoder {
	if binary == "" {
		binary = DefaultBinary
	}
	if l == nil {
		l = logger.Nop()
	}
	return &Transcoder{binary: binary, log: l.WithComponent(logger.ComponentTranscoder)}
}

// Check verifies the binary can be found.
func (t *Transcoder) Check() error {
	if _, err := exec.LookPath(t.binary); err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrToolNotFound, t.binary, err)
	}
	return nil
}

// Args builds the ffmpeg arguments that convert in into out.
func Args(in, out string, p Params) ([]string, error) {
	codec, ok := Lookup(p.Format)
	if !ok {
		return nil, fmt.Errorf("unsupported audio format %q", p.Format)
	}
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error", "-y", "-i", in, "-vn", "-c:a", codec.Encoder}
	if !codec.Lossless && p.BitrateKbps > 0 {
		args = append(args, "-b:a", strconv.Itoa(p.BitrateKbps)+"k")
	}
	args = append(args, "-f", codec.Muxer, out)
	return args, nil
}

// Transcode converts in into out. The result is written next to out and
// renamed into place only on success, so out never holds a partial file.
func (t *Transcoder) Transcode(ctx context.Context, in, out string, p Params) error {
	tmp := out + ".part"
	args, err := Args(in, tmp, p)
	if err != nil {
		return err
	}

	t.log.Debug("Running ffmpeg", map[string]interface{}{"args": strings.Join(args, " ")})

	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmp)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return fmt.Errorf("%w: %s: %v", errs.ErrToolNotFound, t.binary, err)
		}
		t.log.Error("ffmpeg failed", map[string]interface{}{"input": in, "error": err.Error(), "output": stderr.String()})
		return fmt.Errorf("%w: %v: %s", errs.ErrTranscodeFailed, err, lastLine(stderr.String()))
	}

	if err := os.Rename(tmp, out); err != nil {
		_ = os.Remove(tmp)
		return &errs.FilesystemError{Op: "rename", Path: out, Err: err}
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
