package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytmp3/errs"
)

func TestArgs(t *testing.T) {
	args, err := Args("in.webm", "out.mp3.part", Params{Format: "mp3", BitrateKbps: 320})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"-hide_banner", "-nostdin", "-loglevel", "error", "-y",
		"-i", "in.webm", "-vn", "-c:a", "libmp3lame", "-b:a", "320k",
		"-f", "mp3", "out.mp3.part",
	}, args)
}

func TestArgs_LosslessHasNoBitrate(t *testing.T) {
	args, err := Args("in", "out", Params{Format: "FLAC", BitrateKbps: 320})
	require.NoError(t, err)
	assert.NotContains(t, args, "-b:a")
	assert.Contains(t, args, "flac")
}

func TestArgs_Unsupported(t *testing.T) {
	_, err := Args("in", "out", Params{Format: "midi"})
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	for _, f := range Formats() {
		c, ok := Lookup(f)
		assert.True(t, ok, f)
		assert.NotEmpty(t, c.Encoder, f)
	}
	c, _ := Lookup("vorbis")
	assert.Equal(t, "ogg", c.Ext)
}

func TestCheck_MissingBinary(t *testing.T) {
	err := New("ytmp3-no-such-ffmpeg", nil).Check()
	assert.ErrorIs(t, err, errs.ErrToolNotFound)
}

func TestTranscode_MissingBinary(t *testing.T) {
	out := filepath.Join(t.TempDir(), "song.mp3")
	err := New("ytmp3-no-such-ffmpeg", nil).Transcode(context.Background(), "in.webm", out, Params{Format: "mp3", BitrateKbps: 320})
	assert.ErrorIs(t, err, errs.ErrToolNotFound)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "second", lastLine("first\nsecond\n"))
	assert.Equal(t, "only", lastLine("only"))
}
