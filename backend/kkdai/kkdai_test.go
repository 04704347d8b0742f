package kkdai

import (
	"context"
	"errors"
	"testing"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/assert"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/errs"
)

func TestToFormat(t *testing.T) {
	f := toFormat(youtube.Format{
		ItagNo:        251,
		URL:           "https://example.com/251",
		MimeType:      `audio/webm; codecs="opus"`,
		Bitrate:       160000,
		ContentLength: 4096,
		AudioChannels: 2,
	})
	assert.Equal(t, 251, f.Itag)
	assert.Equal(t, "https://example.com/251", f.URL)
	assert.Equal(t, int64(4096), f.Size)
	assert.Equal(t, 2, f.AudioChannels)
}

func TestClassify(t *testing.T) {
	err := classify(errors.New("cannot playback and download, status: LOGIN_REQUIRED, reason: Sign in to confirm your age"))
	assert.ErrorIs(t, err, errs.ErrAgeRestricted)

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
}

func TestOpen_InvalidRateLimit(t *testing.T) {
	b := New(Options{RateLimit: "fast"})
	_, err := b.Open(context.Background(), ytmp3.Default())
	assert.True(t, errs.IsConfig(err))
}

func TestOpen_MissingFFmpeg(t *testing.T) {
	b := New(Options{FFmpegPath: "ytmp3-no-such-ffmpeg"})
	_, err := b.Open(context.Background(), ytmp3.Default())
	assert.ErrorIs(t, err, errs.ErrToolNotFound)
}
