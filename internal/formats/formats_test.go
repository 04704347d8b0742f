package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/types"
)

var sample = []types.Format{
	{Itag: 18, URL: "u18", MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Bitrate: 500000, AudioChannels: 2},
	{Itag: 140, URL: "u140", MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2},
	{Itag: 251, URL: "u251", MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
	{Itag: 249, URL: "u249", MimeType: `audio/webm; codecs="opus"`, Bitrate: 50000, AudioChannels: 2},
	{Itag: 137, URL: "u137", MimeType: `video/mp4; codecs="avc1.640028"`, Bitrate: 4000000},
}

func TestSelectAudio(t *testing.T) {
	tests := []struct {
		selector string
		itag     int
	}{
		{"", 251},
		{"bestaudio", 251},
		{"bestaudio/best", 251},
		{"worstaudio", 249},
		{"m4a", 140},
		{"mp3/m4a", 140},
		{"itag=18", 18},
		{"best", 18},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			f, err := SelectAudio(sample, tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.itag, f.Itag)
		})
	}
}

func TestSelectAudio_FallsBackToMuxed(t *testing.T) {
	videoOnly := []types.Format{sample[0], sample[4]}
	f, err := SelectAudio(videoOnly, "bestaudio/best")
	require.NoError(t, err)
	assert.Equal(t, 18, f.Itag)
}

func TestSelectAudio_PrefersDirectURL(t *testing.T) {
	formats := []types.Format{
		{Itag: 251, MimeType: "audio/webm", Bitrate: 160000},
		{Itag: 140, URL: "u140", MimeType: "audio/mp4", Bitrate: 130000},
	}
	f, err := SelectAudio(formats, "bestaudio")
	require.NoError(t, err)
	assert.Equal(t, 140, f.Itag)
}

func TestSelectAudio_None(t *testing.T) {
	_, err := SelectAudio(nil, "")
	assert.ErrorIs(t, err, errs.ErrNoAudioFormat)

	_, err = SelectAudio([]types.Format{sample[4]}, "bestaudio")
	assert.ErrorIs(t, err, errs.ErrNoAudioFormat)
}

func TestSelectAudio_ReturnsCopy(t *testing.T) {
	formats := append([]types.Format(nil), sample...)
	f, err := SelectAudio(formats, "bestaudio")
	require.NoError(t, err)
	f.URL = "changed"
	assert.Equal(t, "u251", formats[2].URL)
}

func TestExt(t *testing.T) {
	assert.Equal(t, "webm", Ext(sample[2]))
	assert.Equal(t, "m4a", Ext(sample[1]))
}
