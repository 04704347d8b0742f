package formats

import (
	"strings"

	"github.com/ytget/ytmp3/internal/mimeext"
	"github.com/ytget/ytmp3/types"
)

// hasDirectURL returns true when the format already contains a resolvable URL.
func hasDirectURL(format types.Format) bool {
	return strings.TrimSpace(format.URL) != ""
}

// isAudioOnly reports an audio/* stream.
func isAudioOnly(format types.Format) bool {
	return mimeext.IsAudio(format.MimeType)
}

// hasAudio reports a stream that carries sound: audio-only streams, or muxed
// streams with a known channel count.
func hasAudio(format types.Format) bool {
	return isAudioOnly(format) || format.AudioChannels > 0
}

// extEquals checks that the container extension equals desiredExt.
// The desiredExt is case-insensitive and may start with a dot.
func extEquals(format types.Format, desiredExt string) bool {
	desired := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(desiredExt)), ".")
	if desired == "" {
		return true
	}
	return mimeext.ExtFromMime(format.MimeType) == desired
}

// itagEquals checks that format's itag matches the specified itag value.
// Returns false if itag is 0 or negative.
func itagEquals(format types.Format, itag int) bool {
	return itag > 0 && format.Itag == itag
}

// betterByBitrate returns true when candidate has the higher bitrate.
func betterByBitrate(candidate types.Format, current types.Format) bool {
	return candidate.Bitrate > current.Bitrate
}
