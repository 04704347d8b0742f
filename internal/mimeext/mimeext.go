// Package mimeext maps stream MIME types to file extensions for downloaded
// audio before it is transcoded.
package mimeext

import (
	"strings"
)

const (
	// DefaultExt is the extension used when MIME is unknown or empty.
	DefaultExt = "bin"

	// ExtM4A is the file extension for MP4 audio.
	ExtM4A = "m4a"
	// ExtWebM is the file extension for WebM media.
	ExtWebM = "webm"
	// ExtMP3 is the file extension for MPEG audio.
	ExtMP3 = "mp3"
	// ExtMP4 is the file extension for MP4 video.
	ExtMP4 = "mp4"

	// MimeVideoMP4 is the MIME type for MP4 video.
	MimeVideoMP4 = "video/mp4"
	// MimeAudioMP4 is the MIME type for MP4 audio.
	MimeAudioMP4 = "audio/mp4"
	// MimeVideoWebM is the MIME type for WebM video.
	MimeVideoWebM = "video/webm"
	// MimeAudioWebM is the MIME type for WebM audio.
	MimeAudioWebM = "audio/webm"
	// MimeAudioMPEG is the MIME type for MPEG audio.
	MimeAudioMPEG = "audio/mpeg"
)

// Base strips parameters such as codecs from a MIME type and lowercases it.
func Base(mime string) string {
	base := strings.TrimSpace(mime)
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	return strings.ToLower(base)
}

// IsAudio reports whether mime is an audio/* type.
func IsAudio(mime string) bool {
	return strings.HasPrefix(Base(mime), "audio/")
}

// ExtFromMime returns file extension (without dot) for given mime type.
// Falls back to the subtype, or DefaultExt if that is empty.
func ExtFromMime(mime string) string {
	base := Base(mime)
	if base == "" {
		return DefaultExt
	}
	switch base {
	case MimeVideoMP4:
		return ExtMP4
	case MimeAudioMP4:
		return ExtM4A
	case MimeVideoWebM, MimeAudioWebM:
		return ExtWebM
	case MimeAudioMPEG:
		return ExtMP3
	}
	parts := strings.Split(base, "/")
	if len(parts) == 2 && parts[1] != "" && !strings.ContainsAny(parts[1], `/\.`) {
		return parts[1]
	}
	return DefaultExt
}
