// Package formats selects the source stream to transcode from the formats a
// media library reports for a video.
package formats

import (
	"strconv"
	"strings"

	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/internal/mimeext"
	"github.com/ytget/ytmp3/types"
)

// SelectAudio chooses a source stream according to selector. Selectors are
// tried left to right, separated by "/" as in yt-dlp:
//   - bestaudio: audio-only stream with the highest bitrate
//   - worstaudio: audio-only stream with the lowest bitrate
//   - best: any stream with the highest bitrate
//   - itag=NN: a specific format
//   - m4a, webm, ...: audio-only stream with that container, highest bitrate
//
// An empty selector means "bestaudio/best". Formats without a URL are never
// chosen when one with a URL exists.
func SelectAudio(formats []types.Format, selector string) (*types.Format, error) {
	if len(formats) == 0 {
		return nil, errs.ErrNoAudioFormat
	}
	usable := make([]types.Format, 0, len(formats))
	for _, f := range formats {
		if hasDirectURL(f) {
			usable = append(usable, f)
		}
	}
	if len(usable) == 0 {
		usable = append(usable, formats...)
	}

	if strings.TrimSpace(selector) == "" {
		selector = "bestaudio/best"
	}
	for _, alt := range strings.Split(selector, "/") {
		if f := selectOne(usable, strings.ToLower(strings.TrimSpace(alt))); f != nil {
			return f, nil
		}
	}
	return nil, errs.ErrNoAudioFormat
}

func selectOne(formats []types.Format, sel string) *types.Format {
	switch {
	case sel == "":
		return nil
	case sel == "bestaudio":
		return pick(formats, isAudioOnly, true)
	case sel == "worstaudio":
		return pick(formats, isAudioOnly, false)
	case sel == "best":
		return pick(formats, hasAudio, true)
	case strings.HasPrefix(sel, "itag="):
		it, err := strconv.Atoi(strings.TrimPrefix(sel, "itag="))
		if err != nil {
			return nil
		}
		return pick(formats, func(f types.Format) bool { return itagEquals(f, it) }, true)
	default:
		return pick(formats, func(f types.Format) bool {
			return isAudioOnly(f) && extEquals(f, sel)
		}, true)
	}
}

// pick returns the format matching keep with the highest (or lowest) bitrate.
// Ties keep the earlier format.
func pick(formats []types.Format, keep func(types.Format) bool, highest bool) *types.Format {
	var chosen *types.Format
	for i := range formats {
		if !keep(formats[i]) {
			continue
		}
		if chosen == nil {
			chosen = &formats[i]
			continue
		}
		if highest && betterByBitrate(formats[i], *chosen) {
			chosen = &formats[i]
		}
		if !highest && betterByBitrate(*chosen, formats[i]) {
			chosen = &formats[i]
		}
	}
	if chosen == nil {
		return nil
	}
	f := *chosen
	return &f
}

// Ext returns the file extension for a selected format's container.
func Ext(f types.Format) string {
	return mimeext.ExtFromMime(f.MimeType)
}
