package ytmp3

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ytget/ytmp3/errs"
)

// WatchURLTemplate builds a canonical watch URL from a video ID.
const WatchURLTemplate = "https://www.youtube.com/watch?v=%s"

var (
	playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,64}$`)
	videoIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)
	playlistPrefixes  = []string{"PL", "UU", "OL", "RD", "FL", "LL"}
)

// ParsePlaylistID extracts the playlist ID from a playlist URL, a watch URL
// carrying a list parameter, or a raw playlist ID.
func ParsePlaylistID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty", errs.ErrInvalidPlaylist)
	}
	if isRawPlaylistID(input) {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidPlaylist, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", errs.ErrInvalidPlaylist, u.Scheme)
	}
	if !isYouTubeHost(u.Hostname()) {
		return "", fmt.Errorf("%w: not a YouTube host: %s", errs.ErrInvalidPlaylist, u.Hostname())
	}
	id := u.Query().Get("list")
	if id == "" {
		return "", fmt.Errorf("%w: playlist id not found", errs.ErrInvalidPlaylist)
	}
	if !playlistIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: malformed playlist id %q", errs.ErrInvalidPlaylist, id)
	}
	return id, nil
}

func isRawPlaylistID(s string) bool {
	if !playlistIDPattern.MatchString(s) {
		return false
	}
	for _, p := range playlistPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

// PlaylistURL returns the canonical URL for a playlist ID.
func PlaylistURL(id string) string {
	return "https://www.youtube.com/playlist?list=" + url.QueryEscape(id)
}

// ParseVideoID extracts the video ID from watch, short-link and shorts URLs.
func ParseVideoID(videoURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(videoURL))
	if err != nil {
		return "", err
	}
	var id string
	switch strings.ToLower(u.Hostname()) {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		switch {
		case strings.HasPrefix(u.Path, "/watch"):
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
		}
	}
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("invalid youtube video url: %s", videoURL)
	}
	return id, nil
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(id string) string {
	return fmt.Sprintf(WatchURLTemplate, id)
}
