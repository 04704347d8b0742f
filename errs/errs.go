// Package errs defines the error taxonomy shared by the job, its backends and the CLI.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVideoUnavailable indicates that the requested video cannot be accessed.
	ErrVideoUnavailable = errors.New("video unavailable")
	// ErrPrivate indicates that the video or playlist is private.
	ErrPrivate = errors.New("private")
	// ErrAgeRestricted indicates that the video has an age restriction.
	ErrAgeRestricted = errors.New("age restricted")
	// ErrGeoBlocked indicates the video is not available in the current region.
	ErrGeoBlocked = errors.New("geo blocked")
	// ErrRateLimited indicates throttling or rate limiting by the remote service.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidPlaylist indicates a locator that does not name a playlist.
	ErrInvalidPlaylist = errors.New("invalid playlist locator")
	// ErrEmptyTitle indicates an item whose title is empty after rewriting.
	ErrEmptyTitle = errors.New("empty title")
	// ErrTranscodeFailed indicates that the audio conversion step failed.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrToolNotFound indicates that a required external binary is missing.
	ErrToolNotFound = errors.New("external tool not found")
	// ErrNoAudioFormat indicates that no downloadable stream was offered for an item.
	ErrNoAudioFormat = errors.New("no suitable audio format")
)

// PlaylistResolutionError reports that the playlist locator could not be
// resolved into entries. It is always fatal for the job.
type PlaylistResolutionError struct {
	URL string
	Err error
}

func (e *PlaylistResolutionError) Error() string {
	return fmt.Sprintf("resolve playlist %q: %v", e.URL, e.Err)
}

func (e *PlaylistResolutionError) Unwrap() error { return e.Err }

// ItemFetchError reports that a single playlist entry failed to download or
// transcode. Index is the 1-based position in the playlist.
type ItemFetchError struct {
	Index int
	ID    string
	Title string
	Err   error
}

func (e *ItemFetchError) Error() string {
	name := e.Title
	if name == "" {
		name = e.ID
	}
	if e.ID != "" && e.ID != name {
		return fmt.Sprintf("item %d %q (%s): %v", e.Index, name, e.ID, e.Err)
	}
	return fmt.Sprintf("item %d %q: %v", e.Index, name, e.Err)
}

func (e *ItemFetchError) Unwrap() error { return e.Err }

// FilesystemError reports a failure to use the output location. It is
// always fatal for the job.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// ConfigError reports a rejected configuration field.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsPlaylistResolution reports whether err is or wraps a PlaylistResolutionError.
func IsPlaylistResolution(err error) bool {
	var target *PlaylistResolutionError
	return errors.As(err, &target)
}

// IsItemFetch reports whether err is or wraps an ItemFetchError.
func IsItemFetch(err error) bool {
	var target *ItemFetchError
	return errors.As(err, &target)
}

// IsFilesystem reports whether err is or wraps a FilesystemError.
func IsFilesystem(err error) bool {
	var target *FilesystemError
	return errors.As(err, &target)
}

// IsConfig reports whether err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

var classifiers = []struct {
	needle string
	err    error
}{
	{"private video", ErrPrivate},
	{"private playlist", ErrPrivate},
	{"sign in to confirm your age", ErrAgeRestricted},
	{"age-restricted", ErrAgeRestricted},
	{"available in your country", ErrGeoBlocked},
	{"geo restrict", ErrGeoBlocked},
	{"http error 429", ErrRateLimited},
	{"too many requests", ErrRateLimited},
	{"video unavailable", ErrVideoUnavailable},
	{"this video is not available", ErrVideoUnavailable},
	{"does not exist", ErrInvalidPlaylist},
}

// Classify maps diagnostic text from a media library or external tool to a
// sentinel error. It returns nil when nothing matches.
func Classify(msg string) error {
	lower := strings.ToLower(msg)
	for _, c := range classifiers {
		if strings.Contains(lower, c.needle) {
			return c.err
		}
	}
	return nil
}
