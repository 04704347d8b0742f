package types

// MediaItem is one entry of a playlist.
type MediaItem struct {
	ID    string
	Title string
	// URL is the page or stream locator the backend fetches from.
	URL string
	// Index is the 1-based position in the playlist.
	Index int
}

// Output describes a file produced for a MediaItem.
type Output struct {
	Path string
	Size int64
	// Existing is true when the file was already present and was reused.
	Existing bool
}

// Format describes an available source stream.
type Format struct {
	Itag          int
	URL           string
	Quality       string
	MimeType      string
	Bitrate       int
	Size          int64
	AudioChannels int
}

// PlaylistInfo describes playlist-level metadata.
type PlaylistInfo struct {
	ID     string
	Title  string
	Author string
}
