// Package ytmp3 downloads every entry of a YouTube playlist and converts each
// one to an audio file.
//
// The package owns the job: configuration, the per-entry loop and its error
// policy, and the final report. Playlist enumeration, media retrieval and
// transcoding are delegated to a Backend (see the backend/ directory).
//
// Usage:
//
//	cfg := ytmp3.Default()
//	cfg.OutputDir = "music"
//	report, err := ytmp3.New(ytdlpcli.New(ytdlpcli.Options{})).Run(ctx, cfg)
package ytmp3
