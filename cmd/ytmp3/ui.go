package main

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/huh/spinner"
	"github.com/dustin/go-humanize"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/types"
)

// printer writes one line per entry unless verbosity is quiet.
type printer struct {
	w         io.Writer
	verbosity ytmp3.Verbosity
}

func (p *printer) PlaylistResolved(total int) {
	if p.verbosity == ytmp3.Quiet {
		return
	}
	fmt.Fprintf(p.w, "Found %d entries\n", total)
}

func (p *printer) ItemStarted(item types.MediaItem, total int) {
	if p.verbosity == ytmp3.Quiet {
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s\n", item.Index, total, item.Title)
}

func (p *printer) ItemFinished(item types.MediaItem, out types.Output, err error) {
	if p.verbosity == ytmp3.Quiet {
		return
	}
	switch {
	case err != nil:
		fmt.Fprintf(p.w, "  failed: %v\n", err)
	case out.Existing:
		fmt.Fprintf(p.w, "  exists: %s\n", out.Path)
	default:
		fmt.Fprintf(p.w, "  saved: %s (%s)\n", out.Path, humanize.Bytes(uint64(out.Size)))
	}
}

// spinnerBackend shows a terminal spinner while each entry converts.
type spinnerBackend struct {
	ytmp3.Backend
}

func (b spinnerBackend) Open(ctx context.Context, cfg ytmp3.Config) (ytmp3.Session, error) {
	s, err := b.Backend.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return spinnerSession{s}, nil
}

type spinnerSession struct {
	ytmp3.Session
}

func (s spinnerSession) FetchAndTranscode(ctx context.Context, item types.MediaItem) (types.Output, error) {
	var out types.Output
	convert := func(ctx context.Context) error {
		var err error
		out, err = s.Session.FetchAndTranscode(ctx, item)
		return err
	}
	err := spinner.New().Title("Converting " + item.Title + "...").Context(ctx).ActionWithErr(convert).Run()
	return out, err
}
