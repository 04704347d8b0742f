//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/backend/kkdai"
	"github.com/ytget/ytmp3/backend/ytdlpcli"
	"github.com/ytget/ytmp3/backend/ytget"
	"github.com/ytget/ytmp3/internal/workdir"
)

// TestE2E_FirstEntry converts the first entry of a real playlist with each
// backend. It needs network access plus yt-dlp and ffmpeg on PATH.
func TestE2E_FirstEntry(t *testing.T) {
	if os.Getenv("YTMP3_E2E") == "" {
		t.Skip("YTMP3_E2E not set")
	}
	url := os.Getenv("YTMP3_E2E_URL")
	if url == "" {
		url = ytmp3.DefaultPlaylistURL
	}

	backends := map[string]ytmp3.Backend{
		"ytdlp": ytdlpcli.New(ytdlpcli.Options{}),
		"ytget": ytget.New(ytget.Options{}),
		"kkdai": kkdai.New(kkdai.Options{}),
	}
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			cfg := ytmp3.Default()
			cfg.PlaylistURL = url
			cfg.OutputDir = t.TempDir()
			cfg.Limit = 1
			cfg.ErrorPolicy = ytmp3.AbortOnError

			report, err := ytmp3.New(b).Run(ctx, cfg)
			require.NoError(t, err)
			require.Equal(t, 1, report.Succeeded)

			size, ok, err := workdir.Stat(report.Outputs[0].Path)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Positive(t, size)
		})
	}
}
