package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/errs"
	"github.com/ytget/ytmp3/types"
)

type fakeBackend struct {
	items      []types.MediaItem
	fail       map[string]error
	resolveErr error
	openErr    error
	opened     int
}

func (b *fakeBackend) Open(ctx context.Context, cfg ytmp3.Config) (ytmp3.Session, error) {
	b.opened++
	if b.openErr != nil {
		return nil, b.openErr
	}
	return &fakeSession{b: b, cfg: cfg}, nil
}

type fakeSession struct {
	b   *fakeBackend
	cfg ytmp3.Config
}

func (s *fakeSession) ResolvePlaylist(ctx context.Context, playlistURL string) ([]types.MediaItem, error) {
	return s.b.items, s.b.resolveErr
}

func (s *fakeSession) FetchAndTranscode(ctx context.Context, item types.MediaItem) (types.Output, error) {
	if err := s.b.fail[item.ID]; err != nil {
		return types.Output{}, err
	}
	path, err := s.cfg.OutputPath(item)
	if err != nil {
		return types.Output{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return types.Output{}, err
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return types.Output{}, err
	}
	return types.Output{Path: path, Size: 5}, nil
}

func (s *fakeSession) Close() error { return nil }

func twoItems() []types.MediaItem {
	return []types.MediaItem{
		{ID: "aaaaaaaaaaa", Title: "First Song", Index: 1},
		{ID: "bbbbbbbbbbb", Title: "Second Song", Index: 2},
	}
}

// isolate keeps the user's config files out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_CONFIG_DIRS", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
}

type harness struct {
	app    *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	opts   backendOptions
}

func newHarness(t *testing.T, b ytmp3.Backend) *harness {
	isolate(t)
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	h.app = &app{
		stdout: h.stdout,
		stderr: h.stderr,
		newBackend: func(o backendOptions) (ytmp3.Backend, error) {
			h.opts = o
			return b, nil
		},
	}
	return h
}

func (h *harness) run(args ...string) int {
	full := append([]string{"ytmp3", "--log-output", "null"}, args...)
	return h.app.run(context.Background(), full)
}

func TestRun_Success(t *testing.T) {
	out := t.TempDir()
	b := &fakeBackend{items: twoItems()}
	h := newHarness(t, b)

	code := h.run("--output-dir", out)

	require.Equal(t, exitOK, code, h.stderr.String())
	stdout := h.stdout.String()
	assert.Contains(t, stdout, "Downloading music from YouTube playlist...\n")
	assert.Contains(t, stdout, "Files will be saved as MP3 at 320kbps\n")
	assert.Contains(t, stdout, "[1/2] First Song\n")
	assert.Contains(t, stdout, "Done: 2 attempted, 2 succeeded, 0 skipped\n")
	assert.FileExists(t, filepath.Join(out, "First Song.mp3"))
	assert.FileExists(t, filepath.Join(out, "Second Song.mp3"))
	assert.Equal(t, backendYtDlp, h.opts.Name)
}

func TestRun_SkipAbsorbsFailures(t *testing.T) {
	b := &fakeBackend{
		items: twoItems(),
		fail:  map[string]error{"aaaaaaaaaaa": errs.ErrVideoUnavailable},
	}
	h := newHarness(t, b)

	code := h.run("--output-dir", t.TempDir())

	assert.Equal(t, exitOK, code)
	assert.Contains(t, h.stdout.String(), "Done: 2 attempted, 1 succeeded, 1 skipped\n")
	assert.Contains(t, h.stdout.String(), "  failed: ")
}

func TestRun_AbortOnError(t *testing.T) {
	b := &fakeBackend{
		items: twoItems(),
		fail:  map[string]error{"aaaaaaaaaaa": errs.ErrVideoUnavailable},
	}
	h := newHarness(t, b)

	code := h.run("--output-dir", t.TempDir(), "--error-policy", "abort")

	assert.Equal(t, exitItem, code)
	assert.Contains(t, h.stdout.String(), "Done: 1 attempted, 0 succeeded, 0 skipped\n")
	assert.Contains(t, h.stderr.String(), "Error: ")
}

func TestRun_PlaylistResolutionFails(t *testing.T) {
	b := &fakeBackend{resolveErr: errs.ErrPrivate}
	h := newHarness(t, b)

	code := h.run("--output-dir", t.TempDir())

	assert.Equal(t, exitPlaylist, code)
	assert.NotContains(t, h.stdout.String(), "Done:")
}

func TestRun_MalformedPlaylistURL(t *testing.T) {
	b := &fakeBackend{items: twoItems()}
	h := newHarness(t, b)

	code := h.run("--output-dir", t.TempDir(), "https://example.com/nothing")

	assert.Equal(t, exitPlaylist, code)
	assert.Zero(t, b.opened)
	assert.Contains(t, h.stderr.String(), "example.com")
	assert.NotContains(t, h.stdout.String(), "Done:")
}

func TestRun_InvalidQuality(t *testing.T) {
	b := &fakeBackend{items: twoItems()}
	h := newHarness(t, b)

	code := h.run("--audio-quality", "100")

	assert.Equal(t, exitUsage, code)
	assert.Zero(t, b.opened)
	assert.NotContains(t, h.stdout.String(), "Downloading music")
	assert.Contains(t, h.stderr.String(), "audio quality")
}

func TestRun_TooManyArguments(t *testing.T) {
	b := &fakeBackend{}
	h := newHarness(t, b)

	code := h.run("PLr1-EhgV88FW2V3LcaQWQ2YH9pow-Gpoz", "extra")

	assert.Equal(t, exitUsage, code)
	assert.Zero(t, b.opened)
}

func TestRun_UnknownFlag(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	assert.Equal(t, exitUsage, h.run("--no-such-flag"))
}

func TestRun_OpenFailureIsUnexpected(t *testing.T) {
	b := &fakeBackend{openErr: errors.New("boom")}
	h := newHarness(t, b)

	code := h.run("--output-dir", t.TempDir())

	assert.Equal(t, exitUnexpected, code)
	assert.Contains(t, h.stderr.String(), "boom")
}

func TestRun_OutputDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	b := &fakeBackend{items: twoItems()}
	h := newHarness(t, b)

	code := h.run("--output-dir", file)

	assert.Equal(t, exitFilesystem, code)
	assert.Zero(t, b.opened)
}

func TestRun_QuietPrintsBannersAndSummaryOnly(t *testing.T) {
	b := &fakeBackend{items: twoItems()}
	h := newHarness(t, b)

	code := h.run("--output-dir", t.TempDir(), "--verbosity", "quiet")

	require.Equal(t, exitOK, code)
	assert.Equal(t,
		"Downloading music from YouTube playlist...\n"+
			"Files will be saved as MP3 at 320kbps\n"+
			"Done: 2 attempted, 2 succeeded, 0 skipped\n",
		h.stdout.String())
}

func TestRun_ConfigFileThenFlags(t *testing.T) {
	dir := t.TempDir()
	fileDir := filepath.Join(dir, "from-file")
	flagDir := filepath.Join(dir, "from-flag")
	config := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(config, []byte(fmt.Sprintf(`
audio_format: flac
audio_quality: 0
output_dir: %s
backend: kkdai
proxy: http://proxy.local:3128
`, fileDir)), 0o644))

	b := &fakeBackend{items: twoItems()}
	h := newHarness(t, b)

	code := h.run("--config", config, "--output-dir", flagDir, "--proxy", "socks5://127.0.0.1:1080")

	require.Equal(t, exitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Files will be saved as FLAC (lossless)\n")
	assert.FileExists(t, filepath.Join(flagDir, "First Song.flac"))
	assert.NoDirExists(t, fileDir)
	assert.Equal(t, backendKkdai, h.opts.Name)
	assert.Equal(t, "socks5://127.0.0.1:1080", h.opts.Proxy)
}

func TestRun_EnvironmentVariables(t *testing.T) {
	b := &fakeBackend{items: twoItems()}
	h := newHarness(t, b)
	t.Setenv("YTMP3_LIMIT", "1")
	t.Setenv("YTMP3_OUTPUT_DIR", t.TempDir())

	code := h.run()

	require.Equal(t, exitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Done: 1 attempted, 1 succeeded, 0 skipped\n")
}

func TestRun_MissingConfigFile(t *testing.T) {
	h := newHarness(t, &fakeBackend{})
	code := h.run("--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, exitUsage, code)
}

func TestNewBackend(t *testing.T) {
	for _, name := range []string{"", backendYtDlp, "yt-dlp", backendYtGet, backendKkdai} {
		b, err := newBackend(backendOptions{Name: name})
		require.NoError(t, err, name)
		assert.NotNil(t, b, name)
	}

	_, err := newBackend(backendOptions{Name: "vlc"})
	assert.True(t, errs.IsConfig(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"config", &errs.ConfigError{Field: "audio quality", Err: errors.New("bad")}, exitUsage},
		{"filesystem", &errs.FilesystemError{Op: "mkdir", Path: "/x", Err: errors.New("denied")}, exitFilesystem},
		{"playlist", &errs.PlaylistResolutionError{URL: "u", Err: errs.ErrPrivate}, exitPlaylist},
		{"item", &errs.ItemFetchError{Index: 1, Err: errs.ErrPrivate}, exitItem},
		{"unexpected", &unexpectedError{err: errors.New("boom")}, exitUnexpected},
		{"usage", errors.New("flag provided but not defined"), exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
