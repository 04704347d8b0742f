package main

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/ytget/ytmp3"
	"github.com/ytget/ytmp3/internal/configfile"
	"github.com/ytget/ytmp3/internal/logger"
)

// logConfigFor parses args with the real flag set and returns the log
// configuration built against the YAML file body.
func logConfigFor(t *testing.T, yamlBody string, args ...string) *logger.LogConfig {
	t.Helper()
	t.Setenv("YTMP3_VERBOSITY", "")
	require.NoError(t, os.Unsetenv("YTMP3_VERBOSITY"))
	saved := lookupEnv
	lookupEnv = func(string) (string, bool) { return "", false }
	t.Cleanup(func() { lookupEnv = saved })

	file, err := configfile.Decode(strings.NewReader(yamlBody))
	require.NoError(t, err)

	var lc *logger.LogConfig
	cmd := &cli.Command{
		Name:  "ytmp3",
		Flags: flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := buildConfig(cmd, file)
			if err != nil {
				return err
			}
			lc = buildLogConfig(cmd, file, cfg.Verbosity)
			return nil
		},
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"ytmp3"}, args...)))
	require.NotNil(t, lc)
	return lc
}

func TestBuildLogConfig_VerbosityMapsLevel(t *testing.T) {
	tests := []struct {
		args  []string
		level string
	}{
		{nil, logger.DEBUG.String()},
		{[]string{"--verbosity", "normal"}, logger.INFO.String()},
		{[]string{"--verbosity", "quiet"}, logger.WARN.String()},
	}
	for _, tt := range tests {
		lc := logConfigFor(t, "", tt.args...)
		assert.Equal(t, tt.level, lc.Level, "args %v", tt.args)
	}
}

func TestBuildLogConfig_FileLevelWins(t *testing.T) {
	lc := logConfigFor(t, "log:\n  level: error\n")
	assert.Equal(t, "error", lc.Level)

	lc = logConfigFor(t, "verbosity: quiet\nlog:\n  level: debug\n")
	assert.Equal(t, "debug", lc.Level)
}

func TestBuildLogConfig_VerbosityFlagBeatsFileLevel(t *testing.T) {
	lc := logConfigFor(t, "log:\n  level: error\n", "--verbosity", "verbose")
	assert.Equal(t, logger.DEBUG.String(), lc.Level)
}

func TestBuildLogConfig_FileComponentsKept(t *testing.T) {
	body := "log:\n  components:\n    job: true\n    backend: false\n"
	lc := logConfigFor(t, body)
	assert.True(t, lc.Components["job"])
	assert.False(t, lc.Components["backend"])
	assert.Equal(t, logger.DEBUG.String(), lc.Level)

	lc = logConfigFor(t, body, "--verbosity", "verbose")
	for _, comp := range logger.AllComponents {
		assert.True(t, lc.Components[string(comp)], comp)
	}
}

func TestBuildLogConfig_LogLevelFlagWins(t *testing.T) {
	lc := logConfigFor(t, "log:\n  level: error\n", "--verbosity", "quiet", "--log-level", "trace")
	assert.Equal(t, "trace", lc.Level)
}

func TestBuildLogConfig_DoesNotMutateFile(t *testing.T) {
	file, err := configfile.Decode(strings.NewReader("log:\n  components:\n    backend: false\n"))
	require.NoError(t, err)
	cmd := &cli.Command{Name: "ytmp3", Flags: flags(), Action: func(_ context.Context, cmd *cli.Command) error {
		buildLogConfig(cmd, file, ytmp3.Verbose)
		return nil
	}}
	require.NoError(t, cmd.Run(context.Background(), []string{"ytmp3", "--verbosity", "verbose"}))
	assert.False(t, file.Log.Components["backend"])
}
