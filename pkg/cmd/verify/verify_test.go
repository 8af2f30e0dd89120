package verify

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulekit/rulekit/pkg/config"
	"github.com/rulekit/rulekit/pkg/copier"
	"github.com/rulekit/rulekit/pkg/hasher"
	"github.com/rulekit/rulekit/pkg/validation"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

var defaultOptions = Options{}

// installed returns a config whose work directory already holds a correct copy
// of the bundle.
func installed(t *testing.T) config.Config {
	t.Helper()
	bundle := t.TempDir()
	work := t.TempDir()

	for _, root := range []string{bundle, work} {
		writeFile(t, filepath.Join(root, ".cursor", "rules", "foo.md"), "foo")
		writeFile(t, filepath.Join(root, ".tasks", "1-now", "task.md"), "task")
	}
	for _, bucket := range []string{"0-draft", "2-next", "3-later", "9-done"} {
		require.NoError(t, os.MkdirAll(filepath.Join(work, ".tasks", bucket), 0o755))
	}

	return config.Config{
		BundleDir: bundle,
		WorkDir:   work,
		Copier:    copier.Config{MaxConcurrentFiles: 2, BlockSize: 4096},
	}
}

func TestRun_Matches(t *testing.T) {
	conf := installed(t)
	// Extra files in the work directory are fine.
	writeFile(t, filepath.Join(conf.WorkDir, ".tasks", "2-next", "mine.md"), "mine")

	assert.NoError(t, Run(context.Background(), conf, defaultOptions, zerolog.Nop()))
}

func TestRun_WithRateLimits(t *testing.T) {
	conf := installed(t)
	opts := defaultOptions
	opts.TransferRateLimit = "100m"
	opts.FileRateLimit = "1k"

	assert.NoError(t, Run(context.Background(), conf, opts, zerolog.Nop()))
}

func TestRun_ModifiedFile(t *testing.T) {
	conf := installed(t)
	writeFile(t, filepath.Join(conf.WorkDir, ".cursor", "rules", "foo.md"), "changed")

	err := Run(context.Background(), conf, defaultOptions, zerolog.Nop())
	assert.True(t, errors.Is(err, hasher.ErrMismatch))
}

func TestRun_MissingFile(t *testing.T) {
	conf := installed(t)
	require.NoError(t, os.Remove(filepath.Join(conf.WorkDir, ".tasks", "1-now", "task.md")))

	err := Run(context.Background(), conf, defaultOptions, zerolog.Nop())
	assert.True(t, errors.Is(err, hasher.ErrMismatch))
}

func TestRun_MissingBucket(t *testing.T) {
	conf := installed(t)
	require.NoError(t, os.Remove(filepath.Join(conf.WorkDir, ".tasks", "9-done")))

	err := Run(context.Background(), conf, defaultOptions, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBucketsMissing))
	assert.Contains(t, err.Error(), "9-done")
}

func TestRun_MissingSource(t *testing.T) {
	conf := installed(t)
	require.NoError(t, os.RemoveAll(filepath.Join(conf.BundleDir, ".tasks")))

	err := Run(context.Background(), conf, defaultOptions, zerolog.Nop())
	assert.True(t, errors.Is(err, validation.ErrSourceNotFound))
}

func TestRun_InvalidOptions(t *testing.T) {
	conf := installed(t)

	opts := defaultOptions
	opts.TransferRateLimit = "fast"
	assert.Error(t, Run(context.Background(), conf, opts, zerolog.Nop()))

	conf.Copier.MaxConcurrentFiles = 0
	assert.Error(t, Run(context.Background(), conf, defaultOptions, zerolog.Nop()))
}

func runVerify(t *testing.T, args ...string) error {
	t.Helper()
	cmd := NewCommand(func() (*viper.Viper, error) { return config.New("") })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestCommand_ReadsSharedSettings(t *testing.T) {
	conf := installed(t)
	testChdir(t, conf.WorkDir)
	t.Setenv("RULEKIT_BUNDLE_DIR", conf.BundleDir)

	require.NoError(t, runVerify(t))

	// The same environment setup reads is honoured.
	t.Setenv("RULEKIT_BLOCK_SIZE", "lots")
	assert.Error(t, runVerify(t))

	// Flags win over the environment.
	assert.NoError(t, runVerify(t, "--block-size", "4k"))

	t.Setenv("RULEKIT_BLOCK_SIZE", "")
	t.Setenv("RULEKIT_CONCURRENT_FILES", "0")
	assert.Error(t, runVerify(t))
	assert.NoError(t, runVerify(t, "-c", "3"))
}
