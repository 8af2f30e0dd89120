package hasher

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/rulekit/rulekit/pkg/lister"
)

func pair(t *testing.T, dir, name, src, dst string, writeDst bool) lister.File {
	t.Helper()
	srcPath := filepath.Join(dir, "src-"+name)
	dstPath := filepath.Join(dir, "dst-"+name)
	require.NoError(t, os.WriteFile(srcPath, []byte(src), 0o644))
	if writeDst {
		require.NoError(t, os.WriteFile(dstPath, []byte(dst), 0o644))
	}
	info, err := os.Stat(srcPath)
	require.NoError(t, err)
	return lister.File{SourcePath: srcPath, DestinationPath: dstPath, FileInfo: info}
}

func run(t *testing.T, h *Hasher, files ...lister.File) error {
	t.Helper()
	ch := make(chan lister.File, len(files))
	for _, f := range files {
		ch <- f
	}
	close(ch)
	return h.Start(context.Background(), ch, nil, rate.NewLimiter(rate.Inf, 1))
}

func TestHashOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	got, err := HashOne(context.Background(), make([]byte, 2), path, nil, nil)
	require.NoError(t, err)

	want := sha256.Sum256([]byte("hello"))
	assert.Equal(t, want[:], got)
}

func TestHasher_AllMatch(t *testing.T) {
	dir := t.TempDir()
	h := New(Config{ConcurrentFiles: 2, BlockSize: 16}, zerolog.Nop())

	err := run(t, h,
		pair(t, dir, "a", "same", "same", true),
		pair(t, dir, "b", "", "", true),
	)
	require.NoError(t, err)
	assert.Equal(t, int64(4), h.Stats().FilesHashed)
	assert.Equal(t, int64(8), h.Stats().BytesHashed)
}

func TestHasher_ReportsEveryMismatch(t *testing.T) {
	dir := t.TempDir()
	h := New(Config{ConcurrentFiles: 1, BlockSize: 16}, zerolog.Nop())

	err := run(t, h,
		pair(t, dir, "a", "source", "changed", true),
		pair(t, dir, "b", "source", "", false),
		pair(t, dir, "c", "same", "same", true),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMismatch))
	assert.Equal(t, int64(2), h.Stats().Mismatched)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{ConcurrentFiles: 1}.Validate())
	assert.Error(t, Config{BlockSize: 1}.Validate())
	assert.NoError(t, Config{ConcurrentFiles: 1, BlockSize: 1}.Validate())
}
