package root

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulekit/rulekit/pkg/validation"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func runRulekit(args ...string) (string, error) {
	cmd := NewCommand("test")

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String() + stderr.String(), err
}

func TestNoCommand_PrintsHelpAndFails(t *testing.T) {
	output, err := runRulekit()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCommandRequired))
	assert.Contains(t, output, "Usage:")
	assert.Contains(t, output, "setup")
}

func TestHelp_Succeeds(t *testing.T) {
	for _, flag := range []string{"--help", "-h"} {
		output, err := runRulekit(flag)
		require.NoError(t, err, flag)
		assert.Contains(t, output, "Usage:", flag)
	}
}

func TestVersion(t *testing.T) {
	output, err := runRulekit("--version")
	require.NoError(t, err)
	assert.Contains(t, output, "test")
}

func TestUnknownCommand_Fails(t *testing.T) {
	_, err := runRulekit("teardown")
	assert.Error(t, err)
}

func TestSetupThenVerify(t *testing.T) {
	bundle := t.TempDir()
	writeFile(t, filepath.Join(bundle, ".cursor", "rules", "foo.md"), "foo")
	writeFile(t, filepath.Join(bundle, ".cursor", "rules", "bar", "baz.md"), "baz")
	writeFile(t, filepath.Join(bundle, ".tasks", "1-now", "task.md"), "task")

	work := t.TempDir()
	testChdir(t, work)
	t.Setenv("RULEKIT_BUNDLE_DIR", bundle)

	output, err := runRulekit("setup")
	require.NoError(t, err, output)

	output, err = runRulekit("verify")
	require.NoError(t, err, output)

	writeFile(t, filepath.Join(work, ".cursor", "rules", "bar", "baz.md"), "tampered")
	_, err = runRulekit("verify")
	assert.Error(t, err)
}

func TestSetup_MissingBundleFails(t *testing.T) {
	work := t.TempDir()
	testChdir(t, work)
	t.Setenv("RULEKIT_BUNDLE_DIR", filepath.Join(t.TempDir(), "empty"))

	_, err := runRulekit("setup")
	require.Error(t, err)
	assert.True(t, errors.Is(err, validation.ErrSourceNotFound))
	assert.Contains(t, err.Error(), filepath.Join("empty", ".cursor", "rules"))
	assert.NoDirExists(t, filepath.Join(work, ".cursor"))
}

func TestSetup_ConfigFile(t *testing.T) {
	bundle := t.TempDir()
	writeFile(t, filepath.Join(bundle, ".cursor", "rules", "foo.md"), "foo")
	writeFile(t, filepath.Join(bundle, ".tasks", "README.md"), "readme")

	configFile := filepath.Join(t.TempDir(), "rulekit.yaml")
	writeFile(t, configFile, "bundle-dir: "+bundle+"\n")

	work := t.TempDir()
	testChdir(t, work)

	output, err := runRulekit("--config", configFile, "setup")
	require.NoError(t, err, output)
	assert.FileExists(t, filepath.Join(work, ".cursor", "rules", "foo.md"))
	assert.DirExists(t, filepath.Join(work, ".tasks", "0-draft"))
}
