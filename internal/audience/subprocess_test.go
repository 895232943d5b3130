package audience

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
}

func newTestExecutor(t *testing.T) (*SubprocessExecutor, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not runnable on windows")
	}
	dir := t.TempDir()
	return NewSubprocessExecutor(dir, "http://cadence.local", logging.NewNoOpLogger()), dir
}

func TestExecuteScript_CapturesOutputAndGeneratedFiles(t *testing.T) {
	executor, dir := newTestExecutor(t)
	writeScript(t, dir, "winback", `
echo "loading audience"
echo "GENERATED: /tmp/audience_main.csv"
echo "GENERATED: /tmp/audience_test.csv"
`)

	result, err := executor.ExecuteScript(context.Background(), "winback", nil, "exec-1", false)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Stdout, "loading audience")
	assert.Equal(t, []string{"/tmp/audience_main.csv", "/tmp/audience_test.csv"}, result.GeneratedFiles)
}

func TestExecuteScript_PassesEnvironmentAndFlags(t *testing.T) {
	executor, dir := newTestExecutor(t)
	writeScript(t, dir, "envcheck", `
echo "execution=$EXECUTION_ID cadence=$CADENCE_SERVICE_URL args=$*"
`)

	result, err := executor.ExecuteScript(context.Background(), "envcheck", []string{"--lookback-hours=72"}, "exec-9", true)

	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "execution=exec-9")
	assert.Contains(t, result.Stdout, "cadence=http://cadence.local")
	assert.Contains(t, result.Stdout, "--lookback-hours=72")
	assert.Contains(t, result.Stdout, "--dry-run", "dry runs must pass the flag through")
}

func TestExecuteScript_FailurePreservesStderr(t *testing.T) {
	executor, dir := newTestExecutor(t)
	writeScript(t, dir, "broken", `
echo "partial output"
echo "query timed out" >&2
exit 3
`)

	result, err := executor.ExecuteScript(context.Background(), "broken", nil, "exec-2", false)

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Stdout, "partial output")
	assert.Contains(t, result.Stderr, "query timed out")
}

func TestExecuteScript_MissingScriptFails(t *testing.T) {
	executor, _ := newTestExecutor(t)

	result, err := executor.ExecuteScript(context.Background(), "does-not-exist", nil, "exec-3", false)

	require.Error(t, err)
	assert.False(t, result.Success)
}

func TestTruncateStderr(t *testing.T) {
	short := "just a short message"
	assert.Equal(t, short, TruncateStderr(short))

	long := strings.Repeat("x", stderrLimit+100)
	truncated := TruncateStderr(long)
	assert.Len(t, truncated, stderrLimit+len("... (truncated)"))
	assert.True(t, strings.HasSuffix(truncated, "... (truncated)"))
}

func TestParseGeneratedFiles_IgnoresNoise(t *testing.T) {
	stdout := "starting\nGENERATED: /a.csv\nGENERATED:\nnot a marker\n  GENERATED: /b.csv  \n"

	files := parseGeneratedFiles(stdout)

	assert.Equal(t, []string{"/a.csv", "/b.csv"}, files)
}
