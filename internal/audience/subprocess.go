package audience

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pushmill/automation-engine/internal/logging"
	"go.uber.org/zap"
)

// stderrLimit bounds how much subprocess stderr is surfaced in error logs.
const stderrLimit = 2 * 1024

// ScriptResult is the raw outcome of a legacy subprocess generator run.
type ScriptResult struct {
	Success        bool
	Stdout         string
	Stderr         string
	GeneratedFiles []string
}

// SubprocessExecutor shells out to the legacy audience-generation scripts.
type SubprocessExecutor struct {
	scriptsDir string
	cadenceURL string
	logger     logging.Logger
}

// NewSubprocessExecutor creates an executor rooted at the scripts directory.
func NewSubprocessExecutor(scriptsDir, cadenceURL string, logger logging.Logger) *SubprocessExecutor {
	return &SubprocessExecutor{
		scriptsDir: scriptsDir,
		cadenceURL: cadenceURL,
		logger:     logger.With(zap.String("component", "subprocess_executor")),
	}
}

// ExecuteScript runs a generation script and captures both output streams.
// On failure, stdout and stderr are preserved in the result so the caller can
// surface them.
func (e *SubprocessExecutor) ExecuteScript(ctx context.Context, scriptID string, args []string, executionID string, dryRun bool) (ScriptResult, error) {
	script := filepath.Join(e.scriptsDir, scriptID)

	cmdArgs := append([]string{}, args...)
	if dryRun {
		cmdArgs = append(cmdArgs, "--dry-run")
	}

	cmd := exec.CommandContext(ctx, script, cmdArgs...)
	cmd.Env = append(os.Environ(),
		"EXECUTION_ID="+executionID,
		"CADENCE_SERVICE_URL="+e.cadenceURL,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ScriptResult{
		Success:        err == nil,
		Stdout:         stdout.String(),
		Stderr:         stderr.String(),
		GeneratedFiles: parseGeneratedFiles(stdout.String()),
	}

	if err != nil {
		e.logger.Error("audience script failed",
			zap.String("script_id", scriptID),
			zap.String("execution_id", executionID),
			zap.String("stderr", TruncateStderr(result.Stderr)),
			zap.Error(err),
		)
		return result, fmt.Errorf("script %s failed: %w", scriptID, err)
	}

	return result, nil
}

// parseGeneratedFiles picks up "GENERATED: <path>" markers emitted by scripts.
func parseGeneratedFiles(stdout string) []string {
	var files []string
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if path, ok := strings.CutPrefix(line, "GENERATED: "); ok && path != "" {
			files = append(files, path)
		}
	}
	return files
}

// TruncateStderr bounds stderr output to the surfacing limit.
func TruncateStderr(s string) string {
	if len(s) <= stderrLimit {
		return s
	}
	return s[:stderrLimit] + "... (truncated)"
}
