package prettier

import (
	"context"
	"log/slog"
	"os/exec"
)

// Format runs prettier over the generated files. A missing or failing
// prettier only logs a warning.
func Format(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "npx", "--no-install", "prettier", "--write", ".")
	cmd.Dir = path
	output, err := cmd.CombinedOutput()
	if err != nil {
		slog.Warn("failed to run prettier", "error", err, "output", string(output))
	} else {
		slog.Info("formatted code with prettier", "path", path)
	}

	return nil
}
