package writer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// WriteOutput writes every file under outputPath. Keys may contain slashes.
func WriteOutput(ctx context.Context, files map[string]string, outputPath string) error {
	// Create base directory
	err := os.MkdirAll(outputPath, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		outputFilePath := filepath.Join(outputPath, filepath.FromSlash(name))

		// Create subdirectory if needed
		err = os.MkdirAll(filepath.Dir(outputFilePath), 0o755)
		if err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}

		err = os.WriteFile(outputFilePath, []byte(files[name]), 0o644)
		if err != nil {
			return fmt.Errorf("failed to write file %s: %w", name, err)
		}
		slog.Info("generated file", "path", outputFilePath)
	}

	slog.Info("client generation completed", "files", len(names), "output", outputPath)
	return nil
}
