package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// rotatedPattern matches codepencil logs other than the active file, such as
// codepencil-2025-01-01.log or codepencil.log.1.
const rotatedPattern = "codepencil*.log*"

// PruneLogDir removes rotated codepencil logs in dir whose modification time
// is older than retentionDays. The active log file is never removed and a
// non-positive retention disables pruning. It returns how many files went.
func PruneLogDir(logger *slog.Logger, dir string, retentionDays int) int {
	dir = strings.TrimSpace(dir)
	if dir == "" || retentionDays <= 0 {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, rotatedPattern))
	if err != nil {
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, path := range matches {
		if filepath.Base(path) == LogFileName {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on paths.log_dir"),
				String(FieldImpact, "the file stays on disk until the next prune"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
