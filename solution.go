package junebench

import (
	"os"
	"path/filepath"
	"strings"
)

// extractSolution scans the workspace for the most recently modified file
// whose name ends in "."+suffix and returns its contents. It ignores
// everything under snapshots/ (the sandbox's own bookkeeping) so a prior
// cleanup pass never shadows the model's real output. Returns ("", false)
// if no matching file exists.
func extractSolution(workspaceDir, suffix string) (string, bool) {
	if suffix == "" {
		return "", false
	}
	want := "." + suffix

	var bestPath string
	var bestMod int64
	filepath.Walk(workspaceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if info.Name() == "snapshots" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, want) {
			return nil
		}
		if mod := info.ModTime().UnixNano(); bestPath == "" || mod > bestMod {
			bestPath = path
			bestMod = mod
		}
		return nil
	})

	if bestPath == "" {
		return "", false
	}
	content, err := os.ReadFile(bestPath)
	if err != nil {
		return "", false
	}
	return string(content), true
}
