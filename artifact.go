package junebench

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// writeFileAtomic writes data to path by writing to a sibling temp file and
// renaming over the destination, so a reader never observes a partial file
// and a crash mid-write never corrupts an existing artifact.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// writeJSONAtomic marshals v and writes it atomically to path, wrapping any
// failure as an ErrArtifactWrite.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &ErrArtifactWrite{Path: path, Cause: err}
	}
	if err := writeFileAtomic(path, data, 0o640); err != nil {
		return &ErrArtifactWrite{Path: path, Cause: err}
	}
	return nil
}

// attemptDir is <out>/<dataset>/<task_id>/attempt-<k>.
func attemptDir(outDir, dataset, taskID string, attempt int) string {
	return filepath.Join(outDir, dataset, taskID, attemptLabel(attempt))
}

func attemptLabel(attempt int) string {
	return "attempt-" + strconv.Itoa(attempt)
}

// WriteResult writes result.json for one attempt under its attempt directory.
func WriteResult(outDir string, result Result) error {
	dir := attemptDir(outDir, result.Dataset, result.TaskID, result.AttemptNumber)
	return writeJSONAtomic(filepath.Join(dir, "result.json"), result)
}

// WriteReport writes evaluation_report.json for one dataset.
func WriteReport(outDir string, report Report) error {
	path := filepath.Join(outDir, report.Dataset, "evaluation_report.json")
	return writeJSONAtomic(path, report)
}

// CombinedReport is the top-level summary written when more than one
// dataset is evaluated in a single run.
type CombinedReport struct {
	Timestamp int64    `json:"timestamp"`
	Reports   []Report `json:"reports"`
}

// WriteCombinedReport writes combined_report.json at the run's output root.
// Callers should only call this when len(reports) > 1.
func WriteCombinedReport(outDir string, combined CombinedReport) error {
	path := filepath.Join(outDir, "combined_report.json")
	return writeJSONAtomic(path, combined)
}
