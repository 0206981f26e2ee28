package junebench

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicCreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.txt")
	if err := writeFileAtomic(path, []byte("hello"), 0o640); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("content = %q, want %q", got, "hello")
	}

	entries, err := os.ReadDir(dir + "/sub")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := writeFileAtomic(path, []byte("first"), 0o640); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	if err := writeFileAtomic(path, []byte("second"), 0o640); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "second" {
		t.Fatalf("content = %q, want %q", got, "second")
	}
}

func TestWriteResultLayout(t *testing.T) {
	dir := t.TempDir()
	result := Result{TaskID: "task-1", Dataset: "humaneval", AttemptNumber: 2, Success: true}
	if err := WriteResult(dir, result); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	path := filepath.Join(dir, "humaneval", "task-1", "attempt-2", "result.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected result.json at %s: %v", path, err)
	}
	var got Result
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.TaskID != "task-1" || got.AttemptNumber != 2 {
		t.Fatalf("roundtripped result mismatch: %+v", got)
	}
}

func TestWriteReportLayout(t *testing.T) {
	dir := t.TempDir()
	report := Report{Dataset: "mbpp", ModelName: "test-model", TotalTasks: 5}
	if err := WriteReport(dir, report); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	path := filepath.Join(dir, "mbpp", "evaluation_report.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected evaluation_report.json: %v", err)
	}
}

func TestWriteCombinedReport(t *testing.T) {
	dir := t.TempDir()
	combined := CombinedReport{Timestamp: 100, Reports: []Report{{Dataset: "humaneval"}, {Dataset: "mbpp"}}}
	if err := WriteCombinedReport(dir, combined); err != nil {
		t.Fatalf("WriteCombinedReport: %v", err)
	}
	path := filepath.Join(dir, "combined_report.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected combined_report.json: %v", err)
	}
}
