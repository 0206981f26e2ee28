package junebench

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// humanEvalRecord mirrors one JSONL line of OpenAI's HumanEval dataset.
type humanEvalRecord struct {
	TaskID            string `json:"task_id"`
	Prompt            string `json:"prompt"`
	CanonicalSolution string `json:"canonical_solution"`
	Test              string `json:"test"`
	EntryPoint        string `json:"entry_point"`
}

// mbppRecord mirrors one element of MBPP's JSON array. Some MBPP releases
// key records by "id" instead of "task_id"; both are accepted, preferring
// TaskID when both are present.
type mbppRecord struct {
	TaskID   json.Number `json:"task_id"`
	ID       json.Number `json:"id"`
	Text     string      `json:"text"`
	Code     string      `json:"code"`
	TestList []string    `json:"test_list"`
}

// LoadHumanEval parses a HumanEval JSONL file into Tasks. Malformed lines
// are logged and skipped rather than aborting the load.
func LoadHumanEval(path string, logger *slog.Logger) ([]Task, error) {
	logger = loggerOrDefault(logger)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open humaneval dataset %s: %w", path, err)
	}
	defer f.Close()

	var tasks []Task
	scanner := bufio.NewScanner(sanitizingReader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec humanEvalRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			parseErr := &ErrDatasetParse{Source: path, Line: lineNum, Cause: err}
			logger.Warn("skipping malformed humaneval line", "error", parseErr)
			continue
		}
		if rec.TaskID == "" || rec.Prompt == "" {
			parseErr := &ErrDatasetParse{Source: path, Line: lineNum, Cause: fmt.Errorf("missing task_id or prompt")}
			logger.Warn("skipping incomplete humaneval line", "error", parseErr)
			continue
		}
		tasks = append(tasks, Task{
			TaskID:            "humaneval_" + rec.TaskID,
			Dataset:           "humaneval",
			Prompt:            rec.Prompt,
			CanonicalSolution: rec.CanonicalSolution,
			TestCode:          rec.Test,
			EntryPoint:        rec.EntryPoint,
			LanguageSuffix:    "py",
			Metadata: map[string]any{
				"original_task_id": rec.TaskID,
				"line_number":      lineNum,
			},
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read humaneval dataset %s: %w", path, err)
	}
	logger.Info("loaded dataset", "dataset", "humaneval", "tasks", len(tasks))
	return tasks, nil
}

// LoadMBPP parses an MBPP JSON-array file into Tasks. Malformed records are
// logged and skipped rather than aborting the load.
func LoadMBPP(path string, logger *slog.Logger) ([]Task, error) {
	logger = loggerOrDefault(logger)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbpp dataset %s: %w", path, err)
	}
	defer f.Close()

	var raw []json.RawMessage
	dec := json.NewDecoder(sanitizingReader(f))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("read mbpp dataset %s: %w", path, err)
	}

	var tasks []Task
	for i, item := range raw {
		var rec mbppRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			parseErr := &ErrDatasetParse{Source: path, Line: i, Cause: err}
			logger.Warn("skipping malformed mbpp record", "error", parseErr)
			continue
		}
		taskID := rec.TaskID.String()
		if taskID == "" {
			taskID = rec.ID.String()
		}
		if taskID == "" || rec.Text == "" {
			parseErr := &ErrDatasetParse{Source: path, Line: i, Cause: fmt.Errorf("missing task_id or text")}
			logger.Warn("skipping incomplete mbpp record", "error", parseErr)
			continue
		}
		var testCode string
		if len(rec.TestList) > 0 {
			testCode = strings.Join(rec.TestList, "\n")
		}
		tasks = append(tasks, Task{
			TaskID:            "mbpp_" + taskID,
			Dataset:           "mbpp",
			Prompt:            rec.Text,
			CanonicalSolution: rec.Code,
			TestCode:          testCode,
			LanguageSuffix:    "py",
			Metadata: map[string]any{
				"original_task_id": taskID,
				"test_count":       len(rec.TestList),
			},
		})
	}
	logger.Info("loaded dataset", "dataset", "mbpp", "tasks", len(tasks))
	return tasks, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// sanitizingReader wraps r so a stray UTF-16 BOM or otherwise
// non-UTF-8-clean dataset file (both formats have shipped with one in the
// wild) decodes instead of producing a parse error on the first record.
func sanitizingReader(r *os.File) *transform.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}
