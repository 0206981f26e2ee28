package junebench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EvaluatorConfig bundles everything RunDataset needs: where attempts live
// on disk, what drives the container runtime, what drives the model, and
// the budgets each attempt is held to.
type EvaluatorConfig struct {
	OutputDir     string
	Provider      Provider
	Backend       ContainerBackend
	Caps          Caps
	NumAttempts   int // default 1
	MaxIterations int // default defaultMaxIterations
	Timeout       time.Duration // per-attempt wall clock; 0 = no limit
	Workers       int           // bounded worker pool size; default 1
	Logger        *slog.Logger
	Tracer        Tracer
}

func (c EvaluatorConfig) withDefaults() EvaluatorConfig {
	if c.NumAttempts <= 0 {
		c.NumAttempts = 1
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// attemptWork is one (task, attempt) unit of work dispensed to the worker
// pool.
type attemptWork struct {
	task    Task
	attempt int
}

// RunDataset drives every (task, attempt) pair for one dataset through a
// bounded worker pool and returns every Result, in no particular order —
// Results carry all identifying fields so callers can regroup as needed.
func RunDataset(ctx context.Context, cfg EvaluatorConfig, tasks []Task) ([]Result, error) {
	cfg = cfg.withDefaults()

	work := make([]attemptWork, 0, len(tasks)*cfg.NumAttempts)
	for _, task := range tasks {
		for a := 1; a <= cfg.NumAttempts; a++ {
			work = append(work, attemptWork{task: task, attempt: a})
		}
	}

	results := make([]Result, len(work))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				item := work[i]
				results[i] = runAttempt(ctx, cfg, item.task, item.attempt)
				if err := WriteResult(cfg.OutputDir, results[i]); err != nil {
					cfg.Logger.Error("failed to write result artifact", "task_id", item.task.TaskID, "error", err)
				}
			}
		}()
	}

	for i := range work {
		if ctx.Err() != nil {
			close(jobs)
			wg.Wait()
			return results, ctx.Err()
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	return results, nil
}

// runAttempt executes the spec's per-task-per-attempt algorithm: provision
// and start a Sandbox, run the Coding Agent, extract and test the solution,
// and always clean up the Sandbox regardless of how the attempt ends.
func runAttempt(ctx context.Context, cfg EvaluatorConfig, task Task, attempt int) Result {
	start := time.Now()
	result := Result{TaskID: task.TaskID, Dataset: task.Dataset, AttemptNumber: attempt}

	attemptPath := filepath.Join(cfg.OutputDir, task.Dataset, task.TaskID, attemptLabel(attempt))
	workspaceDir := filepath.Join(attemptPath, "workspace")
	caps := cfg.Caps
	if caps.BaseImage == "" {
		caps = DefaultCaps()
	}

	sb, err := NewSandbox(task.TaskID, workspaceDir, caps, cfg.Backend, cfg.Logger)
	if err != nil {
		result.ErrorMessage = err.Error()
		result.ExecutionTimeSeconds = time.Since(start).Seconds()
		return result
	}
	defer sb.Cleanup(ctx, true)

	if err := sb.Start(ctx); err != nil {
		result.ErrorMessage = err.Error()
		result.ExecutionTimeSeconds = time.Since(start).Seconds()
		return result
	}

	initialFiles := snapshotFileTimes(sb.WorkspaceDir())

	outcome, err := runWithTimeout(ctx, cfg.Timeout, func(ctx context.Context) (AgentOutcome, error) {
		return RunCodingAgent(ctx, CodingAgentConfig{
			Provider:      cfg.Provider,
			Sandbox:       sb,
			MaxIterations: cfg.MaxIterations,
			Logger:        cfg.Logger,
			Tracer:        cfg.Tracer,
		}, task)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &ErrAttemptTimeout{TaskID: task.TaskID, Attempt: attempt, Timeout: cfg.Timeout}
		}
		result.ErrorMessage = err.Error()
		result.ExecutionTimeSeconds = time.Since(start).Seconds()
		result.SandboxMetrics = sb.MetricsSnapshot()
		return result
	}
	result.AgentIterations = outcome.Iterations

	suffix := task.LanguageSuffix
	if suffix == "" {
		suffix = "py"
	}
	solutionCode, hasSolution := extractSolution(sb.WorkspaceDir(), suffix)
	if hasSolution {
		result.SolutionCode = &solutionCode
		result.Success = true
	}

	if hasSolution && task.TestCode != "" {
		passed, errMsg := runTests(ctx, sb, solutionCode, task.TestCode, suffix)
		result.PassedTests = passed
		if !passed {
			result.ErrorMessage = errMsg
		}
	} else if hasSolution {
		result.PassedTests = true
	} else {
		result.ErrorMessage = "no solution code generated"
	}

	created, modified := diffFileTimes(initialFiles, snapshotFileTimes(sb.WorkspaceDir()))
	result.FilesCreated = created
	result.FilesModified = modified
	result.CommandsExecuted = sb.MetricsSnapshot().CommandsExecuted
	result.ExecutionTimeSeconds = time.Since(start).Seconds()
	result.SandboxMetrics = sb.MetricsSnapshot()

	return result
}

// runTests writes solution.<ext> and test_solution.<ext> into the
// workspace and runs the harness with a fixed test timeout, per the
// test-run protocol.
func runTests(ctx context.Context, sb *Sandbox, solutionCode, testCode, suffix string) (passed bool, errMsg string) {
	workspace := sb.WorkspaceDir()
	solutionPath := filepath.Join(workspace, "solution."+suffix)
	if err := os.WriteFile(solutionPath, []byte(solutionCode), 0o640); err != nil {
		return false, fmt.Sprintf("failed to write solution file: %v", err)
	}

	harness := solutionCode + "\n\n" + testCode
	testPath := filepath.Join(workspace, "test_solution."+suffix)
	if err := os.WriteFile(testPath, []byte(harness), 0o640); err != nil {
		return false, fmt.Sprintf("failed to write test harness: %v", err)
	}

	interpreter, ok := interpreterFor(suffix)
	if !ok {
		return false, fmt.Sprintf("no test runner configured for language suffix %q", suffix)
	}

	const testTimeout = 30 * time.Second
	res, err := sb.ExecuteCommand(ctx, fmt.Sprintf("%s test_solution.%s", interpreter, suffix), "/workspace", testTimeout)
	if err != nil {
		return false, err.Error()
	}
	if res.TimedOut {
		return false, "test run timed out"
	}
	if res.ReturnCode == 0 {
		return true, ""
	}
	if res.Stderr != "" {
		return false, res.Stderr
	}
	return false, res.Stdout
}

func interpreterFor(suffix string) (string, bool) {
	switch suffix {
	case "py":
		return "python3", true
	case "js":
		return "node", true
	default:
		return "", false
	}
}

// snapshotFileTimes walks dir and records the modification time of every
// regular file, keyed by absolute path. Used to diff files created/modified
// by the agent against the state before it ran.
func snapshotFileTimes(dir string) map[string]time.Time {
	times := map[string]time.Time{}
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		times[path] = info.ModTime()
		return nil
	})
	return times
}

func diffFileTimes(before, after map[string]time.Time) (created, modified int) {
	for path, mtime := range after {
		prev, existed := before[path]
		if !existed {
			created++
		} else if mtime.After(prev) {
			modified++
		}
	}
	return created, modified
}
