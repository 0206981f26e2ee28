package junebench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SandboxState is one point in a Sandbox's provisioned -> running -> stopped
// -> released lifecycle. No code path may execute a command once released.
type SandboxState int

const (
	SandboxProvisioned SandboxState = iota
	SandboxRunning
	SandboxStopped
	SandboxReleased
)

func (s SandboxState) String() string {
	switch s {
	case SandboxProvisioned:
		return "provisioned"
	case SandboxRunning:
		return "running"
	case SandboxStopped:
		return "stopped"
	case SandboxReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Caps bounds the resources a Sandbox's container may consume.
type Caps struct {
	BaseImage       string
	MaxMemory       string  // e.g. "2g", passed straight to the backend
	MaxCPU          float64 // fractional CPUs, e.g. 1.0
	NetworkDisabled bool
}

// DefaultCaps mirrors the reference evaluator's defaults: a minimal Python
// interpreter image, 2GiB memory, one CPU, network disabled.
func DefaultCaps() Caps {
	return Caps{
		BaseImage:       "python:3.11-slim",
		MaxMemory:       "2g",
		MaxCPU:          1.0,
		NetworkDisabled: true,
	}
}

// Metrics accumulates everything observed about one Sandbox's lifetime.
type Metrics struct {
	TaskID           string  `json:"task_id"`
	StartTime        float64 `json:"start_time"`
	EndTime          float64 `json:"end_time,omitempty"`
	CommandsExecuted int     `json:"commands_executed"`
	FilesCreated     int     `json:"files_created"`
	FilesModified    int     `json:"files_modified"`
	TotalCPUTime     float64 `json:"total_cpu_time"`
	PeakMemoryMB     float64 `json:"peak_memory_mb"`
	DiskIOBytes      int64   `json:"disk_io_bytes"`
	NetworkRequests  int     `json:"network_requests"`
	Iterations       int     `json:"iterations"`
	Success          bool    `json:"success"`
	ErrorMessage     string  `json:"error_message,omitempty"`
}

// DurationSeconds is EndTime - StartTime, or 0 if the sandbox never stopped.
func (m Metrics) DurationSeconds() float64 {
	if m.EndTime == 0 {
		return 0
	}
	return m.EndTime - m.StartTime
}

// CommandRecord logs one execute_command call, successful or not.
type CommandRecord struct {
	Timestamp        float64 `json:"timestamp"`
	Command          string  `json:"command"`
	WorkingDirectory string  `json:"working_directory"`
	ReturnCode       int     `json:"returncode"`
	Stdout           string  `json:"stdout"`
	Stderr           string  `json:"stderr"`
	DurationSeconds  float64 `json:"duration_seconds"`
	TimedOut         bool    `json:"timed_out,omitempty"`
}

// ExecResult is what ExecuteCommand returns to its caller.
type ExecResult struct {
	Stdout          string
	Stderr          string
	ReturnCode      int
	DurationSeconds float64
	TimedOut        bool
}

// ContainerBackend is the container runtime primitive a Sandbox drives. It
// exists so production code (runtime/docker) and tests (an in-memory fake)
// can share one Sandbox implementation.
type ContainerBackend interface {
	// Create removes any stale container with the same name, then creates
	// (but does not start) a fresh one bind-mounting hostWorkspace at
	// /workspace, with the given caps applied. Returns a backend-defined
	// container ID.
	Create(ctx context.Context, name, hostWorkspace string, caps Caps) (containerID string, err error)
	Start(ctx context.Context, containerID string) error
	// Exec runs cmd inside the container's workdir, returning with TimedOut
	// set once timeout elapses, and always returns a result rather than an
	// error for in-container failures (non-zero exit, timeout).
	Exec(ctx context.Context, containerID, cmd, workdir string, timeout time.Duration) (ExecResult, error)
	// Archive returns a tar stream of path inside the container.
	Archive(ctx context.Context, containerID, path string) (io.ReadCloser, error)
	Stop(ctx context.Context, containerID string, grace time.Duration) error
	Remove(ctx context.Context, containerID string) error
}

// Sandbox is one isolated, resource-capped container hosting all
// tool-initiated execution for a single attempt.
type Sandbox struct {
	taskID        string
	workspaceDir  string
	containerName string
	caps          Caps
	backend       ContainerBackend
	logger        *slog.Logger

	state       SandboxState
	containerID string

	metrics    Metrics
	commandLog []CommandRecord
}

// NewSandbox provisions workspaceDir (mkdir -p) and returns a Sandbox bound
// to it, ready for Start. No container exists yet. taskID identifies the
// sandbox for metrics and container naming; it need not equal
// filepath.Base(workspaceDir).
func NewSandbox(taskID, workspaceDir string, caps Caps, backend ContainerBackend, logger *slog.Logger) (*Sandbox, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(workspaceDir, 0o750); err != nil {
		return nil, &ErrSandboxProvision{TaskID: taskID, Cause: err}
	}
	return &Sandbox{
		taskID:        taskID,
		workspaceDir:  workspaceDir,
		containerName: "junebench-sandbox-" + taskID,
		caps:          caps,
		backend:       backend,
		logger:        logger.With("task_id", taskID),
		state:         SandboxProvisioned,
		metrics: Metrics{
			TaskID:    taskID,
			StartTime: float64(time.Now().UnixNano()) / 1e9,
		},
	}, nil
}

// WorkspaceDir is the host directory bind-mounted at /workspace.
func (s *Sandbox) WorkspaceDir() string { return s.workspaceDir }

// State reports the current lifecycle state.
func (s *Sandbox) State() SandboxState { return s.state }

// Start launches a fresh container from s.caps.BaseImage, bind-mounting the
// workspace read-write at /workspace, with memory/CPU/network caps applied.
// Requires SandboxProvisioned.
func (s *Sandbox) Start(ctx context.Context) error {
	if s.state != SandboxProvisioned {
		return fmt.Errorf("sandbox %s: start requires provisioned, have %s", s.taskID, s.state)
	}
	id, err := s.backend.Create(ctx, s.containerName, s.workspaceDir, s.caps)
	if err != nil {
		return &ErrSandboxProvision{TaskID: s.taskID, Cause: err}
	}
	s.containerID = id
	if err := s.backend.Start(ctx, id); err != nil {
		return &ErrSandboxProvision{TaskID: s.taskID, Cause: err}
	}
	s.state = SandboxRunning
	s.logger.Info("sandbox started", "container", s.containerName)
	return nil
}

// ExecuteCommand runs cmd in the container, logging the attempt regardless
// of outcome. Requires SandboxRunning.
func (s *Sandbox) ExecuteCommand(ctx context.Context, cmd, workdir string, timeout time.Duration) (ExecResult, error) {
	if s.state != SandboxRunning {
		return ExecResult{}, fmt.Errorf("sandbox %s: execute_command requires running, have %s", s.taskID, s.state)
	}
	if workdir == "" {
		workdir = "/workspace"
	}
	start := time.Now()
	res, err := s.backend.Exec(ctx, s.containerID, cmd, workdir, timeout)
	duration := time.Since(start).Seconds()

	record := CommandRecord{
		Timestamp:        float64(start.UnixNano()) / 1e9,
		Command:          cmd,
		WorkingDirectory: workdir,
		DurationSeconds:  duration,
	}
	if err != nil {
		record.ReturnCode = -1
		record.Stderr = err.Error()
		s.commandLog = append(s.commandLog, record)
		s.metrics.CommandsExecuted++
		return ExecResult{ReturnCode: -1, Stderr: err.Error(), DurationSeconds: duration}, nil
	}

	if res.TimedOut {
		res.ReturnCode = -1
	}
	record.ReturnCode = res.ReturnCode
	record.Stdout = res.Stdout
	record.Stderr = res.Stderr
	record.TimedOut = res.TimedOut
	s.commandLog = append(s.commandLog, record)
	s.metrics.CommandsExecuted++
	res.DurationSeconds = duration
	return res, nil
}

// SnapshotFilesystem writes a tarball of /workspace under
// workspaceDir/snapshots/<name>/filesystem.tar, falling back to copying the
// host-side workspace directory if the container export fails. Non-fatal:
// failures are logged, never returned.
func (s *Sandbox) SnapshotFilesystem(ctx context.Context, name string) string {
	snapshotDir := filepath.Join(s.workspaceDir, "snapshots", name)
	if err := os.MkdirAll(snapshotDir, 0o750); err != nil {
		s.logger.Error("snapshot mkdir failed", "error", err)
		return snapshotDir
	}

	if s.containerID != "" {
		if rc, err := s.backend.Archive(ctx, s.containerID, "/workspace"); err == nil {
			defer rc.Close()
			tarPath := filepath.Join(snapshotDir, "filesystem.tar")
			f, err := os.Create(tarPath)
			if err == nil {
				_, copyErr := io.Copy(f, rc)
				f.Close()
				if copyErr == nil {
					s.logger.Info("filesystem snapshot created", "snapshot", name)
					return snapshotDir
				}
				s.logger.Error("snapshot copy failed", "error", copyErr)
			} else {
				s.logger.Error("snapshot file create failed", "error", err)
			}
		} else {
			s.logger.Warn("snapshot archive failed, falling back to host copy", "error", err)
		}
	}

	if err := copyTree(s.workspaceDir, snapshotDir); err != nil {
		s.logger.Error("snapshot fallback copy failed", "error", err)
	}
	return snapshotDir
}

// SaveMetadata writes metrics, the command log, and identifying fields to
// workspaceDir/sandbox_metadata.json.
func (s *Sandbox) SaveMetadata() (string, error) {
	metadataPath := filepath.Join(s.workspaceDir, "sandbox_metadata.json")
	metadata := struct {
		TaskID        string          `json:"task_id"`
		Metrics       Metrics         `json:"metrics"`
		CommandLog    []CommandRecord `json:"command_logs"`
		ContainerName string          `json:"container_name,omitempty"`
		WorkspaceDir  string          `json:"workspace_dir"`
	}{
		TaskID:       s.taskID,
		Metrics:      s.metrics,
		CommandLog:   s.commandLog,
		WorkspaceDir: s.workspaceDir,
	}
	if s.containerID != "" {
		metadata.ContainerName = s.containerName
	}

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", &ErrArtifactWrite{Path: metadataPath, Cause: err}
	}
	if err := writeFileAtomic(metadataPath, data, 0o640); err != nil {
		return "", &ErrArtifactWrite{Path: metadataPath, Cause: err}
	}
	return metadataPath, nil
}

// Cleanup stops and removes the container, optionally snapshotting and
// saving metadata first. Idempotent, safe from any non-released state, and
// never returns an error to the caller — failures are logged. Callers must
// invoke Cleanup on every exit path, including panics and cancellations.
func (s *Sandbox) Cleanup(ctx context.Context, keepSnapshot bool) {
	if s.state == SandboxReleased {
		return
	}

	if keepSnapshot {
		s.SnapshotFilesystem(ctx, "final")
		if _, err := s.SaveMetadata(); err != nil {
			s.logger.Error("save metadata failed", "error", err)
		}
	}

	if s.containerID != "" {
		if s.state == SandboxRunning {
			if err := s.backend.Stop(ctx, s.containerID, 10*time.Second); err != nil {
				s.logger.Warn("container stop failed", "error", err)
			}
			s.state = SandboxStopped
			s.metrics.EndTime = float64(time.Now().UnixNano()) / 1e9
		}
		if err := s.backend.Remove(ctx, s.containerID); err != nil {
			s.logger.Warn("container remove failed", "error", err)
		}
	}

	s.state = SandboxReleased
	s.logger.Info("sandbox cleaned up")
}

// MetricsSnapshot returns a snapshot of the sandbox's accumulated metrics.
func (s *Sandbox) MetricsSnapshot() Metrics { return s.metrics }

// CommandLog returns the recorded commands in execution order.
func (s *Sandbox) CommandLog() []CommandRecord {
	out := make([]CommandRecord, len(s.commandLog))
	copy(out, s.commandLog)
	return out
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o640)
	})
}
