package junebench

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// fakeBackend is an in-memory ContainerBackend: no real containers, just
// enough bookkeeping to drive Sandbox's state machine and exec logging.
type fakeBackend struct {
	created []string
	started []string
	stopped []string
	removed []string

	execFn      func(cmd string) ExecResult
	failCreate  bool
	lastWorkdir string
}

func (f *fakeBackend) Create(_ context.Context, name, _ string, _ Caps) (string, error) {
	if f.failCreate {
		return "", errSandboxTest
	}
	f.created = append(f.created, name)
	return "container-" + name, nil
}

func (f *fakeBackend) Start(_ context.Context, id string) error {
	f.started = append(f.started, id)
	return nil
}

func (f *fakeBackend) Exec(_ context.Context, _ string, cmd, workdir string, _ time.Duration) (ExecResult, error) {
	f.lastWorkdir = workdir
	if f.execFn != nil {
		return f.execFn(cmd), nil
	}
	return ExecResult{Stdout: "ok", ReturnCode: 0}, nil
}

func (f *fakeBackend) Archive(_ context.Context, _ string, _ string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte("fake-tar"))), nil
}

func (f *fakeBackend) Stop(_ context.Context, id string, _ time.Duration) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeBackend) Remove(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return nil
}

var _ ContainerBackend = (*fakeBackend)(nil)

type testErr string

func (e testErr) Error() string { return string(e) }

const errSandboxTest = testErr("create failed")

func TestSandboxLifecycle(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{}
	sb, err := NewSandbox("task-1", dir, DefaultCaps(), backend, nil)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	if sb.State() != SandboxProvisioned {
		t.Fatalf("state = %s, want provisioned", sb.State())
	}

	ctx := context.Background()
	if err := sb.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sb.State() != SandboxRunning {
		t.Fatalf("state = %s, want running", sb.State())
	}
	if len(backend.created) != 1 || len(backend.started) != 1 {
		t.Fatalf("expected one create and one start, got %+v", backend)
	}

	res, err := sb.ExecuteCommand(ctx, "echo hi", "", 5*time.Second)
	if err != nil {
		t.Fatalf("ExecuteCommand: %v", err)
	}
	if res.ReturnCode != 0 || res.Stdout != "ok" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if sb.MetricsSnapshot().CommandsExecuted != 1 {
		t.Fatalf("expected 1 command executed, got %d", sb.MetricsSnapshot().CommandsExecuted)
	}
	if len(sb.CommandLog()) != 1 {
		t.Fatalf("expected 1 command log entry, got %d", len(sb.CommandLog()))
	}

	sb.Cleanup(ctx, true)
	if sb.State() != SandboxReleased {
		t.Fatalf("state = %s, want released", sb.State())
	}
	if len(backend.stopped) != 1 || len(backend.removed) != 1 {
		t.Fatalf("expected stop+remove once each, got %+v", backend)
	}

	// Cleanup must be idempotent.
	sb.Cleanup(ctx, true)
	if len(backend.removed) != 1 {
		t.Fatalf("cleanup should be a no-op once released, removed=%v", backend.removed)
	}
}

func TestSandboxExecuteCommandRequiresRunning(t *testing.T) {
	dir := t.TempDir()
	sb, err := NewSandbox("task-2", dir, DefaultCaps(), &fakeBackend{}, nil)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	if _, err := sb.ExecuteCommand(context.Background(), "ls", "", time.Second); err == nil {
		t.Fatal("expected error executing command before Start")
	}
}

func TestSandboxStartFailurePropagatesAsProvisionError(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{failCreate: true}
	sb, err := NewSandbox("task-3", dir, DefaultCaps(), backend, nil)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	err = sb.Start(context.Background())
	if err == nil {
		t.Fatal("expected Start to fail")
	}
	var provisionErr *ErrSandboxProvision
	if !errors.As(err, &provisionErr) {
		t.Fatalf("expected *ErrSandboxProvision, got %T: %v", err, err)
	}
}

func TestSandboxCommandRecordsFailedExec(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{execFn: func(cmd string) ExecResult {
		if strings.Contains(cmd, "boom") {
			return ExecResult{ReturnCode: 1, Stderr: "boom failed"}
		}
		return ExecResult{ReturnCode: 0}
	}}
	sb, err := NewSandbox("task-4", dir, DefaultCaps(), backend, nil)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	ctx := context.Background()
	if err := sb.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := sb.ExecuteCommand(ctx, "run boom", "", time.Second)
	if err != nil {
		t.Fatalf("ExecuteCommand should not error on in-container failure: %v", err)
	}
	if res.ReturnCode != 1 || res.Stderr != "boom failed" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSandboxSaveMetadataAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{}
	sb, err := NewSandbox("task-5", dir, DefaultCaps(), backend, nil)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	ctx := context.Background()
	if err := sb.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snapshotDir := sb.SnapshotFilesystem(ctx, "final")
	if snapshotDir == "" {
		t.Fatal("expected non-empty snapshot dir")
	}
	path, err := sb.SaveMetadata()
	if err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}
	if path == "" {
		t.Fatal("expected metadata path")
	}
}
