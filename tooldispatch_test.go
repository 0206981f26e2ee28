package junebench

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestSandbox(t *testing.T, backend ContainerBackend) *Sandbox {
	t.Helper()
	dir := t.TempDir()
	sb, err := NewSandbox("tool-task", dir, DefaultCaps(), backend, nil)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	return sb
}

func TestDispatchToolReadFile(t *testing.T) {
	sb := newTestSandbox(t, &fakeBackend{})
	if err := os.WriteFile(filepath.Join(sb.WorkspaceDir(), "hello.py"), []byte("print(1)"), 0o640); err != nil {
		t.Fatal(err)
	}
	out := dispatchTool(context.Background(), sb, ToolCall{Name: "read_file", Args: json.RawMessage(`{"file_path":"hello.py"}`)})
	var result map[string]any
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if result["content"] != "print(1)" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestDispatchToolReadFileEscapeRejected(t *testing.T) {
	sb := newTestSandbox(t, &fakeBackend{})
	out := dispatchTool(context.Background(), sb, ToolCall{Name: "read_file", Args: json.RawMessage(`{"file_path":"../escape.py"}`)})
	var result map[string]any
	json.Unmarshal([]byte(out), &result)
	if _, ok := result["error"]; !ok {
		t.Fatalf("expected error for path escape, got %v", result)
	}
}

func TestDispatchToolWriteFileThenReadBack(t *testing.T) {
	sb := newTestSandbox(t, &fakeBackend{})
	writeOut := dispatchTool(context.Background(), sb, ToolCall{Name: "write_file", Args: json.RawMessage(`{"file_path":"out.py","content":"x=1"}`)})
	var writeResult map[string]any
	json.Unmarshal([]byte(writeOut), &writeResult)
	if writeResult["success"] != true {
		t.Fatalf("expected success, got %v", writeResult)
	}

	readOut := dispatchTool(context.Background(), sb, ToolCall{Name: "read_file", Args: json.RawMessage(`{"file_path":"out.py"}`)})
	var readResult map[string]any
	json.Unmarshal([]byte(readOut), &readResult)
	if readResult["content"] != "x=1" {
		t.Fatalf("expected roundtrip content, got %v", readResult)
	}
}

func TestDispatchToolListFiles(t *testing.T) {
	sb := newTestSandbox(t, &fakeBackend{})
	os.WriteFile(filepath.Join(sb.WorkspaceDir(), "a.py"), []byte("a"), 0o640)
	os.Mkdir(filepath.Join(sb.WorkspaceDir(), "sub"), 0o750)

	out := dispatchTool(context.Background(), sb, ToolCall{Name: "list_files", Args: json.RawMessage(`{}`)})
	var result map[string]any
	json.Unmarshal([]byte(out), &result)
	items, ok := result["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", result)
	}
}

func TestDispatchToolExecuteCommand(t *testing.T) {
	backend := &fakeBackend{execFn: func(cmd string) ExecResult {
		return ExecResult{Stdout: "hi\n", ReturnCode: 0}
	}}
	sb := newTestSandbox(t, backend)
	if err := sb.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out := dispatchTool(context.Background(), sb, ToolCall{Name: "execute_command", Args: json.RawMessage(`{"command":"echo hi"}`)})
	var result map[string]any
	json.Unmarshal([]byte(out), &result)
	if result["stdout"] != "hi\n" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestDispatchToolExecuteCommandWorkingDirectory(t *testing.T) {
	backend := &fakeBackend{execFn: func(cmd string) ExecResult {
		return ExecResult{Stdout: "hi\n", ReturnCode: 0}
	}}
	sb := newTestSandbox(t, backend)
	if err := sb.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := os.Mkdir(filepath.Join(sb.WorkspaceDir(), "sub"), 0o750); err != nil {
		t.Fatal(err)
	}

	out := dispatchTool(context.Background(), sb, ToolCall{Name: "execute_command", Args: json.RawMessage(`{"command":"ls","working_directory":"sub"}`)})
	var result map[string]any
	json.Unmarshal([]byte(out), &result)
	if _, ok := result["error"]; ok {
		t.Fatalf("unexpected error: %v", result)
	}
	if backend.lastWorkdir != "/workspace/sub" {
		t.Fatalf("expected container workdir /workspace/sub, got %q", backend.lastWorkdir)
	}
}

func TestDispatchToolExecuteCommandWorkingDirectoryEscapeRejected(t *testing.T) {
	backend := &fakeBackend{}
	sb := newTestSandbox(t, backend)
	if err := sb.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	out := dispatchTool(context.Background(), sb, ToolCall{Name: "execute_command", Args: json.RawMessage(`{"command":"ls","working_directory":"../escape"}`)})
	var result map[string]any
	json.Unmarshal([]byte(out), &result)
	if _, ok := result["error"]; !ok {
		t.Fatalf("expected error for path escape, got %v", result)
	}
}

func TestDispatchToolExecuteCommandTimeout(t *testing.T) {
	backend := &fakeBackend{execFn: func(cmd string) ExecResult {
		return ExecResult{TimedOut: true}
	}}
	sb := newTestSandbox(t, backend)
	if err := sb.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	out := dispatchTool(context.Background(), sb, ToolCall{Name: "execute_command", Args: json.RawMessage(`{"command":"sleep 60"}`)})
	var result map[string]any
	json.Unmarshal([]byte(out), &result)
	want := (&ErrCommandTimeout{Command: "sleep 60", Timeout: commandTimeout}).Error()
	if result["error"] != want {
		t.Fatalf("error = %v, want %q", result["error"], want)
	}
}

func TestDispatchToolUnknownName(t *testing.T) {
	sb := newTestSandbox(t, &fakeBackend{})
	out := dispatchTool(context.Background(), sb, ToolCall{Name: "delete_everything"})
	var result map[string]any
	json.Unmarshal([]byte(out), &result)
	if _, ok := result["error"]; !ok {
		t.Fatalf("expected error for unknown tool, got %v", result)
	}
}

func TestToolDefinitionsCoverAllDispatchedNames(t *testing.T) {
	defs := ToolDefinitions()
	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
	}
	for _, want := range []string{"read_file", "write_file", "list_files", "read_directory", "execute_command"} {
		if !names[want] {
			t.Fatalf("ToolDefinitions missing %q", want)
		}
	}
}
