package junebench

import (
	"context"
	"encoding/json"
	"os"
	"path"
	"path/filepath"
	"time"
)

// commandTimeout is the hard per-command timeout enforced by execute_command,
// independent of the attempt's overall wall-clock budget.
const commandTimeout = 30 * time.Second

// ToolDefinitions is the fixed, closed set of tools offered to the model.
// Every name here has exactly one case in dispatchTool; the two lists must
// stay in lockstep.
func ToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read the contents of a file in the workspace.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"file_path":{"type":"string"}},"required":["file_path"]}`),
		},
		{
			Name:        "write_file",
			Description: "Write content to a file in the workspace, creating parent directories as needed.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"file_path":{"type":"string"},"content":{"type":"string"}},"required":["file_path","content"]}`),
		},
		{
			Name:        "list_files",
			Description: "List the entries of a directory in the workspace.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"directory":{"type":"string"}}}`),
		},
		{
			Name:        "read_directory",
			Description: "Get detailed information about a directory in the workspace.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"directory":{"type":"string"}}}`),
		},
		{
			Name:        "execute_command",
			Description: "Execute a shell command inside the workspace sandbox, with a 30 second timeout.",
			Parameters:  json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"},"working_directory":{"type":"string"}},"required":["command"]}`),
		},
	}
}

// dispatchTool resolves one model-emitted tool call against sb's workspace
// and returns the JSON-serialized result to place verbatim in the tool
// turn. It never returns a Go error: every failure becomes a result object
// carrying an "error" field, matching the contract that dispatch never
// throws out of the Coding Agent's loop.
func dispatchTool(ctx context.Context, sb *Sandbox, call ToolCall) string {
	var result any
	switch call.Name {
	case "read_file":
		result = toolReadFile(sb, call.Args)
	case "write_file":
		result = toolWriteFile(sb, call.Args)
	case "list_files", "read_directory":
		result = toolListFiles(sb, call.Args)
	case "execute_command":
		result = toolExecuteCommand(ctx, sb, call.Args)
	default:
		result = map[string]string{"error": "unknown tool: " + call.Name}
	}
	data, err := json.Marshal(result)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": "failed to serialize tool result: " + err.Error()})
	}
	return string(data)
}

type readFileArgs struct {
	FilePath string `json:"file_path"`
}

func toolReadFile(sb *Sandbox, raw json.RawMessage) map[string]any {
	var args readFileArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"error": "invalid arguments: " + err.Error()}
	}
	if args.FilePath == "" {
		return map[string]any{"error": "file_path is required"}
	}
	full, err := resolveInWorkspace(sb.WorkspaceDir(), args.FilePath)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{"error": "file not found: " + args.FilePath}
		}
		return map[string]any{"error": "error reading file: " + err.Error()}
	}
	return map[string]any{"content": string(content), "file_path": args.FilePath}
}

type writeFileArgs struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func toolWriteFile(sb *Sandbox, raw json.RawMessage) map[string]any {
	var args writeFileArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"error": "invalid arguments: " + err.Error()}
	}
	if args.FilePath == "" {
		return map[string]any{"error": "file_path is required"}
	}
	full, err := resolveInWorkspace(sb.WorkspaceDir(), args.FilePath)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return map[string]any{"error": "error writing file: " + err.Error()}
	}
	if err := os.WriteFile(full, []byte(args.Content), 0o640); err != nil {
		return map[string]any{"error": "error writing file: " + err.Error()}
	}
	return map[string]any{
		"success":       true,
		"file_path":     args.FilePath,
		"bytes_written": len(args.Content),
	}
}

type listFilesArgs struct {
	Directory string `json:"directory"`
}

func toolListFiles(sb *Sandbox, raw json.RawMessage) map[string]any {
	var args listFilesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"error": "invalid arguments: " + err.Error()}
	}
	target, err := resolveInWorkspace(sb.WorkspaceDir(), args.Directory)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	entries, err := os.ReadDir(target)
	if err != nil {
		return map[string]any{"error": "error listing directory: " + err.Error()}
	}
	items := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		kind := "file"
		if e.IsDir() {
			kind = "directory"
		}
		rel := e.Name()
		if args.Directory != "" {
			rel = args.Directory + "/" + e.Name()
		}
		items = append(items, map[string]string{"name": e.Name(), "type": kind, "path": rel})
	}
	dir := args.Directory
	if dir == "" {
		dir = "."
	}
	return map[string]any{"items": items, "directory": dir}
}

type executeCommandArgs struct {
	Command          string `json:"command"`
	WorkingDirectory string `json:"working_directory"`
}

func toolExecuteCommand(ctx context.Context, sb *Sandbox, raw json.RawMessage) map[string]any {
	var args executeCommandArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"error": "invalid arguments: " + err.Error()}
	}
	if args.Command == "" {
		return map[string]any{"error": "command is required"}
	}
	workdir := "/workspace"
	if args.WorkingDirectory != "" {
		resolved, err := resolveInWorkspace(sb.WorkspaceDir(), args.WorkingDirectory)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		root, err := filepath.Abs(sb.WorkspaceDir())
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		rel, err := filepath.Rel(root, resolved)
		if err != nil {
			return map[string]any{"error": err.Error()}
		}
		workdir = path.Join("/workspace", filepath.ToSlash(rel))
	}

	res, err := sb.ExecuteCommand(ctx, args.Command, workdir, commandTimeout)
	if err != nil {
		return map[string]any{"error": "error executing command: " + err.Error(), "command": args.Command}
	}
	if res.TimedOut {
		timeoutErr := &ErrCommandTimeout{Command: args.Command, Timeout: commandTimeout}
		return map[string]any{"error": timeoutErr.Error(), "command": args.Command}
	}
	return map[string]any{
		"stdout":            res.Stdout,
		"stderr":            res.Stderr,
		"returncode":        res.ReturnCode,
		"command":           args.Command,
		"working_directory": args.WorkingDirectory,
	}
}

