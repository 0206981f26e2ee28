package junebench

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// defaultMaxIterations is the number of assistant responses allowed after
// the initial task turn before the loop is forced to stop and solution
// extraction runs regardless of whether the model is still calling tools.
const defaultMaxIterations = 10

// CodingAgentConfig configures one conversation loop.
type CodingAgentConfig struct {
	Provider      Provider
	Sandbox       *Sandbox
	MaxIterations int // 0 = defaultMaxIterations
	Logger        *slog.Logger
	Tracer        Tracer // nil = no tracing
}

// AgentOutcome is everything the Evaluator needs from a finished
// conversation loop, independent of solution extraction or test execution.
type AgentOutcome struct {
	FinalText  string
	Iterations int
	History    []ChatMessage
	// StoppedOnBudget is true if the loop exited because MaxIterations was
	// reached while the model was still emitting tool calls, rather than
	// because the model produced a final answer with none.
	StoppedOnBudget bool
}

// RunCodingAgent drives one attempt's conversation: it seeds history with a
// system turn naming the tool contract and the task prompt, then loops,
// dispatching any emitted tool calls against cfg.Sandbox, until the model
// stops calling tools or the iteration budget is exhausted.
func RunCodingAgent(ctx context.Context, cfg CodingAgentConfig, task Task) (AgentOutcome, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	history := []ChatMessage{
		SystemMessage(systemPrompt()),
		UserMessage(taskPrompt(task)),
	}

	tools := ToolDefinitions()
	var span Span
	if cfg.Tracer != nil {
		ctx, span = cfg.Tracer.Start(ctx, "coding_agent.run", StringAttr("task_id", task.TaskID))
		defer span.End()
	}

	iterations := 0
	stoppedOnBudget := false
	var finalText string

	for iterations < maxIter {
		iterations++

		req := ChatRequest{Messages: history, Tools: tools}
		ch := make(chan StreamEvent)
		go func() {
			for range ch {
				// Drained but unused: the aggregated ChatResponse below
				// already carries the full text and tool calls.
			}
		}()
		resp, err := cfg.Provider.ChatStream(ctx, req, ch)
		if err != nil {
			return AgentOutcome{Iterations: iterations, History: history}, &ErrLLMTransport{
				Provider: cfg.Provider.Name(),
				Message:  err.Error(),
			}
		}

		history = append(history, AssistantMessage(resp.Content, resp.ToolCalls...))

		if len(resp.ToolCalls) == 0 {
			finalText = resp.Content
			break
		}

		for _, call := range resp.ToolCalls {
			if span != nil {
				span.Event("tool_call", StringAttr("name", call.Name))
			}
			result := dispatchTool(ctx, cfg.Sandbox, call)
			history = append(history, ToolResultMessage(call.ID, result))
		}

		if iterations == maxIter {
			finalText = resp.Content
			stoppedOnBudget = true
		}
	}

	logger.Info("coding agent finished", "task_id", task.TaskID, "iterations", iterations, "stopped_on_budget", stoppedOnBudget)

	return AgentOutcome{
		FinalText:       finalText,
		Iterations:      iterations,
		History:         history,
		StoppedOnBudget: stoppedOnBudget,
	}, nil
}

func systemPrompt() string {
	return "You are a coding agent working inside an isolated sandbox workspace mounted at /workspace. " +
		"You have access to read_file, write_file, list_files, read_directory, and execute_command tools. " +
		"All file paths are relative to the workspace root; you cannot access anything outside it. " +
		"Write your solution to a source file in the workspace, then use execute_command to verify it runs. " +
		"When you are done, respond with a final message and no further tool calls."
}

func taskPrompt(task Task) string {
	prompt := task.Prompt
	if task.EntryPoint != "" {
		prompt += fmt.Sprintf("\n\nEntry point: %s", task.EntryPoint)
	}
	if task.TestCode != "" {
		prompt += fmt.Sprintf("\n\nYour solution will be judged by the following tests:\n\n%s", task.TestCode)
	}
	return prompt
}

// runWithTimeout races fn against timeout; the wall-clock budget bounds the
// entire attempt regardless of how many iterations run. Used by the
// Evaluator to wrap RunCodingAgent.
func runWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) (AgentOutcome, error)) (AgentOutcome, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type res struct {
		out AgentOutcome
		err error
	}
	done := make(chan res, 1)
	go func() {
		out, err := fn(ctx)
		done <- res{out, err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		<-done // wait for fn to observe cancellation and return
		return AgentOutcome{}, ctx.Err()
	}
}
