// Package junebench is a benchmark evaluation orchestrator for
// code-generation models: it dispatches coding tasks to an LLM, lets the
// model iteratively edit and execute code inside isolated single-use
// containers, harvests per-task metrics, and reduces raw outcomes into
// pass@k and efficiency scores.
//
// # Core pieces
//
//   - [Sandbox] — one isolated, resource-capped container per attempt.
//   - [Provider] — streaming chat-with-tools against an external LLM.
//   - [RunCodingAgent] — the tool-calling conversation loop that drives a
//     Sandbox via a Provider.
//   - [RunDataset] — runs every (task, attempt) pair and collects Results.
//   - pass@k and efficiency-score aggregation, in aggregate.go.
//   - atomic artifact writing, in artifact.go.
//
// # Quick start
//
//	provider := openaicompat.NewProvider(apiKey, model, baseURL)
//	backend, err := docker.New(logger)
//	tasks, err := junebench.LoadHumanEval(path, logger)
//	results, err := junebench.RunDataset(ctx, junebench.EvaluatorConfig{
//		OutputDir:   "./out",
//		Provider:    provider,
//		Backend:     backend,
//		NumAttempts: 1,
//	}, tasks)
//	report, err := junebench.BuildReport("humaneval", "gpt-4", time.Now().Unix(), results)
//
// Container execution is provided by runtime/docker; dataset parsing by
// LoadHumanEval and LoadMBPP in dataset.go; configuration by
// internal/config.
package junebench
