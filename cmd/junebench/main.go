package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	junebench "github.com/rl337/junebench"
	"github.com/rl337/junebench/internal/config"
	"github.com/rl337/junebench/observer"
	"github.com/rl337/junebench/provider/openaicompat"
	"github.com/rl337/junebench/runtime/docker"
)

func main() {
	configPath := flag.String("config", "", "path to junebench.toml (defaults to ./junebench.toml)")
	flag.Parse()

	// 1. Load config: defaults -> TOML file -> env overrides.
	cfg := config.Load(*configPath)
	logger := slog.Default()

	// 2. Create the LLM provider.
	var provider junebench.Provider = openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)

	// 3. Observer (opt-in via config), wrapping both the provider and the
	// run's Tracer.
	var tracer junebench.Tracer
	if cfg.Observer.Enabled {
		pricing := map[string]observer.ModelPricing{}
		inst, shutdown, err := observer.Init(context.Background(), pricing)
		if err != nil {
			log.Fatalf("observer init failed: %v", err)
		}
		defer shutdown(context.Background())

		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
		tracer = observer.NewTracer()

		logger.Info("observer enabled", "otlp_endpoint", cfg.Observer.OTLPEndpoint)
	}

	// 4. Create the container backend.
	backend, err := docker.New(logger)
	if err != nil {
		log.Fatalf("docker backend init failed: %v", err)
	}
	defer backend.Close()

	// 5. Load the dataset.
	var tasks []junebench.Task
	switch cfg.Dataset.Name {
	case "mbpp":
		tasks, err = junebench.LoadMBPP(cfg.Dataset.Path, logger)
	default:
		tasks, err = junebench.LoadHumanEval(cfg.Dataset.Path, logger)
	}
	if err != nil {
		log.Fatalf("failed to load dataset %s: %v", cfg.Dataset.Name, err)
	}

	// 6. Run the evaluation. A SIGINT cancels ctx, which RunDataset honors
	// by letting in-flight attempts finish their Sandbox teardown instead
	// of abandoning containers running.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	evalCfg := junebench.EvaluatorConfig{
		OutputDir:     cfg.Evaluator.OutputDir,
		Provider:      provider,
		Backend:       backend,
		Caps:          sandboxCaps(cfg.Sandbox),
		NumAttempts:   cfg.Evaluator.NumAttempts,
		MaxIterations: cfg.Evaluator.MaxIterations,
		Timeout:       time.Duration(cfg.Evaluator.TimeoutSeconds) * time.Second,
		Workers:       cfg.Evaluator.Workers,
		Logger:        logger,
		Tracer:        tracer,
	}

	results, err := junebench.RunDataset(ctx, evalCfg, tasks)
	if err != nil {
		log.Fatalf("evaluation run failed: %v", err)
	}

	// 7. Aggregate and write the report.
	report, err := junebench.BuildReport(cfg.Dataset.Name, cfg.LLM.Model, time.Now().Unix(), results)
	if err != nil {
		log.Fatalf("failed to build report: %v", err)
	}

	if err := junebench.WriteReport(cfg.Evaluator.OutputDir, report); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	if err := junebench.WriteReportMarkdown(cfg.Evaluator.OutputDir, report); err != nil {
		log.Fatalf("failed to write report summary: %v", err)
	}

	logger.Info("evaluation complete",
		"dataset", report.Dataset,
		"total_tasks", report.TotalTasks,
		"pass_at_1", report.PassAt1,
	)
	os.Exit(0)
}

func sandboxCaps(sc config.SandboxConfig) junebench.Caps {
	caps := junebench.DefaultCaps()
	if sc.BaseImage != "" {
		caps.BaseImage = sc.BaseImage
	}
	if sc.MaxMemoryMB > 0 {
		caps.MaxMemory = mbString(sc.MaxMemoryMB)
	}
	if sc.MaxCPUCores > 0 {
		caps.MaxCPU = sc.MaxCPUCores
	}
	caps.NetworkDisabled = sc.NetworkDisabled
	return caps
}

func mbString(mb int64) string {
	return strconv.FormatInt(mb, 10) + "m"
}
