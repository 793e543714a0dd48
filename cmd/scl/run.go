package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/enkiluv/scl-core-experiment/internal/config"
	"github.com/enkiluv/scl-core-experiment/internal/events"
	"github.com/enkiluv/scl-core-experiment/internal/orchestrator"
	"github.com/enkiluv/scl-core-experiment/internal/scenario"
	"github.com/enkiluv/scl-core-experiment/internal/tool"
)

var (
	runConfigFile   string
	runScenarioFile string
	runReportPath   string
	runMaxIters     int
	runTraceSpans   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the governed loop against a scenario definition",
	Long: `Run executes the full loop: one retrieval phase, then bounded
cognition/control/action iterations until a final action is approved or
the iteration ceiling is reached. The audit report is written as JSON.`,
	RunE: runLoop,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigFile, "config", "c", "", "Path to config file (YAML)")
	runCmd.Flags().StringVarP(&runScenarioFile, "scenario", "s", "", "Path to scenario definition (YAML)")
	runCmd.Flags().StringVarP(&runReportPath, "report", "r", "", "Report output path (overrides config)")
	runCmd.Flags().IntVar(&runMaxIters, "max-iterations", 0, "Iteration ceiling (overrides config)")
	runCmd.Flags().BoolVar(&runTraceSpans, "trace", false, "Emit OpenTelemetry spans to stderr")
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if runMaxIters > 0 {
		cfg.Loop.MaxIterations = runMaxIters
	}
	if runReportPath != "" {
		cfg.Output.ReportPath = runReportPath
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	def, err := loadScenario()
	if err != nil {
		return err
	}

	registry := tool.NewRegistry(tool.WithDispatchTimeout(cfg.Loop.ToolTimeout))
	if err := scenario.RegisterTools(registry, def); err != nil {
		return err
	}

	bus := events.NewBus()
	defer bus.Close()

	progress, unsubscribe := bus.Subscribe(64)
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		printProgress(cmd, progress)
	}()

	options := []orchestrator.Option{
		orchestrator.WithMaxIterations(cfg.Loop.MaxIterations),
		orchestrator.WithEventBus(bus),
		orchestrator.WithLogger(logger),
	}
	if runTraceSpans {
		tracer, shutdown, err := newTracer()
		if err != nil {
			return err
		}
		defer shutdown()
		options = append(options, orchestrator.WithTracer(tracer))
	}

	orch := orchestrator.New(
		scenario.NewEngine(def),
		scenario.NewPlanner(def),
		registry,
		options...,
	)

	report, runErr := orch.Run(cmd.Context(), def.Task())

	unsubscribe()
	wg.Wait()

	if report != nil {
		if err := writeReport(cmd, report, cfg.Output.ReportPath); err != nil {
			return err
		}
	}
	return runErr
}

func loadRunConfig() (*config.Config, error) {
	if runConfigFile == "" {
		return config.DefaultConfig(), nil
	}
	loader := config.NewLoader(config.NewValidator())
	return loader.Load(runConfigFile)
}

func loadScenario() (scenario.Definition, error) {
	if runScenarioFile == "" {
		return scenario.Default(), nil
	}
	return scenario.Load(runScenarioFile)
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler), nil
}

// newTracer builds a span pipeline that writes spans to stderr, so a run
// can be inspected without external collector infrastructure.
func newTracer() (trace.Tracer, func(), error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}

	return provider.Tracer("scl"), shutdown, nil
}

// printProgress drains run events to the command's output until the
// subscription closes.
func printProgress(cmd *cobra.Command, ch <-chan events.Event) {
	for ev := range ch {
		switch ev.Type {
		case events.EventRunStarted:
			cmd.Printf("run %s started\n", ev.RunID)
		case events.EventStageCompleted:
			cmd.Printf("  [%d] %s completed\n", ev.Iteration, ev.Stage)
		case events.EventProposalRejected:
			cmd.Printf("  [%d] proposal rejected: %v\n", ev.Iteration, ev.Attrs["reason"])
		case events.EventActionExecuted:
			cmd.Printf("  [%d] action executed (final=%v)\n", ev.Iteration, ev.Attrs["final"])
		case events.EventRunFinished:
			cmd.Printf("run %s finished: %v\n", ev.RunID, ev.Attrs["status"])
		}
	}
}

func writeReport(cmd *cobra.Command, report *orchestrator.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if path == "" {
		cmd.Println(string(data))
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	cmd.Printf("audit report written to %s\n", path)
	return nil
}
