// Package main is the aide CLI: an interactive coding assistant that
// plans with a model, executes tools inside a permission-gated
// workspace, and repairs its own failed tool calls when it can.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aide-agent/aide/internal/agent"
	"github.com/aide-agent/aide/internal/config"
	"github.com/aide-agent/aide/internal/executor"
	"github.com/aide-agent/aide/internal/logging"
	"github.com/aide-agent/aide/internal/permission"
	"github.com/aide-agent/aide/internal/provider/gemini"
	"github.com/aide-agent/aide/internal/recovery"
	"github.com/aide-agent/aide/internal/runner"
	"github.com/aide-agent/aide/internal/tool"
	"github.com/aide-agent/aide/internal/tool/directory"
	"github.com/aide-agent/aide/internal/tool/file"
	"github.com/aide-agent/aide/internal/tool/path"
	"github.com/aide-agent/aide/internal/tool/search"
	"github.com/aide-agent/aide/internal/tool/shell"
	"github.com/aide-agent/aide/internal/tool/todo"
	"github.com/aide-agent/aide/internal/ui"
)

type options struct {
	workspace string
	model     string
	verbose   bool
	noAutoFix bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "aide",
		Short:        "Interactive AI coding assistant",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "workspace root (default: current directory)")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model name (default: from config)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")
	cmd.Flags().BoolVar(&opts.noAutoFix, "no-auto-fix", false, "disable automatic repair of failed tool calls")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	log, err := logging.New(opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	store := config.NewStore()
	cfg, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n")
		cfg = config.DefaultConfig()
	}

	workspace := opts.workspace
	if workspace == "" {
		if workspace, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	root, err := path.CanonicalizeRoot(workspace)
	if err != nil {
		return fmt.Errorf("invalid workspace: %w", err)
	}

	model := opts.model
	if model == "" {
		model = cfg.Model
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return errors.New("GEMINI_API_KEY environment variable is required")
	}
	prov, err := gemini.NewFromAPIKey(ctx, apiKey, model, log)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	resolver := path.NewResolver(root)
	shellTool := shell.NewTool(resolver)
	todoStore := todo.NewStore()
	registry := tool.NewRegistry(
		file.NewReadTool(resolver, cfg.MaxFileSize),
		file.NewWriteTool(resolver, cfg.MaxFileSize),
		file.NewEditTool(resolver, cfg.MaxFileSize),
		directory.NewListTool(resolver),
		search.NewTool(resolver),
		shellTool,
		todo.NewReadTool(todoStore),
		todo.NewWriteTool(todoStore),
	)

	console := ui.NewConsole(os.Stdin, os.Stdout)

	home, _ := os.UserHomeDir()
	gate := permission.NewGate(root,
		permission.NewTrustedPaths(home, cfg.TrustedPaths),
		console,
		store,
		log,
	)

	sup := executor.New(registry, log)

	runnerOpts := []runner.Option{}
	if cfg.AutoFix && !opts.noAutoFix {
		runnerOpts = append(runnerOpts,
			runner.WithRecovery(newRecoveryEngine(root, gate, shellTool, sup, cfg, log)))
	}

	machine := agent.NewMachine(agent.WithMaxModelAttempts(cfg.ModelRetryBudget))
	r := runner.New(machine, prov, registry, sup, gate, console, log, runnerOpts...)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Debug("starting", zap.String("workspace", root), zap.String("model", model))
	if err := r.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newRecoveryEngine wires the fixer and guard verifier. All file
// mutation the fixer performs goes through the same permission gate as
// ordinary tool writes.
func newRecoveryEngine(root string, gate *permission.Gate, sh *shell.Tool, sup *executor.Supervisor, cfg *config.Config, log *zap.Logger) *recovery.Engine {
	read := func(ctx context.Context, p string) (string, error) {
		if err := gate.Check(ctx, p, permission.OpRead); err != nil {
			return "", err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	write := func(ctx context.Context, p, content string) error {
		if err := gate.Check(ctx, p, permission.OpWrite); err != nil {
			return err
		}
		return os.WriteFile(p, []byte(content), 0o644)
	}

	fixer := recovery.NewFileFixer(root, read, write, sh)
	verifier := recovery.NewGuardVerifier(root, write, sh)
	return recovery.NewEngine(fixer, verifier, sup, log,
		recovery.WithMaxAttempts(cfg.MaxFixAttempts))
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
