package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/muster/internal/core/domain"
	"github.com/artpar/muster/internal/core/workflow"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		var sErr *ServerError
		if errors.As(err, &sErr) {
			return sErr.ExitCode
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitConfigError
	}
	return ExitSuccess
}

// =============================================================================
// Commands
// =============================================================================

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "muster",
		Short: "Muster - mission deployment tracking and workflow engine",
		Long: `Muster tracks mission deployments step by step and runs deployment
workflow templates (standard, emergency, training).

Examples:
  # Start the HTTP API (default)
  muster serve --config muster.yaml

  # Run one stored template and print the outcome
  muster execute tmpl_1a2b3c4d`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "execute <template-id>",
		Short: "Run a stored deployment workflow template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd.Context(), configPath, args[0], cmd.OutOrStdout())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "muster %s (built %s)\n", Version, BuildTime)
		},
	})

	return root
}

func loadConfig(configPath string) (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, &ServerError{Op: "LoadConfig", Err: err, ExitCode: ExitConfigError}
	}
	return cfg, nil
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	logger := SetupLogger(cfg)
	logger.Info("starting muster",
		"version", Version,
		"config", configPath,
	)

	server, err := NewServer(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		return err
	}

	if err := server.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}

// executeOutput is what the execute command prints.
type executeOutput struct {
	Template *domain.Template `json:"template"`
	Result   workflow.Result  `json:"result"`
}

// execute runs one template and prints the record and result as JSON. A
// failed run is printed and reported through the exit code.
func execute(ctx context.Context, configPath, id string, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}
	logger := SetupLogger(cfg)

	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Error("failed to open application", "error", err)
		return err
	}
	defer app.Close(logger)

	if app.Bus != nil {
		busCtx, stop := context.WithCancel(context.Background())
		defer stop()
		app.Bus.Start(busCtx)
	}

	tmpl, res, err := app.Templates.Execute(ctx, id)
	if err != nil {
		logger.Error("failed to execute template", "template_id", id, "error", err)
		return &ServerError{Op: "Execute", Err: err, ExitCode: ExitExecutionFailed}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(executeOutput{Template: tmpl, Result: res}); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if res.Status != workflow.StatusCompleted {
		return &ServerError{Op: "Execute", Err: res.Err, ExitCode: ExitExecutionFailed}
	}
	return nil
}
