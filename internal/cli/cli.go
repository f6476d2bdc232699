package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/specialistvlad/loopgrid/internal/app"
	"github.com/specialistvlad/loopgrid/internal/hcl_adapter"
)

// Exit codes.
const (
	ExitFailure      = 1
	ExitUsage        = 2
	ExitNotConverged = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// action is what a subcommand does with a ready App.
type action func(ctx context.Context, a *app.App) error

// Execute parses args, runs the selected command and maps failures to
// ExitError values. Help output goes to outW and reports to outW; logs go
// to errW.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	slog.Debug("CLI parser started.")
	ran := false
	root := newRootCommand(outW, errW, &ran)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case !ran:
		// Cobra rejected the command line before any command ran.
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	case errors.Is(err, app.ErrNotConverged):
		return &ExitError{Code: ExitNotConverged, Message: err.Error()}
	default:
		return &ExitError{Code: ExitFailure, Message: err.Error()}
	}
}

func newRootCommand(outW, errW io.Writer, ran *bool) *cobra.Command {
	root := &cobra.Command{
		Use:   "loopgrid",
		Short: "Evaluate numeric attribute models with feedback loops",
		Long: `loopgrid evaluates a model of named numeric attributes defined in HCL.
Attributes may depend on each other in cycles; each cycle is solved by
fixed-point iteration and reported with its convergence status. Scenarios
re-evaluate the same model with different input values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)

	root.AddCommand(
		newCommand(outW, errW, ran, "run [MODEL_PATH]",
			"Evaluate the model and its scenarios",
			true,
			func(ctx context.Context, a *app.App) error { return a.Run(ctx) }),
		newCommand(outW, errW, ran, "graph [MODEL_PATH]",
			"Print the evaluation order and the cyclic groups",
			false,
			func(ctx context.Context, a *app.App) error { return a.Graph(ctx) }),
		newCommand(outW, errW, ran, "validate [MODEL_PATH]",
			"Load the model and check its definitions",
			false,
			func(ctx context.Context, a *app.App) error { return a.Validate(ctx) }),
	)
	return root
}

// newCommand builds a subcommand sharing the model and logging flags. Run
// flags (scenarios, overrides, solver settings) are only added when
// withRunFlags is set.
func newCommand(outW, errW io.Writer, ran *bool, use, short string, withRunFlags bool, do action) *cobra.Command {
	var (
		cfg       app.Config
		envErr    error
		modelFlag string
		setFlags  []string
	)
	cfg, envErr = app.ConfigFromEnv()

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			*ran = true
			if envErr != nil {
				return &ExitError{Code: ExitUsage, Message: envErr.Error()}
			}

			switch {
			case modelFlag != "":
				cfg.ModelPath = modelFlag
			case len(args) > 0:
				cfg.ModelPath = args[0]
			}
			if cfg.ModelPath == "" {
				slog.Debug("No model path provided, printing usage and exiting.")
				return cmd.Help()
			}

			overrides, err := parseOverrides(setFlags)
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			cfg.Overrides = overrides
			cfg.LogFormat = strings.ToLower(cfg.LogFormat)
			cfg.LogLevel = strings.ToLower(cfg.LogLevel)
			cfg.Output = strings.ToLower(cfg.Output)

			validated, err := app.NewConfig(cfg)
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			slog.Debug("CLI parser finished successfully.", "model", validated.ModelPath)

			a, err := app.NewApp(outW, errW, validated, hcl_adapter.NewLoader())
			if err != nil {
				return err
			}
			return do(cmd.Context(), a)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&modelFlag, "model", "m", "", "Path to a model .hcl file or a directory of .hcl files.")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Report format. Options: 'text' or 'json'.")
	if withRunFlags {
		flags.StringVarP(&cfg.ScenariosPath, "scenarios", "s", cfg.ScenariosPath, "Path to a YAML scenario file.")
		flags.StringSliceVar(&cfg.Scenarios, "scenario", nil, "Only run the named scenario. Repeatable.")
		flags.StringArrayVar(&setFlags, "set", nil, "Ad-hoc input override as id=value. Repeatable.")
		flags.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "Maximum rounds per cyclic group.")
		flags.Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "Relative change below which a cycle member is stable.")
		flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of concurrent evaluation workers.")
		flags.BoolVar(&cfg.Stabilize, "stabilize", cfg.Stabilize, "Replace oscillating cycles with the mean of their last rounds.")
		flags.BoolVar(&cfg.Strict, "strict", cfg.Strict, "Exit with code 3 when a cycle does not converge.")
		flags.IntVar(&cfg.HealthcheckPort, "healthcheck-port", cfg.HealthcheckPort, "Port for the /health and /metrics server. 0 is disabled.")
	}
	return cmd
}

// parseOverrides turns id=value pairs into a map.
func parseOverrides(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		id, raw, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --set %q: want id=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --set %q: %w", pair, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid --set %q: value must be finite", pair)
		}
		out[id] = v
	}
	return out, nil
}
