package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/statespace/internal/config"
	"github.com/san-kum/statespace/internal/experiment"
	"github.com/san-kum/statespace/internal/export"
	"github.com/san-kum/statespace/internal/logging"
	"github.com/san-kum/statespace/internal/trajectory"
)

// runOptions holds the flags shared by run and compare.
type runOptions struct {
	step       time.Duration
	span       time.Duration
	stepper    string
	form       string
	configFile string
	preset     string
	set        []string
	input      []string
	params     []string
	validate   bool
}

var (
	logLevel string
	logger   = logging.Discard()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "statespace",
		Short:         "unit-checked state-space trajectories",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(logLevel, cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	var (
		opts   runOptions
		format string
	)
	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "integrate one scenario and print its trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, args, &opts, format)
		},
	}
	addRunFlags(runCmd, &opts)
	runCmd.Flags().StringVar(&format, "format", "text", "output format (text, csv, json)")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models and steppers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels(cmd.OutOrStdout(), experiment.NewRegistry())
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPresets(cmd.OutOrStdout(), args)
		},
	}

	var cmpOpts runOptions
	var limit int
	compareCmd := &cobra.Command{
		Use:   "compare [model] [stepper...]",
		Short: "run the same scenario under several steppers concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compareSteppers(cmd, args, &cmpOpts, limit)
		},
	}
	addRunFlags(compareCmd, &cmpOpts)
	compareCmd.Flags().IntVar(&limit, "jobs", 0, "maximum concurrent runs (0 = unlimited)")

	var (
		sweepOpts  runOptions
		grid       []string
		metric     string
		sweepLimit int
	)
	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "grid search over model parameters, ranked by a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepParams(cmd, args, &sweepOpts, grid, metric, sweepLimit)
		},
	}
	addRunFlags(sweepCmd, &sweepOpts)
	sweepCmd.Flags().StringArrayVar(&grid, "grid", nil, "parameter values, e.g. --grid damping=0,0.5,1")
	sweepCmd.Flags().StringVar(&metric, "metric", "energy_drift", "metric to minimise")
	sweepCmd.Flags().IntVar(&sweepLimit, "jobs", 0, "maximum concurrent runs (0 = unlimited)")

	rootCmd.AddCommand(runCmd, modelsCmd, presetsCmd, compareCmd, sweepCmd)
	return rootCmd
}

func addRunFlags(cmd *cobra.Command, o *runOptions) {
	cmd.Flags().DurationVar(&o.step, "step", config.DefaultStep, "fixed step")
	cmd.Flags().DurationVar(&o.span, "span", config.DefaultSpan, "time span to integrate over")
	cmd.Flags().StringVar(&o.stepper, "stepper", config.DefaultStepper, "stepper")
	cmd.Flags().StringVar(&o.form, "form", config.DefaultForm, "transition form (direct, external)")
	cmd.Flags().StringVar(&o.configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&o.preset, "preset", "", "use preset configuration")
	cmd.Flags().StringArrayVar(&o.set, "set", nil, "initial state field, e.g. --set v=12")
	cmd.Flags().StringArrayVar(&o.input, "input", nil, "input field, e.g. --input steering=0.1")
	cmd.Flags().StringArrayVar(&o.params, "param", nil, "model parameter, e.g. --param lf=1.2")
	cmd.Flags().BoolVar(&o.validate, "validate", false, "stop at the first non-finite state")
}

// resolveConfig layers defaults, preset, config file and explicit flags, in
// that order.
func resolveConfig(cmd *cobra.Command, model string, o *runOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if model != "" {
		cfg.Model = model
	}

	if o.preset != "" {
		p := config.GetPreset(cfg.Model, o.preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", o.preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}

	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		if model != "" {
			cfg.Model = model
		}
	}

	flags := cmd.Flags()
	if flags.Changed("step") {
		cfg.Step = o.step
	}
	if flags.Changed("span") {
		cfg.Span = o.span
	}
	if flags.Changed("stepper") {
		cfg.Stepper = o.stepper
	}
	if flags.Changed("form") {
		cfg.Form = o.form
	}
	if flags.Changed("validate") {
		cfg.ValidateState = o.validate
	}

	var err error
	if cfg.State, err = mergeAssignments(cfg.State, o.set); err != nil {
		return nil, fmt.Errorf("--set: %w", err)
	}
	if cfg.Input, err = mergeAssignments(cfg.Input, o.input); err != nil {
		return nil, fmt.Errorf("--input: %w", err)
	}
	if cfg.Params, err = mergeAssignments(cfg.Params, o.params); err != nil {
		return nil, fmt.Errorf("--param: %w", err)
	}
	return cfg, nil
}

// mergeAssignments parses name=value pairs into a copy of base.
func mergeAssignments(base map[string]float64, pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return base, nil
	}
	out := make(map[string]float64, len(base)+len(pairs))
	maps.Copy(out, base)
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func metadataFor(cfg *config.Config) export.Metadata {
	return export.Metadata{
		Model:   cfg.Model,
		Stepper: cfg.Stepper,
		Form:    cfg.Form,
		Step:    cfg.Step.Seconds(),
		Span:    cfg.Span.Seconds(),
	}
}

func runScenario(cmd *cobra.Command, args []string, o *runOptions, format string) error {
	var model string
	if len(args) > 0 {
		model = args[0]
	}
	cfg, err := resolveConfig(cmd, model, o)
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	exp, err := experiment.New(experiment.NewRegistry(), cfg)
	if err != nil {
		return err
	}
	exp.SetLogger(logger)
	log := logging.WithScenario(logger, cfg.Model, cfg.Stepper, cfg.Form)

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("running scenario", "step", cfg.Step, "span", cfg.Span)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	log.Info("scenario complete", "steps", result.StepsTaken, "wall", time.Since(start))

	if err := export.Write(cmd.OutOrStdout(), f, metadataFor(cfg), result); err != nil {
		return err
	}

	if f == export.FormatText {
		printSummary(cmd.ErrOrStderr(), result)
	}
	return nil
}

func printSummary(w io.Writer, result *trajectory.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("metrics"))
	for _, name := range sortedNames(result.Metrics) {
		fmt.Fprintln(w, "  "+kv(name, result.Metrics[name]))
	}
}

func compareSteppers(cmd *cobra.Command, args []string, o *runOptions, limit int) error {
	reg := experiment.NewRegistry()
	steppers := args[1:]
	if len(steppers) == 0 {
		steppers = reg.ListSteppers()
	}

	cfg, err := resolveConfig(cmd, args[0], o)
	if err != nil {
		return err
	}

	jobs := make([]trajectory.Job, 0, len(steppers))
	for _, name := range steppers {
		c := cfg.Clone()
		c.Stepper = name
		exp, err := experiment.New(reg, c)
		if err != nil {
			return err
		}
		exp.SetLogger(logger)
		jobs = append(jobs, exp.Job(name))
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("comparing steppers", "model", cfg.Model, "steppers", steppers, "step", cfg.Step, "span", cfg.Span)
	start := time.Now()
	results, err := trajectory.RunEnsemble(ctx, jobs, limit)
	if err != nil {
		return err
	}
	logger.Info("comparison complete", "wall", time.Since(start))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s: step=%v span=%v form=%s", cfg.Model, cfg.Step, cfg.Span, cfg.Form)))

	names := sortedNames(results[0].Metrics)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPPER\tSTEPS\tFINAL\t"+strings.ToUpper(strings.Join(names, "\t")))
	for i, r := range results {
		row := []string{jobs[i].Name, strconv.Itoa(r.StepsTaken), r.Final().State.String()}
		for _, name := range names {
			row = append(row, fmtValue(r.Metrics[name]))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// parseGrid parses name=v1,v2,... specifications.
func parseGrid(entries []string) (map[string][]float64, error) {
	grid := make(map[string][]float64, len(entries))
	for _, entry := range entries {
		name, raw, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || raw == "" {
			return nil, fmt.Errorf("expected name=v1,v2,..., got %q", entry)
		}
		for _, field := range strings.Split(raw, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			grid[name] = append(grid[name], v)
		}
	}
	return grid, nil
}

func sweepParams(cmd *cobra.Command, args []string, o *runOptions, entries []string, metric string, limit int) error {
	if len(entries) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	grid, err := parseGrid(entries)
	if err != nil {
		return fmt.Errorf("--grid: %w", err)
	}

	var model string
	if len(args) > 0 {
		model = args[0]
	}
	cfg, err := resolveConfig(cmd, model, o)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	g := experiment.NewGridSearch(grid)
	logger.Info("sweeping parameters", "model", cfg.Model, "points", len(g.Points()), "metric", metric)
	ranked, err := g.Search(ctx, experiment.NewRegistry(), cfg, metric, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s: %s over %d points", cfg.Model, metric, len(ranked))))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPARAMS\t"+strings.ToUpper(metric))
	for i, p := range ranked {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, p.String(), fmtValue(p.Value))
	}
	return w.Flush()
}

func listModels(w io.Writer, reg *experiment.Registry) error {
	fmt.Fprintln(w, titleStyle.Render("models"))
	for _, name := range reg.ListModels() {
		m, err := reg.GetModel(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s  %s\n", okStyle.Render(name), labelStyle.Render(m.State().String()))
	}
	fmt.Fprintln(w, titleStyle.Render("steppers"))
	for _, name := range reg.ListSteppers() {
		fmt.Fprintf(w, "  %s\n", okStyle.Render(name))
	}
	return nil
}

func listPresets(w io.Writer, args []string) error {
	models := experiment.NewRegistry().ListModels()
	if len(args) > 0 {
		models = args
	}
	for _, model := range models {
		presets := config.ListPresets(model)
		if len(presets) == 0 {
			fmt.Fprintf(w, "no presets for model: %s\n", model)
			continue
		}
		fmt.Fprintln(w, titleStyle.Render("presets for "+model))
		for _, p := range presets {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fmtValue(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'g', 6, 64)
	}
	return fmt.Sprint(v)
}
