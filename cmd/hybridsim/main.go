package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/hybridsim/internal/automation"
	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/experiment"
	"github.com/san-kum/hybridsim/internal/metrics"
	"github.com/san-kum/hybridsim/internal/rig"
	"github.com/san-kum/hybridsim/internal/sim"
	"github.com/san-kum/hybridsim/internal/storage"
	"github.com/san-kum/hybridsim/internal/telemetry"
)

var (
	dsn        string
	logLevel   string
	configFile string
	preset     string
	dt         float64
	duration   float64
	integrator string
	scale      float64
	noSave     bool
	scales     []float64

	listenAddr string
	httpAddr   string
	model      string
	stiffness  []float64
	yieldForce []float64
	hardening  float64
	lag        float64
	timeout    time.Duration

	log = zerolog.Nop()
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(20)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 2)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hybridsim",
		Short:         "hybrid simulation coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dsn, "db", "", "run database (sqlite path or postgres DSN)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a hybrid simulation",
		RunE:  runExperiment,
	}
	addModelFlags(runCmd)
	runCmd.Flags().Float64Var(&scale, "scale", 1, "ground motion scale factor")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one simulation per ground motion scale concurrently",
		RunE:  runSweep,
	}
	addModelFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&scales, "scales", []float64{0.5, 1, 2}, "ground motion scale factors")

	rigCmd := &cobra.Command{
		Use:   "rig",
		Short: "serve a simulated specimen as a remote experimental site",
		RunE:  runRig,
	}
	rigCmd.Flags().StringVar(&listenAddr, "listen", ":8090", "tcp address for simulation clients")
	rigCmd.Flags().StringVar(&httpAddr, "http", "", "address of the status endpoint (disabled when empty)")
	rigCmd.Flags().StringVar(&model, "model", "elastic", "specimen model (elastic, bilinear)")
	rigCmd.Flags().Float64SliceVar(&stiffness, "k", []float64{100}, "stiffness per basic direction")
	rigCmd.Flags().Float64SliceVar(&yieldForce, "fy", []float64{1}, "yield force per basic direction (bilinear)")
	rigCmd.Flags().Float64Var(&hardening, "hardening", 0, "post-yield stiffness ratio (bilinear)")
	rigCmd.Flags().Float64Var(&lag, "lag", 0, "actuator tracking lag in [0,1)")
	rigCmd.Flags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "read/write timeout per message")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in experiments",
		RunE:  listPresets,
	}

	registryCmd := &cobra.Command{
		Use:   "components",
		Short: "list geometries, specimens, integrators and metrics",
		RunE:  listComponents,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotElement, "element", 0, "also plot the basic forces of this element")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run (csv, json, xlsx, svg)",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, json, xlsx or svg")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (stdout for csv and json when empty)")
	exportCmd.Flags().IntVar(&exportElement, "element", 1, "element of the svg hysteresis loop")
	exportCmd.Flags().IntVar(&exportDir, "dir", 0, "basic direction of the svg hysteresis loop")

	campaignCmd := &cobra.Command{
		Use:   "campaign [scenario.yaml]",
		Short: "run a scripted sequence of experiments",
		Args:  cobra.ExactArgs(1),
		RunE:  runCampaign,
	}
	campaignCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, campaignCmd, rigCmd, presetsCmd, registryCmd, listCmd, plotCmd, exportCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "experiment file (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "built-in experiment")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
}

// loadConfig resolves the experiment from --config or --preset; flags the
// user set explicitly override the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		return nil, errors.New("either --config or --preset is required")
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dsn != "" {
		cfg.Storage.DSN = dsn
	}
	return cfg, nil
}

func setupLogger(lc config.LogConfig) (func(), error) {
	l, closer, err := telemetry.NewLogger(lc, os.Stderr)
	if err != nil {
		return nil, err
	}
	log = l
	return func() { closer.Close() }, nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	done, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer done()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, experiment.WithLogger(log), experiment.WithGroundScale(scale))
	if err := exp.Setup(); err != nil {
		// a site that cannot be reached leaves nothing to coordinate
		log.Fatal().Err(err).Str("experiment", cfg.Name).Msg("setup failed")
	}
	defer exp.Close()

	if cfg.Influx.Enabled {
		sink, err := storage.NewInfluxSink(cfg.Influx, cfg.Name, log)
		if err != nil {
			return err
		}
		defer sink.Close()
		exp.GetSimulator().AddObserver(sink)
	}

	log.Info().Str("experiment", cfg.Name).Str("integrator", cfg.Integrator).
		Float64("dt", cfg.Dt).Float64("duration", cfg.Duration).Msg("running")
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)

	var runID uint
	if !noSave && result != nil {
		st, err := storage.Open(cfg.Storage.DSN, log)
		if err != nil {
			return err
		}
		defer st.Close()
		if runID, err = st.SaveRun(cfg, result); err != nil {
			return err
		}
	}

	if result != nil {
		fmt.Println(summary(cfg, result, elapsed, runID))
	}
	return runErr
}

func summary(cfg *config.Config, res *sim.Result, elapsed time.Duration, runID uint) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
	}
	lines := []string{
		titleStyle.Render(cfg.Name),
		row("integrator", cfg.Integrator),
		row("steps", strconv.Itoa(res.StepsTaken)),
		row("wall time", elapsed.Round(time.Millisecond).String()),
	}
	if runID != 0 {
		lines = append(lines, row("run id", strconv.FormatUint(uint64(runID), 10)))
	}

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, row(name, strconv.FormatFloat(res.Metrics[name], 'g', 6, 64)))
	}
	for _, err := range res.Errors {
		lines = append(lines, errStyle.Render(err.Error()))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	done, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer done()

	results, err := experiment.Sweep(context.Background(), cfg, scales, experiment.WithLogger(log))
	if err != nil {
		return err
	}

	names := map[string]bool{}
	for _, r := range results {
		for name := range r.Metrics {
			names[name] = true
		}
	}
	cols := make([]string, 0, len(names))
	for name := range names {
		cols = append(cols, name)
	}
	sort.Strings(cols)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCALE\tSTEPS\t%s\n", strings.ToUpper(strings.Join(cols, "\t")))
	for i, r := range results {
		vals := make([]string, len(cols))
		for j, c := range cols {
			vals[j] = strconv.FormatFloat(r.Metrics[c], 'g', 5, 64)
		}
		fmt.Fprintf(w, "%g\t%d\t%s\n", scales[i], r.StepsTaken, strings.Join(vals, "\t"))
	}
	return w.Flush()
}

func runCampaign(cmd *cobra.Command, args []string) error {
	lc := config.DefaultConfig().Log
	if logLevel != "" {
		lc.Level = logLevel
	}
	done, err := setupLogger(lc)
	if err != nil {
		return err
	}
	defer done()

	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	var saver automation.Saver
	if !noSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		saver = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := automation.RunScenario(ctx, sc, saver, log)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tNAME\tRUN\tSTEPS\tSTATUS")
	for i, r := range results {
		steps, status := 0, "ok"
		if r.Result != nil {
			steps = r.Result.StepsTaken
		}
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", i+1, r.Name, r.RunID, steps, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runRig(cmd *cobra.Command, args []string) error {
	lc := config.DefaultConfig().Log
	if logLevel != "" {
		lc.Level = logLevel
	}
	done, err := setupLogger(lc)
	if err != nil {
		return err
	}
	defer done()

	test, err := experiment.NewRegistry().GetSpecimen(config.SpecimenConfig{
		Model:       model,
		K:           stiffness,
		Fy:          yieldForce,
		Hardening:   hardening,
		ActuatorLag: lag,
	})
	if err != nil {
		return err
	}

	srv := rig.NewServer(test, log)
	srv.SetTimeout(timeout)

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", listenAddr).Msg("listen failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if httpAddr != "" {
		hs := &http.Server{Addr: httpAddr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status endpoint stopped")
			}
		}()
		defer hs.Shutdown(context.Background())
		log.Info().Str("addr", httpAddr).Msg("status endpoint up")
	}

	log.Info().Str("addr", ln.Addr().String()).Str("model", model).Msg("rig listening")
	return srv.Serve(ctx, ln)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTEGRATOR\tDT\tNODES\tELEMENTS\tSITE")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		kind := cfg.Site.Kind
		if kind == "" {
			kind = "local"
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%d\t%s\n",
			name, cfg.Integrator, cfg.Dt, len(cfg.Nodes), len(cfg.Elements), kind)
	}
	return w.Flush()
}

func listComponents(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "geometries\t%s\n", strings.Join(reg.ListGeometries(), ", "))
	fmt.Fprintf(w, "specimens\t%s\n", strings.Join(reg.ListSpecimens(), ", "))
	fmt.Fprintf(w, "integrators\t%s\n", strings.Join(reg.ListIntegrators(), ", "))
	fmt.Fprintf(w, "metrics\t%s\n", strings.Join(metrics.List(), ", "))
	return w.Flush()
}
