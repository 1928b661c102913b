// Command-line interface for turning cloud-tracking voxel tables and LES
// scalar fields into a VAPOR data collection.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/janelia-flyem/cvdf/config"
	"github.com/janelia-flyem/cvdf/cvdf"
	"github.com/janelia-flyem/cvdf/field"
	"github.com/janelia-flyem/cvdf/pipeline"
	"github.com/janelia-flyem/cvdf/voxels"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to the run configuration.
	configFile = flag.String("config", "", "")

	// Overrides of the configuration file.
	variable = flag.String("var", "", "")
	selector = flag.String("type", "", "")
	outName  = flag.String("name", "", "")
	workers  = flag.Int("workers", 0, "")
)

const helpMessage = `
cvdf writes one masked scalar field per timestep of a tracked cloud into a
VAPOR data collection (.vdf).

Usage: cvdf [options] <command>

      -config     =string   Run configuration (TOML, or JSON in the older layout).
      -var        =string   Scalar field variable, e.g., QN.  Overrides the configuration.
      -type       =string   Membership type, "full" or "base".  Overrides the configuration.
      -name       =string   Output container name.  Defaults to <var>_ID.
      -workers    =number   Number of timesteps processed concurrently.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Settings may also be given after the command as key=value, e.g., "var=QN type=core".

Commands:

	run     [config]   Build the .vdf collection.
	extrema [config]   Report per-timestep extrema, voxel counts per membership
	                   type and the wrap offset only.
	convert <in> <out> Rewrite a voxel table as Parquet (.pq, .parquet) or
	                   Arrow IPC (.arrow, .feather).
	init    <config> tables=<dir> fields=<dir> [os=linux|mac]
	                   Write a configuration listing the inputs in two directories.
	types              List the membership types.
	about              Show version information.
	help
`

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *runVerbose {
		cvdf.SetLogMode(cvdf.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	// Capture ctrl+c and other interrupts.  Running tools are killed through
	// the context and the scratch directory is removed before exit.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := cvdf.Command(flag.Args())
	if err := DoCommand(ctx, command); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		cvdf.Shutdown()
		os.Exit(1)
	}
	cvdf.Shutdown()
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cmd cvdf.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("Blank command!")
	}
	switch cmd.Name() {
	case "run":
		return DoRun(ctx, cmd)
	case "extrema":
		return DoExtrema(ctx, cmd)
	case "init":
		return DoInit(cmd)
	case "convert":
		return DoConvert(ctx, cmd)
	case "types":
		return DoTypes()
	case "about":
		fmt.Print(cvdf.Versions())
		fmt.Printf("config format %s\n", config.FormatVersion)
	default:
		return fmt.Errorf("unknown command %q; try 'cvdf help'", cmd.Name())
	}
	return nil
}

// loadConfig reads the configuration named by the -config flag, the config=
// setting or the first command argument, applies overrides, and validates.
func loadConfig(cmd cvdf.Command) (*config.Config, error) {
	var filename string
	cmd.CommandArgs(&filename)
	if path, found := cmd.Parameter(cvdf.KeyConfigFile); found {
		filename = path
	}
	if *configFile != "" {
		filename = *configFile
	}
	if filename == "" {
		return nil, fmt.Errorf("%s command needs a configuration file", cmd.Name())
	}
	cfg, err := config.Load(filename)
	if err != nil {
		return nil, err
	}
	cfg.Logging.SetLogger()

	overrides := []struct {
		key  string
		flag string
		dst  *string
	}{
		{cvdf.KeyVariable, *variable, &cfg.Output.Variable},
		{cvdf.KeySelector, *selector, &cfg.Output.Selector},
		{cvdf.KeyName, *outName, &cfg.Output.Name},
	}
	for _, o := range overrides {
		if value, found := cmd.Parameter(o.key); found {
			*o.dst = value
		}
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	if *workers > 0 {
		cfg.Run.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration %s: %v", filename, err)
	}
	return cfg, nil
}

// DoRun performs the "run" command, building the .vdf collection.
func DoRun(ctx context.Context, cmd cvdf.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, nil)
	if err != nil {
		return err
	}
	cvdf.Infof("Starting run %s: %d timesteps of %q, selector %s\n", p.RunID(),
		cfg.NumTimesteps(), cfg.Output.Variable, cfg.Output.Selector)
	report, err := p.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s, wrap offset %s)\n", report.Container, report.Size.Descriptor(), report.Offset)
	if gaps := report.Gaps(); len(gaps) != 0 {
		fmt.Printf("%d of %d timesteps were not imported:\n", len(gaps), len(report.Outcomes))
		for _, ts := range gaps {
			fmt.Printf("  timestep %d: %v\n", ts, report.Outcomes[ts].Err)
		}
	}
	return nil
}

// DoExtrema performs the "extrema" command, printing the extrema of every
// timestep and the resolved wrap offset without writing any output.
func DoExtrema(ctx context.Context, cmd cvdf.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, field.HDF5Source{})
	if err != nil {
		return err
	}
	ext, err := p.Extrema(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "timestep\tcloud\tx\ty\tz\tvoxels\tsubset\ttypes")
	for _, step := range ext.Aggregate.Steps {
		var counts map[cvdf.MembershipType]int
		if step.Timestep < len(ext.Counts) {
			counts = ext.Counts[step.Timestep]
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%d\t%d\t%s\n", step.Timestep, step.CloudID,
			step.Full[cvdf.AxisX], step.Full[cvdf.AxisY], step.Full[cvdf.AxisZ], step.NumFull, step.NumSub,
			formatCounts(counts))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\ndomain %s, max z %d, wrap offset %s\n", ext.Aggregate.Domain, ext.Aggregate.MaxZ(), ext.Offset)
	return nil
}

// formatCounts lists the nonzero per-type voxel counts in type-code order.
func formatCounts(counts map[cvdf.MembershipType]int) string {
	var parts []string
	for _, t := range cvdf.MembershipTypes() {
		if n := counts[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", t, n))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// DoConvert performs the "convert" command, rewriting a voxel table in the
// format implied by the output extension.
func DoConvert(ctx context.Context, cmd cvdf.Command) error {
	var in, out string
	cmd.CommandArgs(&in, &out)
	if in == "" || out == "" {
		return fmt.Errorf("convert command must be followed by input and output table paths")
	}
	if _, err := voxels.FormatFromPath(out); err != nil {
		return err
	}
	tbl, err := voxels.NewLoader(nil).Load(ctx, in)
	if err != nil {
		return err
	}
	if err := voxels.Write(out, tbl); err != nil {
		return err
	}
	fmt.Printf("Wrote %d voxels to %s.\n", tbl.NumRows(), out)
	return nil
}

// DoInit performs the "init" command, writing a TOML configuration that
// lists the voxel tables and fields found in two directories.
func DoInit(cmd cvdf.Command) error {
	var filename string
	cmd.CommandArgs(&filename)
	if filename == "" {
		return fmt.Errorf("init command must be followed by the path of the configuration to write")
	}
	if _, err := os.Stat(filename); err == nil {
		return fmt.Errorf("configuration %s already exists", filename)
	}
	tableDir, found := cmd.Parameter(cvdf.KeyTableDir)
	if !found {
		return fmt.Errorf("init command needs %s=<directory of voxel tables>", cvdf.KeyTableDir)
	}
	fieldDir, found := cmd.Parameter(cvdf.KeyFieldDir)
	if !found {
		return fmt.Errorf("init command needs %s=<directory of scalar fields>", cvdf.KeyFieldDir)
	}

	cfg := config.Default()
	platform, found := cmd.Parameter(cvdf.KeyPlatform)
	if !found {
		platform = "linux"
	}
	if err := cfg.SetPlatformTools(platform); err != nil {
		return err
	}
	if err := cfg.Discover(tableDir, fieldDir); err != nil {
		return err
	}
	if *variable != "" {
		cfg.Output.Variable = *variable
	}
	if *selector != "" {
		cfg.Output.Selector = *selector
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := cfg.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s with %d timesteps.\n", filename, cfg.NumTimesteps())
	return nil
}

// DoTypes lists the membership types and the synthetic selectors.
func DoTypes() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "code\tname")
	for _, t := range cvdf.MembershipTypes() {
		fmt.Fprintf(w, "%d\t%s\n", int(t), t)
	}
	fmt.Fprintf(w, "\t%s\n", cvdf.FullSelector)
	fmt.Fprintf(w, "\t%s\n", cvdf.BaseSelector)
	return w.Flush()
}
