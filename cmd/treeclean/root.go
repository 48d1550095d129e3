package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"treeclean/internal/config"
	"treeclean/internal/exitcodes"
	"treeclean/internal/logging"
	"treeclean/internal/runner"
)

const rootLongDescription = `treeclean removes backup files (*.backup, *~), Python bytecode (*.pyc),
generated example output (examples/reports, examples/application_generated_data)
and generated README.html files from the current directory tree.

Entries inside .git and .svn directories are never touched. Every deleted path
is printed on stdout; diagnostics go to stderr.`

type rootFlags struct {
	configPath      string
	root            string
	dryRun          bool
	dbPath          string
	metricsTextfile string
	logFile         string
	quiet           bool
	verbose         bool
}

// newRootCmd builds the command. exitCode receives the process exit code
// once the command ran.
func newRootCmd(stdout, stderr io.Writer, exitCode *int) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "treeclean",
		Short:         "Delete generated and backup files from a project tree",
		Long:          rootLongDescription,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), flags)
			if err != nil {
				*exitCode = exitcodes.InvalidConfig
				return err
			}

			logger := logging.NewWithConfig(cfg.Logging, stderr)
			defer func() {
				if err := logger.Close(); err != nil {
					fmt.Fprintf(stderr, "failed to close log file: %v\n", err)
				}
			}()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case sig := <-sigChan:
					logger.Errors.Printf("Received signal %v, stopping after the current entry", sig)
					cancel()
				case <-ctx.Done():
				}
			}()

			report, err := runner.RunOnce(ctx, cfg, logger, stdout, flags.verbose)
			*exitCode = runner.ExitCode(report, err)
			if err != nil {
				return err
			}
			if *exitCode != exitcodes.Success {
				return fmt.Errorf("cleanup finished with %d error(s)", len(report.Errors))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "optional YAML configuration file")
	f.StringVar(&flags.root, "root", "", "directory to clean (default: current directory)")
	f.BoolVarP(&flags.dryRun, "dry-run", "n", false, "print what would be deleted without deleting")
	f.StringVar(&flags.dbPath, "db", "", "record actions in this SQLite history database")
	f.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the run")
	f.StringVar(&flags.logFile, "log-file", "", "also write logs to this rotated file")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "only report errors on stderr")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "log every matched entry")

	return cmd
}

// loadConfig reads the optional config file and lets explicitly set flags
// override it.
func loadConfig(f *pflag.FlagSet, flags rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		loaded, err := config.Load(flags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.Changed("root") {
		cfg.Root = flags.root
	}
	if f.Changed("dry-run") {
		cfg.DryRun = flags.dryRun
	}
	if f.Changed("db") {
		cfg.DatabasePath = flags.dbPath
	}
	if f.Changed("metrics-textfile") {
		cfg.MetricsTextfile = flags.metricsTextfile
	}
	if f.Changed("log-file") {
		cfg.Logging.File = flags.logFile
	}
	if f.Changed("quiet") {
		cfg.Logging.Quiet = flags.quiet
	}
	return cfg, nil
}

func execute(args []string) int {
	exitCode := exitcodes.Success
	cmd := newRootCmd(os.Stdout, os.Stderr, &exitCode)
	cmd.SetArgs(args)
	cmd.SetOut(os.Stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "treeclean: %v\n", err)
		if exitCode == exitcodes.Success {
			// flag parsing and argument errors
			exitCode = exitcodes.InvalidConfig
		}
	}
	return exitCode
}
