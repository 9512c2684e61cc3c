// Package cmd implements the blobtree command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/blobtree/internal/config"
	apperrors "github.com/3leaps/blobtree/internal/errors"
	"github.com/3leaps/blobtree/internal/observability"
	"github.com/3leaps/blobtree/internal/server/handlers"
	"github.com/3leaps/blobtree/internal/source"
)

const serviceName = "blobtree"

var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata. It is called from main before
// Execute.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

// app is the state shared by the commands of one invocation.
type app struct {
	configPath string
	logLevel   string
	logProfile string
	verbose    bool

	cfg *config.Config

	// open resolves URIs to backends; set from cfg unless a test installed
	// one.
	open source.OpenFunc
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "blobtree",
		Short: "Browse blob stores as directory trees",
		Long: `blobtree lists S3, MinIO and local directories one level or one subtree
at a time, with glob and attribute filters, bounded concurrency and
optional per-file metadata.

Examples:
  blobtree ls s3://bucket/logs/
  blobtree ls s3://bucket/logs/**/*.gz --max-results 100 --output table
  blobtree stat minio://bucket/reports/q1.csv
  blobtree serve --config blobtree.yaml`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	flags.StringVar(&a.logProfile, "log-profile", "", "Log profile (structured|console)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(newLsCmd(a), newStatCmd(a), newServeCmd(a), newVersionCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	overrides := map[string]any{}
	if a.configPath != "" {
		overrides[config.KeyConfigFile] = a.configPath
	}
	logging := map[string]any{}
	if a.logLevel != "" {
		logging["level"] = a.logLevel
	}
	if a.verbose {
		logging["level"] = "debug"
	}
	if a.logProfile != "" {
		logging["profile"] = a.logProfile
	}
	if len(logging) > 0 {
		overrides["logging"] = logging
	}

	cfg, err := config.Load(cmd.Context(), overrides)
	if err != nil {
		return exitError(ExitInvalidArgument, "Invalid configuration", err)
	}
	if err := observability.Configure(serviceName, cfg.Logging.Level, cfg.Logging.Profile); err != nil {
		return exitError(ExitInvalidArgument, "Invalid logging configuration", err)
	}
	a.cfg = cfg
	if a.open == nil {
		a.open = source.NewOpener(cfg, observability.CLILogger).Open
	}

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("command", cmd.Name()),
		zap.Int("parallelism", cfg.Browse.Parallelism),
		zap.Int("page_size", cfg.Browse.PageSize))
	return nil
}

// Execute runs the command line and exits with the code the error maps to.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
	stop()
	observability.Sync()
	os.Exit(code)
}

func run(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	_, _ = fmt.Fprintln(stderr, "Error:", err)
	return ExitCode(err)
}

// badRequest marks user input errors so they map to ExitInvalidArgument.
func badRequest(err error) error {
	return apperrors.BadRequest(err)
}
