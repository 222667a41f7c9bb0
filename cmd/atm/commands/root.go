package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tgienger/atm/internal/config"
	"github.com/tgienger/atm/internal/db"
	"github.com/tgienger/atm/internal/logger"
	"github.com/tgienger/atm/internal/storage"
	"github.com/tgienger/atm/internal/ui"
)

// persistent flag names
const (
	flagDir      = "dir"
	flagGlobal   = "global"
	flagBackend  = "backend"
	flagLogLevel = "log-level"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UIRunner starts the interactive browser on an open storage
type UIRunner func(store *storage.Storage, cfg *config.Config) error

// session carries the resolved configuration from PersistentPreRunE to the
// command that runs
type session struct {
	dir      string
	global   bool
	backend  string
	logLevel string

	cfg     *config.Config
	workDir string
	runUI   UIRunner
}

// NewRootCmd builds the full command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(runTUI)
}

func newRootCmd(runUI UIRunner) *cobra.Command {
	s := &session{runUI: runUI}

	root := &cobra.Command{
		Use:   "atm",
		Short: "atm - projects, hierarchical tasks and memories in your working directory",
		Long: `atm stores projects, tasks of any depth and free-form memories as JSON
documents in the .agentic-tools-mcp directory of a project.
Run without a subcommand to open the interactive browser.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.tui()
		},
	}
	root.SetVersionTemplate("atm {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVarP(&s.dir, flagDir, "C", "", "Project directory (default: current directory)")
	flags.BoolVar(&s.global, flagGlobal, false, "Store data under the home directory instead of the project (env: ATM_USE_GLOBAL_DIRECTORY)")
	flags.StringVar(&s.backend, flagBackend, config.BackendFile, "Storage backend: file or sqlite (env: ATM_BACKEND)")
	flags.StringVar(&s.logLevel, flagLogLevel, "warn", "Log level (env: ATM_LOG_LEVEL)")

	root.AddCommand(newProjectsCmd(s))
	root.AddCommand(newTasksCmd(s))
	root.AddCommand(newMemoriesCmd(s))
	root.AddCommand(newMigrateCmd(s))
	root.AddCommand(&cobra.Command{
		Use:   "tui",
		Short: "Open the interactive browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.tui()
		},
	})
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command line
func Execute() error {
	return NewRootCmd().Execute()
}

// setup resolves configuration with the precedence
// defaults < config file < .env < environment < flags
func (s *session) setup(cmd *cobra.Command) error {
	dir := s.dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting current directory: %w", err)
		}
		dir = wd
	} else if !filepath.IsAbs(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("error resolving directory %q: %w", dir, err)
		}
		dir = abs
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed(flagGlobal) {
		cfg.Storage.UseGlobalDirectory = s.global
	}
	if cmd.Flags().Changed(flagBackend) {
		cfg.Storage.Backend = s.backend
	}
	if cmd.Flags().Changed(flagLogLevel) {
		cfg.Log.Level = s.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}

	workDir, err := config.ResolveWorkingDirectory(dir, cfg)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.workDir = workDir
	return nil
}

func (s *session) open() (*storage.Storage, error) {
	var opts []storage.Option
	if s.cfg.Storage.Backend == config.BackendSQLite {
		opts = append(opts, storage.WithSQLite())
	}
	return storage.Open(s.workDir, opts...)
}

// withStorage opens the storage for one command and closes it afterwards
func (s *session) withStorage(fn func(store *storage.Storage) error) error {
	store, err := s.open()
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (s *session) tui() error {
	return s.withStorage(func(store *storage.Storage) error {
		return s.runUI(store, s.cfg)
	})
}

// runTUI keeps the last opened project in the user's settings database
func runTUI(store *storage.Storage, cfg *config.Config) error {
	if cfg.Log.File == "" {
		// the terminal belongs to the UI
		logger.SetOutput(io.Discard)
	}

	settings, err := db.New()
	if err != nil {
		return fmt.Errorf("error opening settings database: %w", err)
	}
	defer settings.Close()

	return ui.Run(store, settings)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "atm %s (commit: %s, built: %s)\n", Version, Commit, Date)
			return nil
		},
	}
}

// printJSON pretty prints v to the command's output
func printJSON(cmd *cobra.Command, v any) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(prettyJSON))
	return nil
}

// message is printed by commands that have no entity to show
type message struct {
	Message string `json:"message"`
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Errorf("failed to mark %s flag as required for %s command: %w", name, cmd.Name(), err))
		}
	}
}
