package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/config"
	"github.com/jward/pyinfer/internal/logging"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Set up by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *logging.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "pyinfer",
	Short:             "Static value inference for Python projects",
	Long:              "pyinfer infers the possible values of Python expressions without running them, and keeps an incremental SQLite index of every module's exported values.",
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: db_path from pyinfer.toml, relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: pyinfer.toml in the repo root)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := validateFormat(flagFormat); err != nil {
		return err
	}
	c, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = c
	logger = logging.New("pyinfer")
	if os.Getenv("PYINFER_LOG_LEVEL") == "" && os.Getenv("LOG_LEVEL") == "" {
		if err := logger.SetLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// loadConfig reads --config, or pyinfer.toml in the repo root of the
// working directory. Only an explicitly named file must exist.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		if _, err := os.Stat(flagConfig); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return config.Load(flagConfig)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	return config.Load(filepath.Join(findRepoRoot(cwd), config.FileName))
}

// projectOptions applies the loaded configuration and logger.
func projectOptions() []pyinfer.Option {
	return []pyinfer.Option{
		pyinfer.WithConfig(cfg),
		pyinfer.WithLogger(logger.Logger),
	}
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a Python project",
	Long:  "Parses every Python module under path, infers the values of its module-level names, and writes bindings, imports and exports to the SQLite database. Unchanged files are skipped.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	if flagForce {
		if err := os.Remove(dbPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	ix, err := pyinfer.Open(dbPath, projectOptions()...)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer ix.Close()

	if err := ix.IndexDirectory(context.Background(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (%d modules)\n",
		targetDir, time.Since(start).Round(time.Millisecond), len(ix.Project().Modules()))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// resolveTargetDir returns the absolute path of the directory to work on.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// configured default.
func resolveDBPath(repoRoot string) string {
	path := cfg.DBPath
	if flagDB != "" {
		path = flagDB
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}
