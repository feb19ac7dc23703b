package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/runtime"
	"github.com/jward/pyinfer/scripts"
)

var runCmd = &cobra.Command{
	Use:   "run <script.risor|check> [path]",
	Short: "Run a Risor analysis script over a project",
	Long: `Loads the Python project at path (default: the current directory) and runs
a Risor script against it. The script is a .risor file or the name of a
built-in check (` + strings.Join(scripts.Names(), ", ") + `).

Scripts can call modules, parse, parse_src, infer, literal, unparse, resolve,
bindings and exports. When the project has an index, indexed_exports,
indexed_bindings and dependents are available too. The global "root" holds
the project directory. Maps passed to report are printed as the results.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args[1:])
	if err != nil {
		return err
	}
	ctx := context.Background()

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(logger.Logger)}
	var p *pyinfer.Project
	dbPath := resolveDBPath(findRepoRoot(targetDir))
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		p = pyinfer.New(projectOptions()...)
	} else {
		ix, err := pyinfer.Open(dbPath, projectOptions()...)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		defer ix.Close()
		p = ix.Project()
		rtOpts = append(rtOpts, runtime.WithQuery(ix.Query()))
	}

	if _, err := p.LoadDirectory(ctx, targetDir); err != nil {
		return err
	}

	var rt *runtime.Runtime
	script := args[0]
	if !strings.HasSuffix(script, ".risor") && scripts.Has(script) {
		rt = runtime.NewRuntime(p, "", append(rtOpts, runtime.WithRuntimeFS(scripts.FS))...)
		script = scripts.Path(script)
	} else {
		abs, err := filepath.Abs(script)
		if err != nil {
			return fmt.Errorf("resolving script path %q: %w", script, err)
		}
		rt = runtime.NewRuntime(p, filepath.Dir(abs), rtOpts...)
		script = abs
	}

	if err := rt.RunScript(ctx, script, map[string]any{"root": targetDir}); err != nil {
		return outputError("run", err)
	}
	reports := rt.Reports()
	if reports == nil {
		reports = []map[string]any{}
	}
	return outputResult(CLIResult{Command: "run", Results: reports})
}
