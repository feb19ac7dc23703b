package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/store"
)

var flagTransitive bool

var exportsCmd = &cobra.Command{
	Use:   "exports <module>",
	Short: "List the indexed values of a module's names",
	Args:  cobra.ExactArgs(1),
	RunE:  runExports,
}

var namesCmd = &cobra.Command{
	Use:   "names <name>",
	Short: "Find every indexed module exporting a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runNames,
}

var depsCmd = &cobra.Command{
	Use:   "deps <module>",
	Short: "List the imports of a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeps,
}

var dependentsCmd = &cobra.Command{
	Use:   "dependents <module>",
	Short: "List the modules importing a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runDependents,
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func init() {
	dependentsCmd.Flags().BoolVar(&flagTransitive, "transitive", false, "include indirect importers")

	rootCmd.AddCommand(exportsCmd)
	rootCmd.AddCommand(namesCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(dependentsCmd)
	rootCmd.AddCommand(filesCmd)
}

// openIndex opens the existing index of the working directory's repo.
func openIndex() (*pyinfer.Indexer, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("database not found: %s (run 'pyinfer index' first)", dbPath)
	}
	return pyinfer.Open(dbPath, projectOptions()...)
}

func runExports(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return outputError("exports", err)
	}
	defer ix.Close()

	rows, err := ix.Query().ExportsByModule(args[0])
	if err != nil {
		return outputError("exports", err)
	}
	if len(rows) == 0 {
		f, err := ix.Query().File(args[0])
		if err != nil {
			return outputError("exports", err)
		}
		if f == nil {
			return outputError("exports", fmt.Errorf("module %q is not indexed", args[0]))
		}
	}
	out, err := exportsToCLI(rows)
	if err != nil {
		return outputError("exports", err)
	}
	return outputResult(CLIResult{Command: "exports", Results: out})
}

func runNames(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return outputError("names", err)
	}
	defer ix.Close()

	rows, err := ix.Query().ExportsByName(args[0])
	if err != nil {
		return outputError("names", err)
	}
	out, err := exportsToCLI(rows)
	if err != nil {
		return outputError("names", err)
	}
	return outputResult(CLIResult{Command: "names", Results: out})
}

func runDeps(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return outputError("deps", err)
	}
	defer ix.Close()

	imports, err := ix.Query().Dependencies(args[0])
	if err != nil {
		return outputError("deps", err)
	}
	if imports == nil {
		return outputError("deps", fmt.Errorf("module %q is not indexed", args[0]))
	}
	out := make([]CLIImport, 0, len(imports))
	for _, imp := range imports {
		out = append(out, CLIImport{
			Module: imp.Module,
			Name:   imp.Name,
			AsName: imp.AsName,
			Level:  imp.Level,
			Line:   imp.Line,
		})
	}
	return outputResult(CLIResult{Command: "deps", Results: out})
}

func runDependents(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return outputError("dependents", err)
	}
	defer ix.Close()

	files, err := ix.Query().Dependents(args[0], flagTransitive)
	if err != nil {
		return outputError("dependents", err)
	}
	return outputResult(CLIResult{Command: "dependents", Results: filesToCLI(files)})
}

func runFiles(cmd *cobra.Command, args []string) error {
	ix, err := openIndex()
	if err != nil {
		return outputError("files", err)
	}
	defer ix.Close()

	files, err := ix.Query().Files()
	if err != nil {
		return outputError("files", err)
	}
	return outputResult(CLIResult{Command: "files", Results: filesToCLI(files)})
}

// exportsToCLI converts export rows, decoding stored literals.
func exportsToCLI(rows []*store.ModuleExport) ([]CLIExport, error) {
	out := make([]CLIExport, 0, len(rows))
	for _, r := range rows {
		lit, err := store.UnmarshalLiteral(r.Literal)
		if err != nil {
			return nil, fmt.Errorf("export %s.%s: %w", r.Module, r.Name, err)
		}
		out = append(out, CLIExport{
			Module:  r.Module,
			Name:    r.Name,
			Kind:    r.Kind,
			Repr:    r.Repr,
			Origin:  r.Origin,
			Line:    r.Line,
			Col:     r.Col,
			Literal: lit,
			File:    r.Path,
		})
	}
	return out, nil
}

func filesToCLI(files []*store.File) []CLIFile {
	out := make([]CLIFile, 0, len(files))
	for _, f := range files {
		out = append(out, CLIFile{
			ID:        f.ID,
			Path:      f.Path,
			Module:    f.Module,
			IsPackage: f.IsPackage,
			LineCount: f.LineCount,
		})
	}
	return out
}
