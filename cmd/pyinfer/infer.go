package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/pyinfer"
	"github.com/jward/pyinfer/internal/tree"
)

var inferCmd = &cobra.Command{
	Use:   "infer <file> <line> <col>",
	Short: "Infer the values of the expression at a position",
	Long:  "Loads the project containing file and infers the innermost expression at line:col. Lines are 1-based, columns 0-based.",
	Args:  cobra.ExactArgs(3),
	RunE:  runInfer,
}

func runInfer(cmd *cobra.Command, args []string) error {
	file, err := filepath.Abs(args[0])
	if err != nil {
		return outputError("infer", fmt.Errorf("resolving file path %q: %w", args[0], err))
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return outputError("infer", err)
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return outputError("infer", err)
	}

	p := pyinfer.New(projectOptions()...)
	root := findRepoRoot(filepath.Dir(file))
	m, err := loadForFile(context.Background(), p, root, file)
	if err != nil {
		return outputError("infer", err)
	}

	inf, err := inferAt(p, m, line, col)
	if err != nil {
		return outputError("infer", err)
	}
	return outputResult(CLIResult{Command: "infer", Results: inf})
}

// loadForFile loads the project under root so imports resolve, and returns
// the module parsed from file. A file the project load skipped (excluded,
// or outside a package path) is loaded on its own.
func loadForFile(ctx context.Context, p *pyinfer.Project, root, file string) (*pyinfer.Module, error) {
	if _, err := p.LoadDirectory(ctx, root); err != nil {
		return nil, err
	}
	if name, ok := pyinfer.ModuleForPath(root, file); ok {
		if m, err := p.ResolveModule(name); err == nil && m.Path == file {
			return m, nil
		}
	}
	return p.LoadFile(ctx, root, file)
}

// inferAt infers the node of m at line:col.
func inferAt(p *pyinfer.Project, m *pyinfer.Module, line, col int) (CLIInference, error) {
	n, err := pyinfer.NodeAt(m, line, col)
	if err != nil {
		return CLIInference{}, err
	}
	inf := CLIInference{
		File:   m.Path,
		Module: m.Name,
		Line:   line,
		Col:    col,
		Node:   tree.Unparse(n),
		Values: []CLIValue{},
	}
	for v := range p.Infer(n) {
		inf.Values = append(inf.Values, valueToCLI(pyinfer.Describe(v)))
	}
	return inf, nil
}

func valueToCLI(r pyinfer.Result) CLIValue {
	return CLIValue{
		Kind:    r.Kind,
		Repr:    r.Repr,
		Origin:  r.Origin,
		Line:    r.Line,
		Col:     r.Col,
		Literal: r.Literal,
	}
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}
