package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
)

// formatValuesText formats inferred values as aligned columns.
func formatValuesText(w io.Writer, vals []CLIValue) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tVALUE\tORIGIN")
	for _, v := range vals {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Kind, v.Repr, location(v.Origin, v.Line, v.Col))
	}
	tw.Flush()
}

// formatInferenceText prints the inferred node followed by its values.
func formatInferenceText(w io.Writer, inf CLIInference) {
	fmt.Fprintf(w, "%s:%d:%d  %s\n\n", inf.Module, inf.Line, inf.Col, inf.Node)
	formatValuesText(w, inf.Values)
}

// formatExportsText formats CLIExport results as aligned columns.
func formatExportsText(w io.Writer, exports []CLIExport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tNAME\tKIND\tVALUE\tORIGIN")
	for _, e := range exports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Module, e.Name, e.Kind, e.Repr, location(e.Origin, e.Line, e.Col))
	}
	tw.Flush()
}

// formatImportsText formats CLIImport results as aligned columns.
func formatImportsText(w io.Writer, imports []CLIImport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tNAME\tAS\tLINE")
	for _, imp := range imports {
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%d\n",
			strings.Repeat(".", imp.Level), imp.Module, deref(imp.Name), deref(imp.AsName), imp.Line)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODULE\tPATH\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", f.ID, f.Module, f.Path, f.LineCount)
	}
	tw.Flush()
}

// formatRecordsText formats script reports as aligned columns, one column
// per key in sorted order.
func formatRecordsText(w io.Writer, records []map[string]any) {
	keys := make(map[string]bool)
	for _, r := range records {
		for k := range r {
			keys[k] = true
		}
	}
	cols := slices.Sorted(maps.Keys(keys))
	if len(cols) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, r := range records {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if v, ok := r[c]; ok && v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func location(origin string, line, col int) string {
	if origin == "" {
		return ""
	}
	if line == 0 {
		return origin
	}
	return fmt.Sprintf("%s:%d:%d", origin, line, col)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIInference:
		formatInferenceText(w, v)
	case []CLIValue:
		formatValuesText(w, v)
	case []CLIExport:
		formatExportsText(w, v)
	case []CLIImport:
		formatImportsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case []map[string]any:
		formatRecordsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// writeResult writes result to w in the selected format.
func writeResult(w io.Writer, format string, result CLIResult) error {
	if format == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResult writes result to stdout in the --format format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, flagFormat, result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = writeResult(os.Stdout, "json", CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
