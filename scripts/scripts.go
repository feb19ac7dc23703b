// Package scripts embeds the Risor analysis scripts that ship with pyinfer.
// Each check walks the loaded project and hands its findings to report.
package scripts

import (
	"embed"
	"io/fs"
	"path"
	"strings"
)

//go:embed checks/*.risor
var FS embed.FS

// Path returns the embedded path of the check called name.
func Path(name string) string {
	return path.Join("checks", name+".risor")
}

// Names lists the embedded checks.
func Names() []string {
	entries, err := fs.ReadDir(FS, "checks")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".risor"))
	}
	return out
}

// Has reports whether name is an embedded check.
func Has(name string) bool {
	_, err := fs.Stat(FS, Path(name))
	return err == nil
}
