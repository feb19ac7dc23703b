package parser

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// extToLanguage maps the file extensions the parser accepts to their
// canonical language name.
var extToLanguage = map[string]string{
	".py":  "python",
	".pyi": "python",
}

var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

// Language returns the tree-sitter grammar used for Python sources.
// Lazily initialized on first call via sync.Once.
func Language() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = python.GetLanguage()
	})
	return grammar
}

// IsSource reports whether path names a Python source or stub file.
func IsSource(path string) bool {
	_, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ModuleName derives the dotted module name of a file relative to the
// project root. A package's __init__ file names the package itself; the
// second result reports that case.
func ModuleName(rel string) (string, bool) {
	rel = filepath.ToSlash(rel)
	ext := filepath.Ext(rel)
	rel = strings.TrimSuffix(rel, ext)
	parts := strings.Split(rel, "/")
	pkg := false
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
		pkg = true
	}
	return strings.Join(parts, "."), pkg
}
