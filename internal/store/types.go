package store

import "time"

type File struct {
	ID        int64
	Path      string
	Module    string
	IsPackage bool
	Hash      string
	// ExportsHash fingerprints the file's export rows. Importers only need
	// re-inference when it changes.
	ExportsHash string
	LineCount   int
	LastIndexed time.Time
}

// Binding is a name bound in some scope of a module.
type Binding struct {
	ID     int64
	FileID int64
	Name   string
	// Kind is "assign", "import", "def", "class", "param", ...
	Kind string
	// Scope is the qualified name of the binding scope.
	Scope string
	Line  int
	Col   int
}

type Import struct {
	ID     int64
	FileID int64
	// Module is the absolute dotted module the statement imports from.
	Module string
	Name   *string
	AsName *string
	Level  int
	Line   int
}

// Export is one inferred value of a module-level name.
type Export struct {
	ID     int64
	FileID int64
	Name   string
	// Kind is "literal", "function", "class", "lambda", "module",
	// "uninferable" or "value".
	Kind string
	// Literal holds the JSON encoding of a literal value.
	Literal *string
	Repr    string
	// Origin is the module the value was defined in.
	Origin string
	Line   int
	Col    int
}

// ModuleExport is an Export together with the module and file it was
// recorded for.
type ModuleExport struct {
	Export
	Module string
	Path   string
}
