// Package pyinfer provides static semantic inference for Python source
// trees. For any expression or name reference of a parsed module it
// determines the set of values or definitions the expression may evaluate
// to, without executing the program.
//
// # Pipeline
//
// A [Project] is an in-memory registry of parsed modules:
//
//  1. Parse: each source file is parsed with tree-sitter into the tree model
//     and registered under its dotted module name.
//
//  2. Infer: name and attribute references are resolved through the scope
//     index and the statement filter, then inferred lazily. Results are
//     cached per module and dropped when the module, or anything it
//     imported, is re-parsed.
//
// An [Indexer] persists the exported values of every module of a directory
// to SQLite so that they can be queried without re-running inference.
//
// # Usage
//
//	p := pyinfer.New()
//	m, err := p.Parse([]byte("l = ['f']\nl.append('k')\n"), "mod")
//	if err != nil { ... }
//
//	for r := range p.InferName(m, "l") {
//		fmt.Println(pyinfer.Describe(r).Repr) // ['f', 'k']
//	}
//
// Loading a whole directory:
//
//	mods, err := p.LoadDirectory(ctx, "path/to/project")
//
// Indexing and querying:
//
//	ix, err := pyinfer.Open(".pyinfer/index.db")
//	if err != nil { ... }
//	defer ix.Close()
//
//	err = ix.IndexDirectory(ctx, "path/to/project")
//	rows, err := ix.Query().ExportsByName("__all__")
//
// # Incremental Indexing
//
// [Indexer.IndexDirectory] skips files whose content hash is unchanged.
// When the export surface of a module changes, the modules importing it,
// directly or transitively, have their exports re-inferred.
//
// # Unsupported constructs
//
// Calls, class attributes, container methods other than append and extend,
// and anything else the engine does not model infer to [Uninferable]. They
// are reported at debug level on the project's logger and are never errors.
package pyinfer
