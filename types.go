package pyinfer

import (
	"github.com/jward/pyinfer/internal/config"
	"github.com/jward/pyinfer/internal/infer"
	"github.com/jward/pyinfer/internal/parser"
	"github.com/jward/pyinfer/internal/store"
	"github.com/jward/pyinfer/internal/tree"
	"github.com/jward/pyinfer/internal/value"
)

// Public type aliases for the internal types that appear in the Project,
// Indexer and QueryBuilder APIs.

type Node = tree.Node
type Module = tree.Module
type Pos = tree.Pos
type Context = infer.Context
type Value = value.Value
type Config = config.Config
type ParseOption = parser.Option

type File = store.File
type Binding = store.Binding
type Import = store.Import
type ModuleExport = store.ModuleExport

// Uninferable is the result standing for "no sound answer".
var Uninferable = tree.Uninferable

// Sentinel errors wrapped by the package.
var (
	ErrSyntax      = parser.ErrSyntax
	ErrNotALiteral = infer.ErrNotALiteral
)

// WithPath records the file a module was parsed from.
func WithPath(path string) ParseOption { return parser.WithPath(path) }

// WithPackage marks a module as a package's __init__.
func WithPackage(pkg bool) ParseOption { return parser.WithPackage(pkg) }
