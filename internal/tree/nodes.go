package tree

import (
	"strings"

	"github.com/jward/pyinfer/internal/value"
)

// Module is the root of a parsed unit.
type Module struct {
	Base
	// Name is the dotted module name ("pkg.sub").
	Name string
	// Package is true when the unit is a package's __init__.
	Package bool
	Path    string
	Body    []Node

	serial uint64
	size   int
}

// Serial is a process-unique number assigned by Finish. A re-parsed unit
// always carries a different serial than its predecessor.
func (m *Module) Serial() uint64 { return m.serial }

// Size is the number of nodes in the module, the module included.
func (m *Module) Size() int { return m.size }

// Expressions.

type Name struct {
	Base
	Ident string
	Ctx   Ctx
}

type Attribute struct {
	Base
	Value Node
	Attr  string
	Ctx   Ctx
}

type Subscript struct {
	Base
	Value Node
	Slice Node
	Ctx   Ctx
}

type Starred struct {
	Base
	Value Node
	Ctx   Ctx
}

type Call struct {
	Base
	Func     Node
	Args     []Node
	Keywords []*Keyword
}

// Keyword is a keyword argument. Arg is empty for **kwargs.
type Keyword struct {
	Base
	Arg   string
	Value Node
}

type Constant struct {
	Base
	Value value.Value
}

type List struct {
	Base
	Elts []Node
	Ctx  Ctx
}

type Tuple struct {
	Base
	Elts []Node
	Ctx  Ctx
}

type Set struct {
	Base
	Elts []Node
}

// Dict is a dict display. A nil key marks a **spread of the matching value.
type Dict struct {
	Base
	Keys   []Node
	Values []Node
}

type BinOp struct {
	Base
	Left  Node
	Op    value.BinaryOp
	Right Node
}

type BoolOp struct {
	Base
	Op     value.BoolOpKind
	Values []Node
}

type UnaryOp struct {
	Base
	Op      value.UnaryOp
	Operand Node
}

type Compare struct {
	Base
	Left        Node
	Ops         []value.CmpOp
	Comparators []Node
}

type IfExp struct {
	Base
	Test   Node
	Body   Node
	OrElse Node
}

type NamedExpr struct {
	Base
	Target *Name
	Value  Node
}

type Lambda struct {
	Base
	Args *Arguments
	Body Node
}

type ListComp struct {
	Base
	Elt        Node
	Generators []*Comprehension
}

type SetComp struct {
	Base
	Elt        Node
	Generators []*Comprehension
}

type GeneratorExp struct {
	Base
	Elt        Node
	Generators []*Comprehension
}

type DictComp struct {
	Base
	Key        Node
	Value      Node
	Generators []*Comprehension
}

// Comprehension is one "for target in iter if ..." clause.
type Comprehension struct {
	Base
	Target Node
	Iter   Node
	Ifs    []Node
	Async  bool
}

// Unknown stands in for expressions that carry nothing inference can use:
// f-strings, await, yield, slices and the like.
type Unknown struct {
	Base
	Text string
}

// Statements.

type Expr struct {
	Base
	Value Node
}

type Assign struct {
	Base
	Targets []Node
	Value   Node
}

type AugAssign struct {
	Base
	Target Node
	Op     value.BinaryOp
	Value  Node
}

type AnnAssign struct {
	Base
	Target     Node
	Annotation Node
	// Value is nil for a bare annotation.
	Value Node
}

type Import struct {
	Base
	Names []*Alias
}

// ImportFrom is "from Module import Names". Level counts leading dots.
type ImportFrom struct {
	Base
	Module string
	Names  []*Alias
	Level  int
}

// Alias is one imported name. Name is "*" for a wildcard import.
type Alias struct {
	Base
	Name   string
	AsName string
}

// BoundName is the identifier the alias binds in its scope.
func (a *Alias) BoundName() string {
	if a.AsName != "" {
		return a.AsName
	}
	if i := strings.IndexByte(a.Name, '.'); i >= 0 {
		if _, ok := a.parent.(*Import); ok {
			return a.Name[:i]
		}
	}
	return a.Name
}

type FunctionDef struct {
	Base
	Name       string
	Decorators []Node
	Args       *Arguments
	Returns    Node
	Body       []Node
	Async      bool
}

type ClassDef struct {
	Base
	Name       string
	Decorators []Node
	Bases      []Node
	Keywords   []*Keyword
	Body       []Node
}

// Arguments is a parameter list in declaration order.
type Arguments struct {
	Base
	Params []*Arg
}

// ParamKind classifies a parameter.
type ParamKind int

const (
	Positional ParamKind = iota
	PositionalOnly
	VarPositional
	KeywordOnly
	VarKeyword
)

// Arg is a single parameter. Annotation and Default may be nil.
type Arg struct {
	Base
	Name       string
	ParamKind  ParamKind
	Annotation Node
	Default    Node
}

type If struct {
	Base
	Test   Node
	Body   []Node
	OrElse []Node
}

type For struct {
	Base
	Target Node
	Iter   Node
	Body   []Node
	OrElse []Node
	Async  bool
}

type While struct {
	Base
	Test   Node
	Body   []Node
	OrElse []Node
}

type Try struct {
	Base
	Body      []Node
	Handlers  []*ExceptHandler
	OrElse    []Node
	FinalBody []Node
}

// ExceptHandler is an except clause. Type and Name may be nil.
type ExceptHandler struct {
	Base
	Type Node
	Name *Name
	Body []Node
}

type With struct {
	Base
	Items []*WithItem
	Body  []Node
	Async bool
}

type WithItem struct {
	Base
	ContextExpr  Node
	OptionalVars Node
}

type Return struct {
	Base
	Value Node
}

type Delete struct {
	Base
	Targets []Node
}

type Global struct {
	Base
	Names []string
}

type Nonlocal struct {
	Base
	Names []string
}

type Pass struct{ Base }

type Break struct{ Base }

type Continue struct{ Base }

type Raise struct {
	Base
	Exc   Node
	Cause Node
}

type Assert struct {
	Base
	Test Node
	Msg  Node
}

// EndOfFrame closes every Module, FunctionDef and ClassDef body. Lookups made
// "from outside" a frame use it as their use site so that every binding in
// the frame is reachable.
type EndOfFrame struct{ Base }

func (*Module) Kind() Kind        { return KindModule }
func (*Name) Kind() Kind          { return KindName }
func (*Attribute) Kind() Kind     { return KindAttribute }
func (*Subscript) Kind() Kind     { return KindSubscript }
func (*Starred) Kind() Kind       { return KindStarred }
func (*Call) Kind() Kind          { return KindCall }
func (*Keyword) Kind() Kind       { return KindKeyword }
func (*Constant) Kind() Kind      { return KindConstant }
func (*List) Kind() Kind          { return KindList }
func (*Tuple) Kind() Kind         { return KindTuple }
func (*Set) Kind() Kind           { return KindSet }
func (*Dict) Kind() Kind          { return KindDict }
func (*BinOp) Kind() Kind         { return KindBinOp }
func (*BoolOp) Kind() Kind        { return KindBoolOp }
func (*UnaryOp) Kind() Kind       { return KindUnaryOp }
func (*Compare) Kind() Kind       { return KindCompare }
func (*IfExp) Kind() Kind         { return KindIfExp }
func (*NamedExpr) Kind() Kind     { return KindNamedExpr }
func (*Lambda) Kind() Kind        { return KindLambda }
func (*ListComp) Kind() Kind      { return KindListComp }
func (*SetComp) Kind() Kind       { return KindSetComp }
func (*GeneratorExp) Kind() Kind  { return KindGeneratorExp }
func (*DictComp) Kind() Kind      { return KindDictComp }
func (*Comprehension) Kind() Kind { return KindComprehension }
func (*Unknown) Kind() Kind       { return KindUnknown }
func (*Expr) Kind() Kind          { return KindExpr }
func (*Assign) Kind() Kind        { return KindAssign }
func (*AugAssign) Kind() Kind     { return KindAugAssign }
func (*AnnAssign) Kind() Kind     { return KindAnnAssign }
func (*Import) Kind() Kind        { return KindImport }
func (*ImportFrom) Kind() Kind    { return KindImportFrom }
func (*Alias) Kind() Kind         { return KindAlias }
func (*FunctionDef) Kind() Kind   { return KindFunctionDef }
func (*ClassDef) Kind() Kind      { return KindClassDef }
func (*Arguments) Kind() Kind     { return KindArguments }
func (*Arg) Kind() Kind           { return KindArg }
func (*If) Kind() Kind            { return KindIf }
func (*For) Kind() Kind           { return KindFor }
func (*While) Kind() Kind         { return KindWhile }
func (*Try) Kind() Kind           { return KindTry }
func (*ExceptHandler) Kind() Kind { return KindExceptHandler }
func (*With) Kind() Kind          { return KindWith }
func (*WithItem) Kind() Kind      { return KindWithItem }
func (*Return) Kind() Kind        { return KindReturn }
func (*Delete) Kind() Kind        { return KindDelete }
func (*Global) Kind() Kind        { return KindGlobal }
func (*Nonlocal) Kind() Kind      { return KindNonlocal }
func (*Pass) Kind() Kind          { return KindPass }
func (*Break) Kind() Kind         { return KindBreak }
func (*Continue) Kind() Kind      { return KindContinue }
func (*Raise) Kind() Kind         { return KindRaise }
func (*Assert) Kind() Kind        { return KindAssert }
func (*EndOfFrame) Kind() Kind    { return KindEndOfFrame }
