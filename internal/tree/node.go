// Package tree defines the typed syntax tree the inference engine works on.
//
// The set of node kinds is closed: every kind is a struct in this package
// and the Node interface cannot be implemented elsewhere. Nodes own their
// children; each child holds a non-owning link to its parent, set by Finish
// once the whole tree is built.
package tree

import (
	"fmt"
	"sync/atomic"
)

// Kind identifies the concrete type of a Node.
type Kind int

const (
	KindModule Kind = iota
	KindName
	KindAttribute
	KindSubscript
	KindStarred
	KindCall
	KindKeyword
	KindConstant
	KindList
	KindTuple
	KindSet
	KindDict
	KindBinOp
	KindBoolOp
	KindUnaryOp
	KindCompare
	KindIfExp
	KindNamedExpr
	KindLambda
	KindListComp
	KindSetComp
	KindGeneratorExp
	KindDictComp
	KindComprehension
	KindUnknown
	KindExpr
	KindAssign
	KindAugAssign
	KindAnnAssign
	KindImport
	KindImportFrom
	KindAlias
	KindFunctionDef
	KindClassDef
	KindArguments
	KindArg
	KindIf
	KindFor
	KindWhile
	KindTry
	KindExceptHandler
	KindWith
	KindWithItem
	KindReturn
	KindDelete
	KindGlobal
	KindNonlocal
	KindPass
	KindBreak
	KindContinue
	KindRaise
	KindAssert
	KindEndOfFrame
	KindUninferable
)

var kindNames = [...]string{
	"Module", "Name", "Attribute", "Subscript", "Starred", "Call", "Keyword",
	"Constant", "List", "Tuple", "Set", "Dict", "BinOp", "BoolOp", "UnaryOp",
	"Compare", "IfExp", "NamedExpr", "Lambda", "ListComp", "SetComp",
	"GeneratorExp", "DictComp", "Comprehension", "Unknown", "Expr", "Assign",
	"AugAssign", "AnnAssign", "Import", "ImportFrom", "Alias", "FunctionDef",
	"ClassDef", "Arguments", "Arg", "If", "For", "While", "Try",
	"ExceptHandler", "With", "WithItem", "Return", "Delete", "Global",
	"Nonlocal", "Pass", "Break", "Continue", "Raise", "Assert", "EndOfFrame",
	"Uninferable",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Pos is a source position: 1-based line, 0-based column.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Node is implemented by every tree node kind.
type Node interface {
	Kind() Kind
	// Parent returns the parent node, or nil for a Module.
	Parent() Node
	Pos() Pos
	// End is the position just past the node's source text.
	End() Pos
	// ID is the node's pre-order index within its module. Nodes synthesized
	// by the engine carry negative IDs.
	ID() int
	// Root returns the module the node belongs to.
	Root() *Module

	base() *Base
}

// Base carries the state shared by all nodes.
type Base struct {
	parent Node
	root   *Module
	pos    Pos
	end    Pos
	id     int
}

func (b *Base) Parent() Node  { return b.parent }
func (b *Base) Pos() Pos      { return b.pos }
func (b *Base) End() Pos      { return b.end }
func (b *Base) ID() int       { return b.id }
func (b *Base) Root() *Module { return b.root }
func (b *Base) base() *Base   { return b }

// Span returns a Base covering [start, end). Builders embed it in node
// literals.
func Span(start, end Pos) Base { return Base{pos: start, end: end} }

// At returns a zero-width Base at line:col.
func At(line, col int) Base {
	p := Pos{Line: line, Col: col}
	return Base{pos: p, end: p}
}

// Before reports whether p precedes q.
func (p Pos) Before(q Pos) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Col < q.Col)
}

// Ctx is the expression context of a Name, Attribute, Subscript, Starred,
// List or Tuple node.
type Ctx int

const (
	Load Ctx = iota
	Store
	Del
)

func (c Ctx) String() string {
	switch c {
	case Store:
		return "Store"
	case Del:
		return "Del"
	}
	return "Load"
}

var (
	moduleSerial    atomic.Uint64
	synthesizedNext atomic.Int64
)

// uninferable is the type of the Uninferable sentinel.
type uninferable struct{ Base }

func (*uninferable) Kind() Kind { return KindUninferable }

// Uninferable is the result produced when no sound conclusion can be
// reached. It is a singleton: compare with ==.
var Uninferable Node = &uninferable{}

// IsUninferable reports whether n is the Uninferable sentinel.
func IsUninferable(n Node) bool { return n == Uninferable }
