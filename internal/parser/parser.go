// Package parser turns Python source text into the typed tree the inference
// engine consumes. Parsing is done by tree-sitter; the builder then maps the
// concrete syntax tree onto tree.Node kinds.
package parser

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/pyinfer/internal/tree"
)

// ErrSyntax is matched (via errors.Is) by every *SyntaxError.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports the first malformed region found in a source file.
type SyntaxError struct {
	Path string
	Line int
	Col  int
}

func (e *SyntaxError) Error() string {
	path := e.Path
	if path == "" {
		path = "<string>"
	}
	return fmt.Sprintf("%s:%d:%d: syntax error", path, e.Line, e.Col)
}

func (e *SyntaxError) Is(target error) bool { return target == ErrSyntax }

type options struct {
	path    string
	pkg     bool
	rewrite bool
}

// Option configures a Parse call.
type Option func(*options)

// WithPath records the file the source was read from.
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithPackage marks the unit as a package's __init__ module.
func WithPackage(pkg bool) Option {
	return func(o *options) { o.pkg = pkg }
}

// WithMutationRewrite controls the rewrite of statement-level
// NAME.append(x) and NAME.extend(x) calls into augmented assignments.
// Enabled by default.
func WithMutationRewrite(enabled bool) Option {
	return func(o *options) { o.rewrite = enabled }
}

// Parse parses source as the module modname.
func Parse(source []byte, modname string, opts ...Option) (*tree.Module, error) {
	return ParseContext(context.Background(), source, modname, opts...)
}

// ParseContext is Parse with a context that cancels the tree-sitter parse.
func ParseContext(ctx context.Context, source []byte, modname string, opts ...Option) (*tree.Module, error) {
	o := options{rewrite: true}
	for _, opt := range opts {
		opt(&o)
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(Language())

	cst, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parser: parse %s: %w", modname, err)
	}
	defer cst.Close()

	root := cst.RootNode()
	if root.HasError() {
		line, col := firstError(root)
		return nil, &SyntaxError{Path: o.path, Line: line, Col: col}
	}

	b := &builder{src: source, rewrite: o.rewrite}
	m := &tree.Module{
		Base:    b.span(root),
		Name:    modname,
		Package: o.pkg,
		Path:    o.path,
	}
	m.Body = append(b.block(root), b.endOfFrame(root))
	return tree.Finish(m), nil
}

// firstError locates the first ERROR or missing node in pre-order.
func firstError(n *sitter.Node) (int, int) {
	if n.IsError() || n.IsMissing() {
		p := n.StartPoint()
		return int(p.Row) + 1, int(p.Column)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			return firstError(c)
		}
	}
	p := n.StartPoint()
	return int(p.Row) + 1, int(p.Column)
}
