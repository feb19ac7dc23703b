package infer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/pyinfer/internal/tree"
)

// DefaultMaxInferred bounds the extra results produced by one top-level
// inference across all nested inferences. A node's first result is not
// counted; every further one is.
const DefaultMaxInferred = 100

// Context carries the state of one top-level inference through its nested
// calls: the nodes currently being inferred, an optional substitution frame
// for parameters, and a shared result budget. A Context is immutable; every
// derived context shares the budget of its origin.
type Context struct {
	path     *pathEntry
	frame    map[tree.Node]tree.Node
	frameKey string
	sess     *session
}

type pathEntry struct {
	node     tree.Node
	frameKey string
	next     *pathEntry
}

// session is the state shared by all contexts derived from one NewContext.
type session struct {
	produced    int
	maxInferred int
	// cuts counts results lost to cycle breaking or budget exhaustion.
	// Results computed while it changed are not cached.
	cuts int
	// units of modules not known to the registry, indexed on demand.
	transient map[*tree.Module]*Unit
}

func newContext(maxInferred int) *Context {
	if maxInferred <= 0 {
		maxInferred = DefaultMaxInferred
	}
	return &Context{sess: &session{maxInferred: maxInferred}}
}

// WithFrame returns a context in which each key (an Arg or a binding Name)
// infers to its mapped expression.
func (c *Context) WithFrame(frame map[tree.Node]tree.Node) *Context {
	out := *c
	out.frame = frame
	out.frameKey = frameKey(frame)
	return &out
}

// FrameKey returns the normalized form of the substitution frame. Two
// contexts with equal frames have equal keys.
func (c *Context) FrameKey() string { return c.frameKey }

// Substitute returns the expression n is bound to in the frame.
func (c *Context) Substitute(n tree.Node) (tree.Node, bool) {
	v, ok := c.frame[n]
	return v, ok
}

// push returns a context with n on the path. onPath reports that n was
// already being inferred under the same frame.
func (c *Context) push(n tree.Node) (ctx *Context, onPath bool) {
	for p := c.path; p != nil; p = p.next {
		if p.node == n && p.frameKey == c.frameKey {
			return c, true
		}
	}
	out := *c
	out.path = &pathEntry{node: n, frameKey: c.frameKey, next: c.path}
	return &out, false
}

// Depth returns the number of nodes on the inference path.
func (c *Context) Depth() int {
	d := 0
	for p := c.path; p != nil; p = p.next {
		d++
	}
	return d
}

func (c *Context) exhausted() bool {
	return c.sess.produced >= c.sess.maxInferred
}

func frameKey(frame map[tree.Node]tree.Node) string {
	if len(frame) == 0 {
		return ""
	}
	parts := make([]string, 0, len(frame))
	for k, v := range frame {
		parts = append(parts, fmt.Sprintf("%s=%s", nodeKey(k), nodeKey(v)))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func nodeKey(n tree.Node) string {
	var serial uint64
	if r := n.Root(); r != nil {
		serial = r.Serial()
	}
	return fmt.Sprintf("%d:%d", serial, n.ID())
}

// DefaultsFrame maps the parameters of a FunctionDef or Lambda that have a
// default value to that default.
func DefaultsFrame(fn tree.Node) map[tree.Node]tree.Node {
	var args *tree.Arguments
	switch fn := fn.(type) {
	case *tree.FunctionDef:
		args = fn.Args
	case *tree.Lambda:
		args = fn.Args
	}
	frame := make(map[tree.Node]tree.Node)
	if args == nil {
		return frame
	}
	for _, p := range args.Params {
		if p.Default != nil {
			frame[p] = p.Default
		}
	}
	return frame
}
