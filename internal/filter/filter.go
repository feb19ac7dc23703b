// Package filter decides which binding nodes of a name can reach a given use
// site.
//
// Candidates come from the scope index in source order. The filter keeps
// bindings that textually precede the use site in the same frame, drops
// bindings shadowed by a later unconditional binding in the same block, and
// keeps bindings from mutually exclusive branches side by side. Control flow
// is not otherwise modelled.
package filter

import (
	"github.com/jward/pyinfer/internal/tree"
)

// AssignType returns the node that performs the assignment a binding node
// takes part in: the Assign for an unpacking target, the For for a loop
// variable, the Import for an alias, the Arguments for a parameter. Scoped
// definitions are their own assign type.
func AssignType(n tree.Node) tree.Node {
	for usesParentAssignType(n) {
		n = n.Parent()
	}
	return n
}

func usesParentAssignType(n tree.Node) bool {
	switch n := n.(type) {
	case *tree.Name:
		return n.Ctx != tree.Load
	case *tree.Attribute:
		return n.Ctx != tree.Load
	case *tree.Subscript:
		return n.Ctx != tree.Load
	case *tree.Arg, *tree.List, *tree.Tuple, *tree.Set, *tree.Starred, *tree.Alias, *tree.WithItem:
		return true
	}
	return false
}

// optionallyAssigns reports whether the assignment may not happen at all:
// loops and comprehensions with no iterations, walrus in a short-circuit.
func optionallyAssigns(n tree.Node) bool {
	switch n.(type) {
	case *tree.NamedExpr, *tree.Comprehension, *tree.For:
		return true
	}
	return false
}

// AreExclusive reports whether a and b sit in branches of an If or Try that
// can never both execute.
func AreExclusive(a, b tree.Node) bool {
	// index a's ancestors with the child each was reached from
	children := make(map[tree.Node]tree.Node)
	prev := a
	for p := range tree.Ancestors(a) {
		children[p] = prev
		prev = p
	}

	prev = b
	for p := range tree.Ancestors(b) {
		fromA, ok := children[p]
		if !ok {
			prev = p
			continue
		}
		f1 := tree.FieldOf(fromA)
		f2 := tree.FieldOf(prev)
		switch p.(type) {
		case *tree.If:
			if f1 == "test" || f2 == "test" {
				return false
			}
			return f1 != f2
		case *tree.Try:
			if f1 != f2 {
				return (f2 == "handlers" && f1 == "orelse") || (f2 == "orelse" && f1 == "handlers")
			}
			if f1 == "handlers" {
				return prev != fromA
			}
		}
		return false
	}
	return false
}

func hasBase(n, base tree.Node) bool {
	cls, ok := n.(*tree.ClassDef)
	if !ok {
		return false
	}
	for _, b := range cls.Bases {
		if b == base {
			return true
		}
	}
	return false
}

// filteredStatements pairs each candidate with its statement. When every
// candidate is an exception handler name, only the handlers enclosing the
// use site survive.
func filteredStatements(base tree.Node, candidates []tree.Node) (nodes, stmts []tree.Node) {
	nodes = candidates
	stmts = make([]tree.Node, len(candidates))
	allHandlers := len(candidates) > 1
	for i, n := range candidates {
		stmts[i] = tree.Statement(n)
		if stmts[i].Kind() != tree.KindExceptHandler {
			allHandlers = false
		}
	}
	if !allHandlers {
		return nodes, stmts
	}
	var keptNodes, keptStmts []tree.Node
	for i, s := range stmts {
		if tree.IsParentOf(s, base) {
			keptNodes = append(keptNodes, nodes[i])
			keptStmts = append(keptStmts, s)
		}
	}
	return keptNodes, keptStmts
}

// selfFiltered handles the cases where the candidate's assignment is the use
// site's own statement. It returns the new result list and whether
// filtering stops here.
func selfFiltered(assignType, base, node tree.Node, kept []tree.Node, mystmt tree.Node) ([]tree.Node, bool) {
	switch assignType.(type) {
	case *tree.Import, *tree.ImportFrom, *tree.ClassDef, *tree.Lambda, *tree.FunctionDef:
		if tree.Statement(assignType) == mystmt {
			return []tree.Node{node}, true
		}
		return kept, false
	case *tree.Comprehension:
		if assignType == mystmt {
			switch base.(type) {
			case *tree.Constant, *tree.Name:
				return []tree.Node{base}, true
			}
		} else if tree.Statement(assignType) == mystmt {
			return []tree.Node{node}, true
		}
		return kept, false
	}
	if assignType == mystmt {
		return kept, true
	}
	if tree.Statement(assignType) == mystmt {
		return []tree.Node{node}, true
	}
	return kept, false
}

func ifAncestor(n tree.Node) *tree.If {
	for p := range tree.Ancestors(n) {
		if i, ok := p.(*tree.If); ok {
			return i
		}
	}
	return nil
}

func isOrElse(n *tree.If) bool {
	_, ok := n.Parent().(*tree.If)
	return ok && tree.FieldOf(n) == "orelse"
}

func indexOf(nodes []tree.Node, n tree.Node) int {
	for i, x := range nodes {
		if x == n {
			return i
		}
	}
	return -1
}

// Filter returns the subset of candidates, all bound in frame, that can
// reach the use site base. offset is added to the use site's line before
// comparing; -1 is used for names in class bases and parameter defaults,
// which are resolved in the enclosing frame.
func Filter(base tree.Node, candidates []tree.Node, frame tree.Node, offset int) []tree.Node {
	var myframe tree.Node
	if offset == -1 {
		myframe = tree.ParentFrame(tree.Frame(base))
	} else {
		myframe = tree.Frame(base)
		// A name whose statement is its frame belongs to the definition
		// header (a default or decorator) and is looked up outside.
		if base.Parent() != nil && tree.Statement(base) == myframe && myframe.Parent() != nil {
			myframe = tree.ParentFrame(myframe)
		}
	}

	var mystmt tree.Node
	if base.Parent() != nil {
		mystmt = tree.Statement(base)
	}

	mylineno := 0
	if myframe == frame && mystmt != nil {
		mylineno = mystmt.Pos().Line + offset
	}

	fromDecorator := tree.IsFromDecorator(base)
	nodes, stmts := filteredStatements(base, candidates)

	var kept, keptParents []tree.Node
	stopped := len(nodes)
	for i, node := range nodes {
		stmt := stmts[i]
		if line := stmt.Pos().Line; line > 0 && mylineno > 0 && line > mylineno {
			stopped = i
			break
		}
		if mystmt == stmt && fromDecorator {
			continue
		}
		if hasBase(node, base) {
			stopped = i
			break
		}

		assignType := AssignType(node)
		var done bool
		kept, done = selfFiltered(assignType, base, node, kept, mystmt)
		if done {
			stopped = len(nodes)
			break
		}

		optional := optionallyAssigns(assignType)
		if optional && tree.IsParentOf(assignType, base) {
			// inside a loop the loop variable hides earlier bindings
			kept = []tree.Node{node}
			keptParents = []tree.Node{stmt.Parent()}
			continue
		}

		if _, walrus := assignType.(*tree.NamedExpr); walrus {
			if ifParent := ifAncestor(assignType); ifParent != nil {
				switch {
				case ifAncestor(ifParent) != nil:
					optional = false
					kept = append(kept, node)
					keptParents = append(keptParents, stmt.Parent())
				case !isOrElse(ifParent):
					kept = []tree.Node{node}
					keptParents = []tree.Node{stmt.Parent()}
				default:
					kept = append(kept, node)
					keptParents = append(keptParents, stmt.Parent())
				}
			} else {
				kept = []tree.Node{node}
				keptParents = []tree.Node{stmt.Parent()}
			}
		}

		if pindex := indexOf(keptParents, stmt.Parent()); pindex >= 0 {
			// same block level as an earlier binding
			if tree.IsParentOf(AssignType(kept[pindex]), assignType) {
				continue
			}
			if !optional && !AreExclusive(kept[pindex], node) {
				kept = append(kept[:pindex:pindex], kept[pindex+1:]...)
				keptParents = append(keptParents[:pindex:pindex], keptParents[pindex+1:]...)
			}
		}

		if AreExclusive(base, node) {
			continue
		}

		if name, ok := node.(*tree.Name); ok {
			switch {
			case name.Ctx == tree.Store && stmt.Kind() == tree.KindExceptHandler:
				if !tree.IsParentOf(stmt, base) {
					continue
				}
				kept, keptParents = nil, nil
			case name.Ctx == tree.Store:
				if !optional && mystmt != nil && stmt.Parent() == mystmt.Parent() {
					kept, keptParents = nil, nil
				}
			case name.Ctx == tree.Del:
				kept, keptParents = nil, nil
				continue
			}
		}

		if indexOf(kept, node) >= 0 {
			// already recorded by the walrus branch above
			continue
		}
		kept = append(kept, node)
		if node.Kind() == tree.KindArg {
			keptParents = append(keptParents, stmt)
		} else {
			keptParents = append(keptParents, stmt.Parent())
		}
	}

	if stopped < len(nodes) && hoistable(frame) {
		kept = hoist(kept, nodes[stopped:], stmts[stopped:], mystmt)
	}
	return kept
}
