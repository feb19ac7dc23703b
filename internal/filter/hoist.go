package filter

import "github.com/jward/pyinfer/internal/tree"

// hoistable reports whether definitions in frame are visible to uses that
// textually precede them.
func hoistable(frame tree.Node) bool {
	switch frame.Kind() {
	case tree.KindModule, tree.KindClassDef:
		return true
	}
	return false
}

func definesName(assignType tree.Node) bool {
	switch assignType.(type) {
	case *tree.FunctionDef, *tree.ClassDef, *tree.Import, *tree.ImportFrom:
		return true
	}
	return false
}

// hoist appends the definitions and imports found after the use site. They
// are unioned after kept and never shadow it. Among themselves the usual
// block shadowing applies, so of two unconditional definitions in the same
// block only the later one survives. The statement holding the use site and
// any statement enclosing it are skipped.
func hoist(kept, later, stmts []tree.Node, mystmt tree.Node) []tree.Node {
	var hoisted, parents []tree.Node
	for i, node := range later {
		stmt := stmts[i]
		if !definesName(AssignType(node)) {
			continue
		}
		if mystmt != nil && (stmt == mystmt || tree.IsParentOf(stmt, mystmt)) {
			continue
		}
		if j := indexOf(parents, stmt.Parent()); j >= 0 && !AreExclusive(hoisted[j], node) {
			hoisted = append(hoisted[:j:j], hoisted[j+1:]...)
			parents = append(parents[:j:j], parents[j+1:]...)
		}
		hoisted = append(hoisted, node)
		parents = append(parents, stmt.Parent())
	}
	for _, n := range hoisted {
		if indexOf(kept, n) < 0 {
			kept = append(kept, n)
		}
	}
	return kept
}
