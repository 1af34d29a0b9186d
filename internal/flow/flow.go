// Package flow implements the Control-Flow Classifier (§4.7): a bounded
// reachability analysis over a hook body that reports, per setter call,
// whether it is reachable, whether every completing path that reaches the
// body also reaches the call, and a short rationale. It degrades to
// "unknown" (via *model.AnalysisError) rather than panicking on
// unrecognized shapes, per §7.
package flow

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/model"
)

// Classification is the Control-Flow Classifier's verdict for one setter
// call.
type Classification struct {
	Reachable     bool
	Unconditional bool
	Rationale     string
}

// Classify walks call's ancestor chain up to (exclusive of) boundary,
// deciding reachability and unconditionality. content is the source text
// call/boundary were parsed from, needed to read operator tokens of
// short-circuiting logical expressions.
func Classify(call, boundary *sitter.Node, content []byte) (Classification, error) {
	if call == nil || boundary == nil {
		return Classification{}, &model.AnalysisError{Stage: "flow", Reason: "nil call or boundary node"}
	}
	if !astutil.IsDescendant(call, boundary) {
		return Classification{}, &model.AnalysisError{Stage: "flow", Reason: "call is not within the given boundary"}
	}

	unconditional := true
	child := call
	parent := call.Parent()
	for parent != nil && parent != boundary {
		if conditional(parent, child, content) {
			unconditional = false
		}
		child = parent
		parent = parent.Parent()
	}

	reachable := !precededByUnconditionalExit(call, boundary)

	rationale := "call executes on every completing path"
	switch {
	case !reachable:
		rationale = "call is preceded by an unconditional return/throw in the same block"
	case !unconditional:
		rationale = "call is inside a branch that may not execute"
	}

	return Classification{Reachable: reachable, Unconditional: unconditional && reachable, Rationale: rationale}, nil
}

// conditional reports whether descending from n into child passes through a
// branch that is not guaranteed to execute whenever n is reached.
func conditional(n, child *sitter.Node, content []byte) bool {
	switch n.Type() {
	case "if_statement":
		cons := n.ChildByFieldName("consequence")
		alt := n.ChildByFieldName("alternative")
		return astutil.IsDescendant(child, cons) || (alt != nil && astutil.IsDescendant(child, alt))
	case "ternary_expression":
		cons := n.ChildByFieldName("consequence")
		alt := n.ChildByFieldName("alternative")
		return astutil.IsDescendant(child, cons) || astutil.IsDescendant(child, alt)
	case "binary_expression":
		op := n.ChildByFieldName("operator")
		if op == nil {
			return false
		}
		opText := astutil.Text(op, content)
		if opText != "&&" && opText != "||" {
			return false
		}
		right := n.ChildByFieldName("right")
		return astutil.IsDescendant(child, right)
	case "switch_case", "switch_default", "for_statement", "for_in_statement",
		"while_statement", "do_statement", "catch_clause":
		return true
	default:
		return false
	}
}

// precededByUnconditionalExit reports whether, in the statement_block
// directly enclosing call (or any ancestor block up to boundary), an
// earlier sibling statement is an unconditional return/throw — meaning call
// can never execute.
func precededByUnconditionalExit(call, boundary *sitter.Node) bool {
	node := call
	block := enclosingBlock(node, boundary)
	for block != nil {
		branchStmt := statementContaining(block, node)
		for i := 0; i < int(block.NamedChildCount()); i++ {
			stmt := block.NamedChild(i)
			if stmt == branchStmt {
				break
			}
			if stmt.Type() == "return_statement" || stmt.Type() == "throw_statement" {
				return true
			}
		}
		if block == boundary {
			break
		}
		node = block
		block = enclosingBlock(block, boundary)
	}
	return false
}

func enclosingBlock(node, boundary *sitter.Node) *sitter.Node {
	cur := node.Parent()
	for cur != nil {
		if cur.Type() == "statement_block" {
			return cur
		}
		if cur == boundary {
			return nil
		}
		cur = cur.Parent()
	}
	return nil
}

// statementContaining returns the immediate child of block that contains
// (or equals) node.
func statementContaining(block, node *sitter.Node) *sitter.Node {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		if stmt == node || astutil.IsDescendant(node, stmt) {
			return stmt
		}
	}
	return nil
}
