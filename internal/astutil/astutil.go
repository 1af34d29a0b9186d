// Package astutil collects the small Tree-sitter node helpers every stage of
// the pipeline needs (text extraction, position conversion, function-boundary
// walking). Factoring these out keeps each analysis stage's file about the
// rule it implements rather than AST plumbing, following the same split the
// teacher repo draws between internal/world's parser and its analysis files.
package astutil

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/model"
)

// Text returns the source text spanned by node.
func Text(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// Pos converts a node's start point to the spec's 1-based Position.
func Pos(node *sitter.Node) model.Position {
	if node == nil {
		return model.Position{}
	}
	p := node.StartPoint()
	return model.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

var functionNodeTypes = map[string]bool{
	"function_declaration": true,
	"function_expression":  true,
	"arrow_function":       true,
	"method_definition":    true,
	"generator_function":   true,
	"generator_function_declaration": true,
}

// IsFunctionLike reports whether node introduces a new function scope.
func IsFunctionLike(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	return functionNodeTypes[node.Type()]
}

// EnclosingFunction walks up from node's parent chain and returns the
// nearest function-like ancestor that is strictly inside boundary (exclusive
// of boundary itself). It returns nil if node has no such ancestor before
// reaching boundary, i.e. node lives directly in boundary's body: the
// "render phase" / "top of the hook body" case.
func EnclosingFunction(node, boundary *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	cur := node.Parent()
	for cur != nil && cur != boundary {
		if IsFunctionLike(cur) {
			return cur
		}
		cur = cur.Parent()
	}
	return nil
}

// IsDescendant reports whether node is within the subtree rooted at ancestor
// (inclusive of ancestor itself).
func IsDescendant(node, ancestor *sitter.Node) bool {
	if node == nil || ancestor == nil {
		return false
	}
	cur := node
	for cur != nil {
		if cur == ancestor {
			return true
		}
		cur = cur.Parent()
	}
	return false
}

// IsPascalCase reports whether name starts with an upper-case letter, the
// component-identification rule of §3.
func IsPascalCase(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}

// Walk performs a pre-order traversal of node's named descendants (node
// itself included first), calling visit on each. If visit returns false the
// traversal does not descend into that node's children.
func Walk(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		Walk(node.NamedChild(i), visit)
	}
}

// CalleeName returns the flat dotted name of a call expression's function,
// e.g. "useEffect", "console.log", "React.memo".
func CalleeName(call *sitter.Node, content []byte) string {
	if call == nil {
		return ""
	}
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	return Text(fn, content)
}

// LastSegment returns the identifier after the final '.', so "React.memo"
// becomes "memo".
func LastSegment(dotted string) string {
	parts := strings.Split(dotted, ".")
	return parts[len(parts)-1]
}

// CallArgs returns the named argument nodes of a call expression.
func CallArgs(call *sitter.Node) []*sitter.Node {
	if call == nil {
		return nil
	}
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, args.NamedChildCount())
	for i := 0; i < int(args.NamedChildCount()); i++ {
		out = append(out, args.NamedChild(i))
	}
	return out
}

// TopLevelStatements returns the immediate named children of a
// statement_block, i.e. the statements directly in that block without
// descending into nested blocks/functions.
func TopLevelStatements(block *sitter.Node) []*sitter.Node {
	if block == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, block.NamedChildCount())
	for i := 0; i < int(block.NamedChildCount()); i++ {
		out = append(out, block.NamedChild(i))
	}
	return out
}
