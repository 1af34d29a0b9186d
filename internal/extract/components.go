// Package extract implements the State & Ref Extractor (§4.2): it finds
// component scopes and, within each, the state/setter bindings, ref
// bindings, and unstable locals declared directly in the component body.
package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
)

// wrapperNames are recognized component wrappers (§3). Matching is done on
// the last dotted segment so both `memo(...)` and `React.memo(...)` match.
var wrapperNames = map[string]bool{
	"memo":       true,
	"forwardRef": true,
}

// FindComponentNodes walks the whole file looking for component-shaped
// declarations: a function declaration with an upper-case name, or a
// variable declared with an upper-case name whose initializer is a function
// expression, arrow function, or a call to a recognized wrapper around one
// (§3). It returns the underlying function/arrow node plus whether it was
// wrapper-wrapped, in source order.
func FindComponentNodes(root *sitter.Node, content []byte) []componentNode {
	var found []componentNode
	astutil.Walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_declaration":
			name := n.ChildByFieldName("name")
			if name != nil && astutil.IsPascalCase(astutil.Text(name, content)) {
				found = append(found, componentNode{
					Name: astutil.Text(name, content),
					Fn:   n,
					Body: n.ChildByFieldName("body"),
				})
			}
		case "variable_declarator":
			name := n.ChildByFieldName("name")
			if name == nil || name.Type() != "identifier" || !astutil.IsPascalCase(astutil.Text(name, content)) {
				return true
			}
			value := n.ChildByFieldName("value")
			if value == nil {
				return true
			}
			if fn, wrapped, ok := unwrapComponentValue(value, content); ok {
				found = append(found, componentNode{
					Name:    astutil.Text(name, content),
					Fn:      fn,
					Body:    fn.ChildByFieldName("body"),
					Wrapped: wrapped,
				})
			}
		}
		return true
	})
	return found
}

type componentNode struct {
	Name    string
	Fn      *sitter.Node
	Body    *sitter.Node
	Wrapped bool
}

// unwrapComponentValue recognizes `(props) => {...}`, `function(props) {...}`,
// and `memo((props) => {...})`/`forwardRef(...)`, returning the innermost
// function-like node.
func unwrapComponentValue(value *sitter.Node, content []byte) (*sitter.Node, bool, bool) {
	switch value.Type() {
	case "arrow_function", "function_expression":
		return value, false, true
	case "call_expression":
		callee := astutil.LastSegment(astutil.CalleeName(value, content))
		if !wrapperNames[callee] {
			return nil, false, false
		}
		for _, arg := range astutil.CallArgs(value) {
			if arg.Type() == "arrow_function" || arg.Type() == "function_expression" {
				return arg, true, true
			}
		}
	}
	return nil, false, false
}
