package resolve

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
)

// MethodCall is one "receiver.method(...)" call site.
type MethodCall struct {
	Receiver string
	Method   string
}

// CallGraph is every direct function-to-function and method call within one
// file, unfiltered by setter knowledge — the generic edges internal/relate's
// Datalog program chains across hops to decide transitive and cross-file
// setter reachability (§4.5). This is deliberately broader than FileSetterMap,
// which only records setter-reaching calls; local_reaches needs the full
// call graph so it can recurse through intermediate functions that never
// touch a setter themselves.
type CallGraph struct {
	// Calls maps a function/method name to the plain function names it
	// calls directly.
	Calls map[string][]string
	// MethodCalls maps a function/method name to the receiver.method calls
	// it makes directly.
	MethodCalls map[string][]MethodCall
}

func newCallGraph() CallGraph {
	return CallGraph{Calls: map[string][]string{}, MethodCalls: map[string][]MethodCall{}}
}

// BuildCallGraph walks root for the same function shapes Build recognizes
// (function declarations, function-valued variables, named-object-literal
// methods) plus the component bodies themselves, recording every call each
// one makes directly.
func BuildCallGraph(root *sitter.Node, content []byte) CallGraph {
	out := newCallGraph()
	if root == nil {
		return out
	}
	astutil.Walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_declaration":
			name := n.ChildByFieldName("name")
			if name == nil {
				return true
			}
			recordDirectCalls(astutil.Text(name, content), n.ChildByFieldName("body"), content, &out)
		case "variable_declarator":
			name := n.ChildByFieldName("name")
			value := n.ChildByFieldName("value")
			if name == nil || name.Type() != "identifier" || value == nil {
				return true
			}
			switch value.Type() {
			case "arrow_function", "function_expression":
				recordDirectCalls(astutil.Text(name, content), value.ChildByFieldName("body"), content, &out)
			case "object":
				collectObjectMethodCalls(astutil.Text(name, content), value, content, &out)
			}
		}
		return true
	})
	return out
}

func collectObjectMethodCalls(objName string, obj *sitter.Node, content []byte, out *CallGraph) {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		prop := obj.NamedChild(i)
		var key, body *sitter.Node
		switch prop.Type() {
		case "method_definition":
			key = prop.ChildByFieldName("name")
			body = prop.ChildByFieldName("body")
		case "pair":
			key = prop.ChildByFieldName("key")
			value := prop.ChildByFieldName("value")
			if value == nil || (value.Type() != "arrow_function" && value.Type() != "function_expression") {
				continue
			}
			body = value.ChildByFieldName("body")
		default:
			continue
		}
		if key == nil || body == nil {
			continue
		}
		recordDirectCalls(objName+"."+astutil.Text(key, content), body, content, out)
	}
}

// HookSiteCalls records the direct calls and method calls a hook body makes,
// keyed under siteID so the caller can feed them into the Cross-File
// Relation Builder as the entry point for that hook site's reachability.
func HookSiteCalls(siteID string, body *sitter.Node, content []byte) CallGraph {
	out := newCallGraph()
	recordDirectCalls(siteID, body, content, &out)
	return out
}

// recordDirectCalls walks body (not descending into nested function-like
// subtrees, the same boundary rule directSetterUses applies) recording every
// call expression made directly under name.
func recordDirectCalls(name string, body *sitter.Node, content []byte, out *CallGraph) {
	if body == nil {
		return
	}
	astutil.Walk(body, func(n *sitter.Node) bool {
		if n != body && astutil.IsFunctionLike(n) {
			return false
		}
		if n.Type() != "call_expression" {
			return true
		}
		callee := astutil.CalleeName(n, content)
		if dot := strings.LastIndex(callee, "."); dot >= 0 {
			out.MethodCalls[name] = append(out.MethodCalls[name], MethodCall{Receiver: callee[:dot], Method: callee[dot+1:]})
			return true
		}
		out.Calls[name] = append(out.Calls[name], callee)
		return true
	})
}
