// Package effect implements the Effect Interaction Analyzer (§4.8): a
// two-pass walk of one hook's callback body that classifies every state read
// and setter modification found inside it, for the policy engine to consume.
// Pass 1 and Pass 2's node shapes (event-listener calls, async-callback
// arguments, ref.current assignments) are grounded on the same field-name
// patterns internal/guard and internal/world/dataflow_multilang.go use.
package effect

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/flow"
	"rld/internal/guard"
	"rld/internal/model"
	"rld/internal/stability"
)

// FunctionReference is a plain identifier handed to an event-listener-method
// call (Pass 1a), e.g. the `handler` in `el.addEventListener("click", handler)`.
type FunctionReference struct {
	Name    string
	Context string // the event-listener method name, e.g. "addEventListener"
}

// Modification is one setter call found in Pass 2, already classified.
type Modification struct {
	Setter           string
	Node             *sitter.Node
	Deferred         bool
	Cleanup          bool
	FunctionalUpdate bool
	Guard            model.GuardRecord
	Flow             flow.Classification
	FlowUnknown      bool // true if the Control-Flow Classifier could not decide
}

// RefMutation is a `ref.current = expr` assignment found in Pass 2.
type RefMutation struct {
	Ref        string
	Node       *sitter.Node
	ReadsState bool
}

// Facts is the Effect Interaction Analyzer's output for one hook body.
// Modifications is deduplicated per (setter, classification): calling the
// same setter twice with an identical classification contributes one entry
// (the first call's).
type Facts struct {
	FunctionReferences map[string]FunctionReference
	StateReads         map[string]bool
	Modifications      map[string][]Modification // keyed by setter name
	RefMutations       []RefMutation
}

// Input bundles what Analyze needs about one hook site's callback.
type Input struct {
	HookType  model.HookKind
	Body      *sitter.Node // the hook callback's function body (statement_block)
	Content   []byte
	Facts     model.ComponentFacts
	PropNames map[string]bool
	Oracle    *stability.Oracle
}

// Analyze runs the two-pass walk described in §4.8.
func Analyze(in Input) Facts {
	out := Facts{
		FunctionReferences: map[string]FunctionReference{},
		StateReads:         map[string]bool{},
		Modifications:      map[string][]Modification{},
	}
	if in.Body == nil {
		return out
	}

	asyncNodes, refNames, fnRefs := pass1(in)
	out.FunctionReferences = fnRefs

	cleanupNode := cleanupFunctionBody(in.Body)

	allStates := make(map[string]bool, len(in.Facts.StateIndex))
	for s := range in.Facts.StateIndex {
		allStates[s] = true
	}

	astutil.Walk(in.Body, func(n *sitter.Node) bool {
		switch n.Type() {
		case "identifier":
			name := astutil.Text(n, in.Content)
			if !allStates[name] {
				return true
			}
			if isAssignmentTarget(n) {
				return true
			}
			out.StateReads[name] = true
		case "call_expression":
			callee := astutil.LastSegment(astutil.CalleeName(n, in.Content))
			state, isSetter := in.Facts.SetterOf[callee]
			if !isSetter {
				return true
			}
			mod := classifyModification(in, n, callee, state, allStates, asyncNodes, cleanupNode)
			dup := false
			for _, prev := range out.Modifications[callee] {
				if prev.Deferred == mod.Deferred && prev.Cleanup == mod.Cleanup &&
					prev.FunctionalUpdate == mod.FunctionalUpdate && prev.FlowUnknown == mod.FlowUnknown &&
					prev.Guard == mod.Guard && prev.Flow == mod.Flow {
					dup = true
					break
				}
			}
			if !dup {
				out.Modifications[callee] = append(out.Modifications[callee], mod)
			}
		case "assignment_expression":
			left := n.ChildByFieldName("left")
			right := n.ChildByFieldName("right")
			if left == nil || right == nil || left.Type() != "member_expression" {
				return true
			}
			obj := left.ChildByFieldName("object")
			prop := left.ChildByFieldName("property")
			if obj == nil || prop == nil || astutil.Text(prop, in.Content) != "current" {
				return true
			}
			refName := astutil.Text(obj, in.Content)
			if !refNames[refName] {
				return true
			}
			reads := false
			rightText := astutil.Text(right, in.Content)
			for s := range allStates {
				if containsIdentifier(rightText, s) {
					reads = true
					break
				}
			}
			out.RefMutations = append(out.RefMutations, RefMutation{Ref: refName, Node: n, ReadsState: reads})
		}
		return true
	})

	return out
}

// pass1 records function references passed to event-listener calls and the
// async-callback argument nodes of async-callback-receiver calls (§4.8 Pass 1).
func pass1(in Input) (asyncNodes []*sitter.Node, refNames map[string]bool, fnRefs map[string]FunctionReference) {
	refNames = map[string]bool{}
	for _, r := range in.Facts.Refs {
		refNames[r.Name] = true
	}
	fnRefs = map[string]FunctionReference{}

	astutil.Walk(in.Body, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		callee := astutil.CalleeName(n, in.Content)
		last := astutil.LastSegment(callee)

		if stability.IsEventListenerMethod(last) {
			for _, arg := range astutil.CallArgs(n) {
				if arg.Type() == "identifier" {
					name := astutil.Text(arg, in.Content)
					fnRefs[name] = FunctionReference{Name: name, Context: last}
				}
			}
		}

		if stability.IsAsyncCallbackReceiver(last) || (in.Oracle != nil && in.Oracle.IsDeferredFunction(last)) {
			for _, arg := range astutil.CallArgs(n) {
				if arg.Type() == "arrow_function" || arg.Type() == "function_expression" {
					asyncNodes = append(asyncNodes, arg)
				}
			}
		}
		return true
	})

	return asyncNodes, refNames, fnRefs
}

func classifyModification(in Input, call *sitter.Node, setter, state string, allStates map[string]bool, asyncNodes []*sitter.Node, cleanupNode *sitter.Node) Modification {
	mod := Modification{Setter: setter, Node: call}

	for _, a := range asyncNodes {
		if astutil.IsDescendant(call, a) {
			mod.Deferred = true
			return mod
		}
	}
	if cleanupNode != nil && astutil.IsDescendant(call, cleanupNode) {
		mod.Cleanup = true
		return mod
	}

	args := astutil.CallArgs(call)
	if len(args) == 1 && (args[0].Type() == "arrow_function" || args[0].Type() == "function_expression") {
		mod.FunctionalUpdate = true
	}

	mod.Guard = guard.Analyze(guard.Input{
		Call:      call,
		Boundary:  in.Body,
		Setter:    setter,
		State:     state,
		AllStates: allStates,
		PropNames: in.PropNames,
		Content:   in.Content,
	})

	// A safe guard already settles reachability (the call only ever fires
	// when the guard says it's fine); for everything else — no guard at
	// all, or a recognized-but-risky one like `if (count < 10) setCount(...)`
	// — reachability still needs to come from the Control-Flow Classifier.
	if mod.Guard.Kind == model.GuardNone || !mod.Guard.IsSafe {
		cls, err := flow.Classify(call, in.Body, in.Content)
		if err != nil {
			mod.FlowUnknown = true
		} else {
			mod.Flow = cls
		}
	}
	return mod
}

// cleanupFunctionBody returns the function node of a hook's cleanup return
// (the arrow function or function expression in a last top-level statement
// of the form `return () => {...}` or `return function(){...}`), or nil if
// the hook has none.
func cleanupFunctionBody(body *sitter.Node) *sitter.Node {
	stmts := astutil.TopLevelStatements(body)
	if len(stmts) == 0 {
		return nil
	}
	last := stmts[len(stmts)-1]
	if last.Type() != "return_statement" {
		return nil
	}
	arg := last.NamedChild(0)
	if arg == nil {
		return nil
	}
	if arg.Type() != "arrow_function" && arg.Type() != "function_expression" {
		return nil
	}
	return arg
}

func isAssignmentTarget(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "assignment_expression":
		return parent.ChildByFieldName("left") == n
	case "variable_declarator":
		return parent.ChildByFieldName("name") == n
	case "augmented_assignment_expression":
		return parent.ChildByFieldName("left") == n
	}
	return false
}

// containsIdentifier reports whether name occurs in text as a whole
// identifier: a match inside a longer identifier does not count. (The
// internal/guard checks on setter argument text use a plain substring test
// instead.)
func containsIdentifier(text, name string) bool {
	for i := 0; i+len(name) <= len(text); i++ {
		if text[i:i+len(name)] == name {
			before := i == 0 || !isIdentChar(text[i-1])
			after := i+len(name) == len(text) || !isIdentChar(text[i+len(name)])
			if before && after {
				return true
			}
		}
	}
	return false
}

func isIdentChar(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
