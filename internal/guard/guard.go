// Package guard implements the Guard Analyzer (§4.6): given a setter call
// and its ancestor chain, classifies the lexical guard (if any) enclosing
// it as safe or risky. Field-name access patterns (condition/consequence,
// left/right/operator, object/property) are grounded on
// internal/world/dataflow_multilang.go's checkJSNullComparison/
// extractJSIfGuard.
package guard

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/model"
)

// Input bundles everything the Guard Analyzer needs about one setter call.
type Input struct {
	Call      *sitter.Node // the setter call_expression
	Boundary  *sitter.Node // do not walk above this ancestor (the hook body)
	Setter    string
	State     string
	AllStates map[string]bool
	PropNames map[string]bool // component parameter/prop names, optional
	Content   []byte
}

// Analyze returns the guard enclosing in.Call, or a GuardNone record when no
// relevant guard is found.
func Analyze(in Input) model.GuardRecord {
	if rec, ok := functionalUpdateGuard(in); ok {
		return rec
	}

	ifNode := nearestIf(in.Call, in.Boundary)
	if ifNode == nil {
		return model.GuardRecord{Kind: model.GuardNone}
	}
	cond := unwrapParens(ifNode.ChildByFieldName("condition"))
	if cond == nil {
		return model.GuardRecord{Kind: model.GuardNone}
	}

	if rec, ok := inequalityGuard(in, cond); ok {
		return rec
	}
	if rec, ok := nullCheckGuard(in, cond); ok {
		return rec
	}
	if rec, ok := objectSpreadRiskGuard(in, cond); ok {
		return rec
	}
	if rec, ok := riskyBooleanGuard(in, cond); ok {
		return rec
	}
	return model.GuardRecord{Kind: model.GuardConditional, IsSafe: false, Rationale: "call is conditionally guarded; guard shape not recognized as safe"}
}

// nearestIf walks up in.Call's ancestor chain (innermost first) looking for
// the nearest if_statement whose "consequence" subtree contains the call,
// stopping at boundary.
func nearestIf(call, boundary *sitter.Node) *sitter.Node {
	cur := call.Parent()
	for cur != nil && cur != boundary {
		if cur.Type() == "if_statement" {
			cons := cur.ChildByFieldName("consequence")
			if cons != nil && astutil.IsDescendant(call, cons) {
				return cur
			}
		}
		cur = cur.Parent()
	}
	return nil
}

func unwrapParens(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" {
		inner := n.NamedChild(0)
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}

// soleSetterArgText returns the text of the setter call's single argument,
// when it has exactly one, non-function-valued argument.
func soleSetterArgText(in Input) (string, bool) {
	args := astutil.CallArgs(in.Call)
	if len(args) != 1 {
		return "", false
	}
	if args[0].Type() == "arrow_function" || args[0].Type() == "function_expression" {
		return "", false
	}
	return astutil.Text(args[0], in.Content), true
}

// operandsOfBinary returns left, operator text, right for a binary_expression.
func operandsOfBinary(n *sitter.Node, content []byte) (left *sitter.Node, op string, right *sitter.Node, ok bool) {
	if n == nil || n.Type() != "binary_expression" {
		return nil, "", nil, false
	}
	l := n.ChildByFieldName("left")
	r := n.ChildByFieldName("right")
	o := n.ChildByFieldName("operator")
	if l == nil || r == nil || o == nil {
		return nil, "", nil, false
	}
	return l, astutil.Text(o, content), r, true
}

// inequalityGuard recognizes `if (A !== B) setS(arg)` where one of A/B is the
// state identifier and the other matches the setter's sole argument text
// (§4.6 derived-state guard / equality-short-circuit).
func inequalityGuard(in Input, cond *sitter.Node) (model.GuardRecord, bool) {
	left, op, right, ok := operandsOfBinary(cond, in.Content)
	if !ok || (op != "!==" && op != "!=") {
		return model.GuardRecord{}, false
	}
	argText, hasArg := soleSetterArgText(in)
	leftText, rightText := astutil.Text(left, in.Content), astutil.Text(right, in.Content)

	var other string
	var stateSide bool
	switch {
	case leftText == in.State:
		other, stateSide = rightText, true
	case rightText == in.State:
		other, stateSide = leftText, true
	}
	if !stateSide {
		return model.GuardRecord{}, false
	}
	if hasArg && other != argText {
		return model.GuardRecord{}, false
	}

	if in.PropNames != nil && in.PropNames[other] {
		return model.GuardRecord{Kind: model.GuardDerivedState, IsSafe: true,
			Rationale: "setter only fires when a prop differs from the tracked state, the standard derived-state idiom"}, true
	}
	return model.GuardRecord{Kind: model.GuardInequality, IsSafe: true,
		Rationale: "setter only fires when its argument differs from current state"}, true
}

// nullCheckGuard recognizes `if (!s) setS(init)` (or `s == null`/`s === undefined`
// forms) where the setter argument does not reference the state itself.
func nullCheckGuard(in Input, cond *sitter.Node) (model.GuardRecord, bool) {
	isGuardOnState := false

	switch cond.Type() {
	case "unary_expression":
		op := cond.ChildByFieldName("operator")
		argument := cond.ChildByFieldName("argument")
		if op != nil && argument != nil && astutil.Text(op, in.Content) == "!" && astutil.Text(argument, in.Content) == in.State {
			isGuardOnState = true
		}
	case "binary_expression":
		left, op, right, ok := operandsOfBinary(cond, in.Content)
		if ok && (op == "==" || op == "===") {
			leftText, rightText := astutil.Text(left, in.Content), astutil.Text(right, in.Content)
			isNullLit := func(s string) bool { return s == "null" || s == "undefined" }
			if leftText == in.State && isNullLit(rightText) {
				isGuardOnState = true
			}
			if rightText == in.State && isNullLit(leftText) {
				isGuardOnState = true
			}
		}
	case "identifier":
		// bare truthy check on another identifier is not a null guard on state
	}
	if !isGuardOnState {
		return model.GuardRecord{}, false
	}

	args := astutil.CallArgs(in.Call)
	for _, a := range args {
		if strings.Contains(astutil.Text(a, in.Content), in.State) {
			// argument reads the very state being null-checked: not the safe idiom
			return model.GuardRecord{}, false
		}
	}
	return model.GuardRecord{Kind: model.GuardNullCheck, IsSafe: true,
		Rationale: "setter only fires when the state is still unset, and the new value does not depend on it"}, true
}

// objectSpreadRiskGuard recognizes a guard comparing a property of the state
// object while the setter argument spreads that same object: the identity
// changes on every call even when the compared property does not.
func objectSpreadRiskGuard(in Input, cond *sitter.Node) (model.GuardRecord, bool) {
	left, op, right, ok := operandsOfBinary(cond, in.Content)
	if !ok || (op != "!==" && op != "!=" && op != "==" && op != "===") {
		return model.GuardRecord{}, false
	}
	comparesStateProperty := false
	for _, side := range []*sitter.Node{left, right} {
		if side.Type() != "member_expression" {
			continue
		}
		obj := side.ChildByFieldName("object")
		if obj != nil && astutil.Text(obj, in.Content) == in.State {
			comparesStateProperty = true
		}
	}
	if !comparesStateProperty {
		return model.GuardRecord{}, false
	}

	args := astutil.CallArgs(in.Call)
	if len(args) != 1 || args[0].Type() != "object" {
		return model.GuardRecord{}, false
	}
	spreadsState := false
	obj := args[0]
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		child := obj.NamedChild(i)
		if child.Type() == "spread_element" && astutil.Text(child, in.Content) == "..."+in.State {
			spreadsState = true
		}
	}
	if !spreadsState {
		return model.GuardRecord{}, false
	}
	return model.GuardRecord{Kind: model.GuardObjectSpreadRisk, IsSafe: false,
		Rationale: "guard checks one property of the state object, but the setter spreads the whole object into a new reference every call"}, true
}

// riskyBooleanGuard recognizes a conditional guard that still reads the same
// state in its argument, e.g. `if (s < N) setS(s + 1)`.
func riskyBooleanGuard(in Input, cond *sitter.Node) (model.GuardRecord, bool) {
	if !strings.Contains(astutil.Text(cond, in.Content), in.State) {
		return model.GuardRecord{}, false
	}
	for _, a := range astutil.CallArgs(in.Call) {
		if a.Type() == "arrow_function" || a.Type() == "function_expression" {
			continue
		}
		if strings.Contains(astutil.Text(a, in.Content), in.State) {
			return model.GuardRecord{Kind: model.GuardConditional, IsSafe: false,
				Rationale: "guard still reads the state it is protecting, so the condition only ever delays the loop"}, true
		}
	}
	return model.GuardRecord{}, false
}

// functionalUpdateGuard recognizes `setS(f => ...)` where the updater body
// does not close over any other component-scope state name. This check does
// not require an enclosing if_statement at all.
func functionalUpdateGuard(in Input) (model.GuardRecord, bool) {
	args := astutil.CallArgs(in.Call)
	if len(args) != 1 {
		return model.GuardRecord{}, false
	}
	fn := args[0]
	if fn.Type() != "arrow_function" && fn.Type() != "function_expression" {
		return model.GuardRecord{}, false
	}
	// Arrow functions allow a single bare identifier parameter without
	// parens (`x => ...`); the grammar exposes that identifier under the
	// "parameter" field instead of a formal_parameters list under
	// "parameters".
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		params = fn.ChildByFieldName("parameter")
	}
	if params == nil {
		return model.GuardRecord{}, false
	}
	singleParam := params.Type() == "identifier" || params.NamedChildCount() == 1
	if !singleParam {
		return model.GuardRecord{}, false
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		return model.GuardRecord{}, false
	}
	readsOtherState := false
	astutil.Walk(body, func(n *sitter.Node) bool {
		if n.Type() != "identifier" {
			return true
		}
		name := astutil.Text(n, in.Content)
		if name != in.State && in.AllStates[name] {
			readsOtherState = true
		}
		return true
	})
	if readsOtherState {
		return model.GuardRecord{}, false
	}
	return model.GuardRecord{Kind: model.GuardFunctionalUpdate, IsSafe: true,
		Rationale: "functional update does not close over other component state"}, true
}
