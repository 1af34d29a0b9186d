package guard

import (
	"context"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"rld/internal/astutil"
	"rld/internal/model"
)

func parseBody(t *testing.T, fnSrc string) (*sitter.Node, []byte) {
	t.Helper()
	p := sitter.NewParser()
	p.SetLanguage(typescript.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, []byte(fnSrc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	root := tree.RootNode()
	fn := root.NamedChild(0)
	body := fn.ChildByFieldName("body")
	if body == nil {
		t.Fatalf("no function body found in %q", fnSrc)
	}
	return body, []byte(fnSrc)
}

func findCall(t *testing.T, root *sitter.Node, content []byte, callee string) *sitter.Node {
	t.Helper()
	var found *sitter.Node
	astutil.Walk(root, func(n *sitter.Node) bool {
		if n.Type() == "call_expression" && astutil.CalleeName(n, content) == callee {
			found = n
		}
		return true
	})
	if found == nil {
		t.Fatalf("no call to %s found", callee)
	}
	return found
}

func TestInequalityGuardSafe(t *testing.T) {
	body, content := parseBody(t, `function C() {
	if (x !== prev) setPrev(x);
}`)
	call := findCall(t, body, content, "setPrev")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setPrev", State: "prev", Content: content})
	if !rec.IsSafe || rec.Kind != model.GuardInequality {
		t.Fatalf("expected safe inequality guard, got %+v", rec)
	}
}

func TestDerivedStateGuardWhenOperandIsProp(t *testing.T) {
	body, content := parseBody(t, `function C() {
	if (row !== prev) setPrev(row);
}`)
	call := findCall(t, body, content, "setPrev")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setPrev", State: "prev", PropNames: map[string]bool{"row": true}, Content: content})
	if !rec.IsSafe || rec.Kind != model.GuardDerivedState {
		t.Fatalf("expected derived-state guard, got %+v", rec)
	}
}

func TestNullCheckGuardSafe(t *testing.T) {
	body, content := parseBody(t, `function C() {
	if (!s) setS(init);
}`)
	call := findCall(t, body, content, "setS")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setS", State: "s", Content: content})
	if !rec.IsSafe || rec.Kind != model.GuardNullCheck {
		t.Fatalf("expected safe null-check guard, got %+v", rec)
	}
}

func TestRiskyBooleanGuard(t *testing.T) {
	body, content := parseBody(t, `function C() {
	if (s < 5) setS(s + 1);
}`)
	call := findCall(t, body, content, "setS")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setS", State: "s", Content: content})
	if rec.IsSafe || rec.Kind != model.GuardConditional {
		t.Fatalf("expected risky conditional guard, got %+v", rec)
	}
}

func TestFunctionalUpdateGuardSafe(t *testing.T) {
	body, content := parseBody(t, `function C() {
	setS(prev => prev + 1);
}`)
	call := findCall(t, body, content, "setS")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setS", State: "s", AllStates: map[string]bool{"s": true}, Content: content})
	if !rec.IsSafe || rec.Kind != model.GuardFunctionalUpdate {
		t.Fatalf("expected safe functional-update guard, got %+v", rec)
	}
}

func TestFunctionalUpdateGuardUnsafeWhenReadingOtherState(t *testing.T) {
	body, content := parseBody(t, `function C() {
	setS(prev => prev + other);
}`)
	call := findCall(t, body, content, "setS")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setS", State: "s", AllStates: map[string]bool{"s": true, "other": true}, Content: content})
	if rec.Kind == model.GuardFunctionalUpdate {
		t.Fatalf("functional update reading other state must not be treated safe, got %+v", rec)
	}
}

func TestObjectSpreadRiskGuard(t *testing.T) {
	body, content := parseBody(t, `function C() {
	if (state.id !== newId) setState({...state, id: newId});
}`)
	call := findCall(t, body, content, "setState")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setState", State: "state", Content: content})
	if rec.IsSafe || rec.Kind != model.GuardObjectSpreadRisk {
		t.Fatalf("expected object-spread-risk guard, got %+v", rec)
	}
}

func TestNoGuardWhenUnconditional(t *testing.T) {
	body, content := parseBody(t, `function C() {
	setS(1);
}`)
	call := findCall(t, body, content, "setS")
	rec := Analyze(Input{Call: call, Boundary: body, Setter: "setS", State: "s", Content: content})
	if rec.Kind != model.GuardNone {
		t.Fatalf("expected no guard, got %+v", rec)
	}
}
