package detect

import (
	"testing"

	"rld/internal/extract"
	"rld/internal/model"
	"rld/internal/parsefacade"
	"rld/internal/resolve"
	"rld/internal/stability"
)

func parse(t *testing.T, src string) *model.FileRecord {
	t.Helper()
	f := parsefacade.New()
	defer f.Close()
	rec, err := f.Parse("component.tsx", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return rec
}

func oracle(t *testing.T) *stability.Oracle {
	t.Helper()
	opts := &model.Options{}
	if err := opts.Compile(); err != nil {
		t.Fatalf("compile options: %v", err)
	}
	return stability.New(opts)
}

func component(t *testing.T, src string) (*model.FileRecord, model.ComponentScope, model.ComponentFacts) {
	t.Helper()
	rec := parse(t, src)
	scopes := extract.Components(rec.Root, rec.Source)
	if len(scopes) != 1 {
		t.Fatalf("expected 1 component scope, got %d", len(scopes))
	}
	facts := extract.Facts("component.tsx", scopes[0], rec.Source, oracle(t))
	return rec, scopes[0], facts
}

func TestRenderPhaseUnguardedSetterIsConfirmedLoop(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [count, setCount] = useState(0);
	setCount(count + 1);
	return null;
}
`)
	diags := RenderPhase("component.tsx", scope, facts, rec.Source)
	if len(diags) != 1 || diags[0].Kind != model.KindConfirmedLoop || diags[0].ErrorCode != "RLD-100" {
		t.Fatalf("expected one confirmed-infinite-loop RLD-100, got %+v", diags)
	}
}

func TestRenderPhaseDerivedStateGuardIsSafe(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [prev, setPrev] = useState(props.row);
	if (props.row !== prev) {
		setPrev(props.row);
	}
	return null;
}
`)
	diags := RenderPhase("component.tsx", scope, facts, rec.Source)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics for a safe derived-state guard, got %+v", diags)
	}
}

func TestRenderPhaseIgnoresSetterInsideEventHandler(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [count, setCount] = useState(0);
	const onClick = () => { setCount(count + 1); };
	return null;
}
`)
	diags := RenderPhase("component.tsx", scope, facts, rec.Source)
	if len(diags) != 0 {
		t.Fatalf("expected no render-phase diagnostics for a setter inside an event handler, got %+v", diags)
	}
}

func TestRenderPhaseRefMutationReadingState(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [count, setCount] = useState(0);
	const nodeRef = useRef(null);
	nodeRef.current = count;
	return null;
}
`)
	diags := RenderPhase("component.tsx", scope, facts, rec.Source)
	if len(diags) != 1 || diags[0].ErrorCode != "RLD-600" || diags[0].Severity != model.SeverityHigh {
		t.Fatalf("expected one high-severity RLD-600 ref mutation diagnostic, got %+v", diags)
	}
}

func TestEffectWithoutDepsDirectReachability(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [count, setCount] = useState(0);
	useEffect(() => {
		setCount(count + 1);
	});
	return null;
}
`)
	sites := extract.HookSites("component.tsx", scope, rec.Source)
	if len(sites) != 1 {
		t.Fatalf("expected 1 hook site, got %d", len(sites))
	}
	d, ok := EffectWithoutDeps("component.tsx", sites[0], facts, resolve.FileSetterMap{ByFunction: map[string][]string{}, ByMethod: map[string][]string{}}, rec.Source)
	if !ok || d.Confidence != model.ConfidenceHigh || d.ErrorCode != "RLD-201" {
		t.Fatalf("expected high-confidence RLD-201, got %+v (ok=%v)", d, ok)
	}
}

func TestEffectWithoutDepsIndirectReachability(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [count, setCount] = useState(0);
	useEffect(() => {
		bump();
	});
	return null;
}
`)
	sites := extract.HookSites("component.tsx", scope, rec.Source)
	setters := resolve.FileSetterMap{ByFunction: map[string][]string{"bump": {"setCount"}}, ByMethod: map[string][]string{}}
	d, ok := EffectWithoutDeps("component.tsx", sites[0], facts, setters, rec.Source)
	if !ok || d.Confidence != model.ConfidenceMedium {
		t.Fatalf("expected medium-confidence indirect diagnostic, got %+v (ok=%v)", d, ok)
	}
}

func TestEffectWithoutDepsSkipsWhenDepsArrayPresent(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [count, setCount] = useState(0);
	useEffect(() => {
		setCount(count + 1);
	}, [count]);
	return null;
}
`)
	sites := extract.HookSites("component.tsx", scope, rec.Source)
	_, ok := EffectWithoutDeps("component.tsx", sites[0], facts, resolve.FileSetterMap{}, rec.Source)
	if ok {
		t.Fatalf("expected no diagnostic when a dependency array is present")
	}
}

func TestUnstableRefsObjectLiteralInDeps(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const options = { a: 1 };
	useEffect(() => {
		doSomething(options);
	}, [options]);
	return null;
}
`)
	sites := extract.HookSites("component.tsx", scope, rec.Source)
	d, ok := UnstableRefs("component.tsx", sites[0], facts, rec.Source)
	if !ok || d.ErrorCode != "RLD-400" || d.Category != model.CategoryPerformance {
		t.Fatalf("expected RLD-400 performance diagnostic, got %+v (ok=%v)", d, ok)
	}
}

func TestUnstableRefsEscalatesWithUnconditionalSetterInEffect(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const [count, setCount] = useState(0);
	const options = { a: 1 };
	useEffect(() => {
		setCount(count + 1);
	}, [options]);
	return null;
}
`)
	sites := extract.HookSites("component.tsx", scope, rec.Source)
	d, ok := UnstableRefs("component.tsx", sites[0], facts, rec.Source)
	if !ok || d.Kind != model.KindConfirmedLoop {
		t.Fatalf("expected escalation to confirmed-infinite-loop, got %+v (ok=%v)", d, ok)
	}
}

func TestUnstableRefsCallbackHookStaysPerformanceIssue(t *testing.T) {
	rec, scope, facts := component(t, `
function Widget(props) {
	const handler = () => {};
	const memoized = useCallback(() => {
		handler();
	}, [handler]);
	return null;
}
`)
	sites := extract.HookSites("component.tsx", scope, rec.Source)
	d, ok := UnstableRefs("component.tsx", sites[0], facts, rec.Source)
	if !ok || d.Kind != model.KindPotentialIssue || d.ErrorCode != "RLD-402" {
		t.Fatalf("expected potential-issue RLD-402, got %+v (ok=%v)", d, ok)
	}
}
