package stability

import (
	"testing"

	"rld/internal/model"
)

func mustOracle(t *testing.T, opts *model.Options) *Oracle {
	t.Helper()
	if err := opts.Compile(); err != nil {
		t.Fatalf("compile options: %v", err)
	}
	return New(opts)
}

func TestBuiltinStableHooks(t *testing.T) {
	o := mustOracle(t, &model.Options{})
	for _, name := range []string{"useRef", "useCallback", "useMemo"} {
		if !o.IsStableHook(name) {
			t.Errorf("expected %s to be stable by default", name)
		}
	}
	if o.IsStableHook("useQuery") {
		t.Errorf("unknown hook should default to unstable")
	}
}

func TestExplicitUnstableOverridesStableList(t *testing.T) {
	opts := &model.Options{
		StableHooks:   []string{"useWidget"},
		UnstableHooks: []string{"useWidget"},
	}
	o := mustOracle(t, opts)
	if o.IsStableHook("useWidget") {
		t.Fatal("explicit unstable override must win over explicit stable")
	}
}

func TestPatternPrecedenceUnstableBeforeStable(t *testing.T) {
	opts := &model.Options{
		StableHookPatterns:   []string{"^use.*Query$"},
		UnstableHookPatterns: []string{"^useLive.*"},
	}
	o := mustOracle(t, opts)
	if !o.IsStableHook("useDataQuery") {
		t.Fatal("expected pattern-stable hook to be stable")
	}
	if o.IsStableHook("useLiveQuery") {
		t.Fatal("unstable pattern must win when both match")
	}
}

type fakeOracle struct {
	stable bool
	known  bool
}

func (f fakeOracle) TypeStableAt(file string, line int, identifier string) (bool, bool) {
	return f.known, f.stable
}
func (f fakeOracle) ReturnTypeStableAt(file string, line int, callee string) (bool, bool) {
	return f.known, f.stable
}

func TestCallResultStableFallsBackToTypeOracle(t *testing.T) {
	opts := &model.Options{TypeOracle: fakeOracle{known: true, stable: true}}
	o := mustOracle(t, opts)
	if !o.CallResultStable("f.ts", 1, "cfg", "buildConfig") {
		t.Fatal("expected type oracle's stable verdict to be honored")
	}
}

func TestCallResultStableDefaultsUnstableWithoutOracle(t *testing.T) {
	o := mustOracle(t, &model.Options{})
	if o.CallResultStable("f.ts", 1, "cfg", "buildConfig") {
		t.Fatal("unknown call result should default to unstable")
	}
}

func TestAsyncCallbackReceiverKnownWithoutConfig(t *testing.T) {
	if !IsAsyncCallbackReceiver("setTimeout") {
		t.Fatal("setTimeout should be a known async-callback receiver")
	}
	if !IsAsyncCallbackReceiver("p.then") {
		t.Fatal("dotted .then should resolve to the last segment")
	}
	if IsAsyncCallbackReceiver("useEffect") {
		t.Fatal("useEffect is not an async-callback receiver")
	}
}
