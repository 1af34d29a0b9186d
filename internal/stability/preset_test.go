package stability

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"rld/internal/model"
)

// libraryPreset is the YAML shape a third-party hook-library preset takes
// before being folded into Options (§6) — test-only scaffolding standing in
// for the out-of-scope preset loader.
type libraryPreset struct {
	StableHooks          []string                            `yaml:"stable_hooks"`
	UnstableHooks        []string                            `yaml:"unstable_hooks"`
	StableHookPatterns   []string                            `yaml:"stable_hook_patterns"`
	UnstableHookPatterns []string                            `yaml:"unstable_hook_patterns"`
	CustomFunctions      map[string]model.CustomFunctionHint `yaml:"custom_functions"`
}

func loadPreset(t *testing.T, path string) *model.Options {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read preset: %v", err)
	}
	var p libraryPreset
	if err := yaml.Unmarshal(data, &p); err != nil {
		t.Fatalf("unmarshal preset: %v", err)
	}
	opts := &model.Options{
		StableHooks:          p.StableHooks,
		UnstableHooks:        p.UnstableHooks,
		StableHookPatterns:   p.StableHookPatterns,
		UnstableHookPatterns: p.UnstableHookPatterns,
		CustomFunctions:      p.CustomFunctions,
	}
	if err := opts.Compile(); err != nil {
		t.Fatalf("compile preset: %v", err)
	}
	return opts
}

func TestLibraryPresetDrivesOracle(t *testing.T) {
	o := New(loadPreset(t, "testdata/library_preset.yaml"))

	if !o.IsStableHook("useStableThing") {
		t.Fatalf("expected useStableThing to be stable via the explicit list")
	}
	if o.IsStableHook("useUnstableThing") {
		t.Fatalf("expected useUnstableThing to be unstable via the explicit list")
	}
	if !o.IsStableHook("useStableWidget") {
		t.Fatalf("expected useStableWidget to match the stable hook pattern")
	}
	if o.IsStableHook("useUnstableWidget") {
		t.Fatalf("expected useUnstableWidget to match the unstable hook pattern")
	}
	if !o.IsDeferredFunction("trackEvent") {
		t.Fatalf("expected trackEvent to be deferred via custom_functions")
	}
	if !o.IsStableFunction("formatPrice") {
		t.Fatalf("expected formatPrice to be stable via custom_functions")
	}
}
