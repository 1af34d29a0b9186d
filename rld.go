// Package rld is the render-loop detector's top-level entry point (§4.13):
// it loads a project's files, expands the import graph, runs the Cross-File
// Relation Builder, then runs the full per-file pipeline (§2, components
// 2-12) and returns the deduplicated diagnostic list. It owns no state
// across calls (§5) beyond the options the caller passes in.
package rld

import (
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"rld/internal/astutil"
	"rld/internal/detect"
	"rld/internal/effect"
	"rld/internal/extract"
	"rld/internal/model"
	"rld/internal/parsefacade"
	"rld/internal/policy"
	"rld/internal/relate"
	"rld/internal/resolve"
	"rld/internal/rlog"
	"rld/internal/stability"
)

// FileInput is one source file the caller wants parsed. A file referenced
// only through another file's import specifier, but not itself passed here,
// is never analyzed or loaded from disk — the engine has no filesystem
// collaborator (§1); callers pass every file in the project they want the
// import graph resolved against.
type FileInput struct {
	Path   string
	Source []byte
}

// Analyze runs the engine over files with a logger that discards everything.
func Analyze(files []FileInput, opts model.Options) ([]model.HookDiagnostic, error) {
	return AnalyzeWithLogger(files, opts, rlog.Nop())
}

// AnalyzeWithLogger is Analyze with an explicit logger, for embedding
// callers that want the engine's structured debug/timing output threaded
// into their own zap pipeline (see internal/rlog's doc comment on why this
// is passed explicitly rather than reached through a package global).
func AnalyzeWithLogger(files []FileInput, opts model.Options, logger *zap.SugaredLogger) ([]model.HookDiagnostic, error) {
	if err := opts.Compile(); err != nil {
		return nil, err
	}
	logger = rlog.WithRun(logger)
	overall := rlog.StartTimer(logger, "analyze")
	defer overall.Stop()

	oracle := stability.New(&opts)

	facade := parsefacade.New()
	defer facade.Close()

	records := make(map[string]*model.FileRecord, len(files))
	defer func() {
		for _, rec := range records {
			rec.Tree.Close()
		}
	}()

	for _, f := range files {
		rec, err := facade.Parse(f.Path, f.Source)
		if err != nil {
			logger.Warnw("skipping file that failed to parse", "file", f.Path, "error", err)
			continue
		}
		records[f.Path] = rec
	}

	resolveImports(records, &opts, logger)

	perFile := make(map[string]*fileAnalysis, len(records))
	for path, rec := range records {
		perFile[path] = analyzeFile(path, rec, oracle)
	}

	crossFile := buildCrossFileSetterMap(records, perFile)

	var diags []model.HookDiagnostic
	for path, fa := range perFile {
		diags = append(diags, runFile(path, fa, crossFile, records[path].Source, oracle)...)
	}

	diags = filterIgnored(diags, records)
	return dedupe(diags), nil
}

// fileAnalysis is everything component 2 (State & Ref Extractor) and
// component 4 (Indirect-Setter Resolver) produce for one file, kept around
// for the cross-file and per-hook-site passes that follow.
type fileAnalysis struct {
	scopes  []model.ComponentScope
	facts   map[int]model.ComponentFacts // index into scopes
	sites   []model.HookSite
	setters resolve.FileSetterMap
	calls   resolve.CallGraph
}

func analyzeFile(path string, rec *model.FileRecord, oracle *stability.Oracle) *fileAnalysis {
	fa := &fileAnalysis{facts: map[int]model.ComponentFacts{}}
	fa.scopes = extract.Components(rec.Root, rec.Source)

	allSetters := map[string]bool{}
	for i, scope := range fa.scopes {
		facts := extract.Facts(path, scope, rec.Source, oracle)
		fa.facts[i] = facts
		for state := range facts.StateIndex {
			allSetters[facts.StateIndex[state]] = true
		}
		fa.sites = append(fa.sites, extract.HookSites(path, scope, rec.Source)...)
	}

	fa.setters = resolve.Build(rec.Root, rec.Source, allSetters)
	fa.calls = resolve.BuildCallGraph(rec.Root, rec.Source)
	return fa
}

// resolveImports fills in Import.Resolved for every import spec the
// configured resolver can turn into the path of another file already in
// records (§4.13 step 2: one level deep, against the given file set only).
func resolveImports(records map[string]*model.FileRecord, opts *model.Options, logger *zap.SugaredLogger) {
	if opts.Resolver == nil {
		return
	}
	for path, rec := range records {
		for i, imp := range rec.Imports {
			if !opts.Resolver.CanResolve(imp.Spec) {
				continue
			}
			abs, ok := opts.Resolver.Resolve(path, imp.Spec)
			if !ok {
				logger.Debugw("import could not be resolved", "file", path, "spec", imp.Spec)
				continue
			}
			if _, known := records[abs]; !known {
				continue
			}
			rec.Imports[i].Resolved = abs
		}
	}
}

// buildCrossFileSetterMap runs component 5 (§4.5) over every file's call
// graph, setter map, and import edges.
func buildCrossFileSetterMap(records map[string]*model.FileRecord, perFile map[string]*fileAnalysis) model.CrossFileSetterMap {
	var edb relate.EDB
	var allSites []model.HookSite

	for path, fa := range perFile {
		allSites = append(allSites, fa.sites...)

		for fn, callees := range fa.calls.Calls {
			for _, callee := range callees {
				edb.AddCall(path, fn, callee)
			}
		}
		for fn, calls := range fa.calls.MethodCalls {
			for _, mc := range calls {
				edb.AddCallMethod(path, fn, mc.Receiver, mc.Method)
			}
		}
		for fn, setters := range fa.setters.ByFunction {
			for _, setter := range setters {
				edb.AddSetsState(path, fn, setter)
			}
		}
		for methodKey, setters := range fa.setters.ByMethod {
			receiver, method, ok := splitMethodKey(methodKey)
			if !ok {
				continue
			}
			for _, setter := range setters {
				edb.AddMethodSetsState(path, receiver, method, setter)
			}
		}

		for _, site := range fa.sites {
			body := hookCallbackBody(site.Body)
			if body == nil {
				continue
			}
			siteCalls := resolve.HookSiteCalls(site.ID(), body, records[path].Source)
			for _, callee := range siteCalls.Calls[site.ID()] {
				edb.AddCall(path, site.ID(), callee)
			}
			for _, mc := range siteCalls.MethodCalls[site.ID()] {
				edb.AddCallMethod(path, site.ID(), mc.Receiver, mc.Method)
			}
		}

		for _, imp := range records[path].Imports {
			if imp.Resolved != "" {
				edb.AddImport(path, imp.Resolved)
			}
		}
	}

	byFile, err := relate.Build(edb)
	if err != nil {
		// A Mangle evaluation failure degrades to "no cross-file edges
		// known" rather than failing the whole batch (§7).
		return model.CrossFileSetterMap{}
	}
	return relate.ToSetterMap(byFile, allSites)
}

func splitMethodKey(key string) (receiver, method string, ok bool) {
	dot := strings.LastIndex(key, ".")
	if dot < 0 {
		return "", "", false
	}
	return key[:dot], key[dot+1:], true
}

func hookCallbackBody(callback *sitter.Node) *sitter.Node {
	if callback == nil {
		return nil
	}
	if callback.Type() == "statement_block" {
		return callback
	}
	return callback.ChildByFieldName("body")
}

// runFile runs components 6-12 for every component scope and hook site in
// one file.
func runFile(path string, fa *fileAnalysis, crossFile model.CrossFileSetterMap, content []byte, oracle *stability.Oracle) []model.HookDiagnostic {
	var diags []model.HookDiagnostic

	for i, scope := range fa.scopes {
		facts := fa.facts[i]
		diags = append(diags, detect.RenderPhase(path, scope, facts, content)...)
		props := componentPropNames(scope, content)

		for _, site := range scopesSites(fa.sites, scope) {
			if !site.HasDeps {
				if d, ok := detect.EffectWithoutDeps(path, site, facts, fa.setters, content); ok {
					diags = append(diags, d)
				}
				continue
			}

			body := hookCallbackBody(site.Body)
			eff := effect.Analyze(effect.Input{
				HookType: site.HookType, Body: body, Content: content,
				Facts: facts, PropNames: props, Oracle: oracle,
			})
			if d, ok := policy.Decide(policy.Input{
				File: path, Site: site, Facts: facts, Effect: eff,
				CrossFileSetters: crossFile, Content: content,
			}); ok {
				diags = append(diags, d)
			}
		}
	}
	return diags
}

func scopesSites(sites []model.HookSite, scope model.ComponentScope) []model.HookSite {
	var out []model.HookSite
	for _, s := range sites {
		if s.Component != nil && s.Component.Body == scope.Body {
			out = append(out, s)
		}
	}
	return out
}

// componentPropNames derives the guard analyzer's optional prop-name set
// (§4.6 derived-state idiom) from the component function's parameter list:
// a bare identifier parameter (`function Widget(props)`) or the top-level
// names of a destructured object parameter (`function Widget({row})`).
func componentPropNames(scope model.ComponentScope, content []byte) map[string]bool {
	if scope.Node == nil {
		return nil
	}
	params := scope.Node.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	out := map[string]bool{}
	var first *sitter.Node
	if params.Type() == "identifier" {
		first = params
	} else if params.NamedChildCount() > 0 {
		first = params.NamedChild(0)
	}
	if first == nil {
		return out
	}
	switch first.Type() {
	case "identifier":
		out[astutil.Text(first, content)] = true
	case "object_pattern":
		for i := 0; i < int(first.NamedChildCount()); i++ {
			child := first.NamedChild(i)
			switch child.Type() {
			case "shorthand_property_identifier_pattern":
				out[astutil.Text(child, content)] = true
			case "pair_pattern":
				if key := child.ChildByFieldName("key"); key != nil {
					out[astutil.Text(key, content)] = true
				}
			}
		}
	}
	return out
}

// dedupe coalesces diagnostics sharing an identity key and orders the
// result by file, then line, then column, then error code — map iteration
// over perFile means the input arrives in no particular order, and §8
// invariant 3 requires two runs over the same inputs to produce
// bit-identical sequences.
func dedupe(diags []model.HookDiagnostic) []model.HookDiagnostic {
	seen := make(map[model.IdentityKey]bool, len(diags))
	out := make([]model.HookDiagnostic, 0, len(diags))
	for _, d := range diags {
		id := d.Identity()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.ErrorCode < b.ErrorCode
	})
	return out
}
