// Package relate implements the Cross-File Relation Builder (§4.5). It ports
// the Fact/ToAtom/rebuildProgram/evaluate/Query shape from
// internal/core/kernel_eval.go and internal/core/kernel_query.go into a
// narrow, purpose-built reachability engine: EDB facts about calls and
// setter-setting functions go in, a fixed Datalog program runs to fixpoint,
// and a per-hook-site setter reachability map comes back out.
package relate

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"rld/internal/model"
)

// program is the fixed Datalog rule set. local_reaches recurses only within
// one File (every calls(File, ...) binds the same File, so it can never walk
// through an import edge); reaches_setter layers at most one additional
// imports hop on top, which is how the one-level cross-file bound in §4.5 is
// enforced structurally rather than with a runtime counter.
const program = `
Decl calls(File, Caller, Callee).
Decl calls_method(File, Caller, Receiver, Method).
Decl sets_state(File, Func, Setter).
Decl method_sets_state(File, Receiver, Method, Setter).
Decl imports(File, Target).

Decl local_reaches(File, Func, Setter).
Decl reaches_setter(File, Func, Setter).

local_reaches(File, Func, Setter) :- sets_state(File, Func, Setter).
local_reaches(File, Func, Setter) :- calls_method(File, Func, Receiver, Method), method_sets_state(File, Receiver, Method, Setter).
local_reaches(File, Func, Setter) :- calls(File, Func, Callee), local_reaches(File, Callee, Setter).

reaches_setter(File, Func, Setter) :- local_reaches(File, Func, Setter).
reaches_setter(File, Func, Setter) :- calls(File, Func, Callee), imports(File, Target), local_reaches(Target, Callee, Setter).
`

// Fact mirrors the teacher's internal/types.Fact: a predicate name plus a
// flat argument list, convertible to a Mangle ast.Atom. Every argument here
// is a plain string (file path, function name, or setter name), so ToAtom
// only needs the string-constant branch.
type Fact struct {
	Predicate string
	Args      []string
}

func (f Fact) ToAtom() (ast.Atom, error) {
	terms := make([]ast.BaseTerm, len(f.Args))
	for i, a := range f.Args {
		terms[i] = ast.String(a)
	}
	return ast.NewAtom(f.Predicate, terms...), nil
}

// EDB is the full set of base facts one Build call evaluates.
type EDB struct {
	Calls           []Fact // calls(File, Caller, Callee)
	CallsMethod     []Fact // calls_method(File, Caller, Receiver, Method)
	SetsState       []Fact // sets_state(File, Func, Setter)
	MethodSetsState []Fact // method_sets_state(File, Receiver, Method, Setter)
	Imports         []Fact // imports(File, Target)
}

func (e *EDB) AddCall(file, caller, callee string) {
	e.Calls = append(e.Calls, Fact{Predicate: "calls", Args: []string{file, caller, callee}})
}

func (e *EDB) AddCallMethod(file, caller, receiver, method string) {
	e.CallsMethod = append(e.CallsMethod, Fact{Predicate: "calls_method", Args: []string{file, caller, receiver, method}})
}

func (e *EDB) AddSetsState(file, fn, setter string) {
	e.SetsState = append(e.SetsState, Fact{Predicate: "sets_state", Args: []string{file, fn, setter}})
}

func (e *EDB) AddMethodSetsState(file, receiver, method, setter string) {
	e.MethodSetsState = append(e.MethodSetsState, Fact{Predicate: "method_sets_state", Args: []string{file, receiver, method, setter}})
}

func (e *EDB) AddImport(file, target string) {
	e.Imports = append(e.Imports, Fact{Predicate: "imports", Args: []string{file, target}})
}

func (e *EDB) all() []Fact {
	out := make([]Fact, 0, len(e.Calls)+len(e.CallsMethod)+len(e.SetsState)+len(e.MethodSetsState)+len(e.Imports))
	out = append(out, e.Calls...)
	out = append(out, e.CallsMethod...)
	out = append(out, e.SetsState...)
	out = append(out, e.MethodSetsState...)
	out = append(out, e.Imports...)
	return out
}

// hopLimit bounds derived facts the same way the teacher's derivedFactLimit
// does, just scaled down for a per-analyze-call, in-process evaluation
// instead of a long-lived kernel.
const hopLimit = 200000

// Build evaluates the EDB to fixpoint and returns reaches_setter grouped by
// (file, func) — the caller (the orchestrator) turns "func" names that are
// hook-site-ids into the CrossFileSetterMap (§3).
func Build(edb EDB) (map[string]map[string][]string, error) {
	parsed, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("relate: parse program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(parsed, nil)
	if err != nil {
		return nil, fmt.Errorf("relate: analyze program: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	for _, f := range edb.all() {
		atom, err := f.ToAtom()
		if err != nil {
			return nil, fmt.Errorf("relate: fact %s: %w", f.Predicate, err)
		}
		store.Add(atom)
	}

	if _, err := engine.EvalProgramWithStats(programInfo, store, engine.WithCreatedFactLimit(hopLimit)); err != nil {
		return nil, fmt.Errorf("relate: evaluate: %w", err)
	}

	result := map[string]map[string][]string{}
	for pred := range programInfo.Decls {
		if pred.Symbol != "reaches_setter" {
			continue
		}
		_ = store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
			if len(a.Args) != 3 {
				return nil
			}
			file := constString(a.Args[0])
			fn := constString(a.Args[1])
			setter := constString(a.Args[2])
			byFunc, ok := result[file]
			if !ok {
				byFunc = map[string][]string{}
				result[file] = byFunc
			}
			byFunc[fn] = append(byFunc[fn], setter)
			return nil
		})
	}
	return result, nil
}

func constString(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok {
		return c.Symbol
	}
	return fmt.Sprintf("%v", term)
}

// ToSetterMap flattens Build's per-file result into the §3 CrossFileSetterMap
// keyed by hook-site-id, for the hook-site-ids present in sites.
func ToSetterMap(byFile map[string]map[string][]string, sites []model.HookSite) model.CrossFileSetterMap {
	out := model.CrossFileSetterMap{}
	for _, s := range sites {
		id := s.ID()
		if byFunc, ok := byFile[s.File]; ok {
			if setters, ok := byFunc[id]; ok {
				out[id] = setters
			}
		}
	}
	return out
}
