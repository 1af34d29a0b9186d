package relate

import (
	"testing"

	"rld/internal/model"
)

func TestBuildSameFileTransitiveReachability(t *testing.T) {
	var edb EDB
	edb.AddCall("a.tsx", "a.tsx:3:effect", "helper")
	edb.AddCall("a.tsx", "helper", "deeper")
	edb.AddSetsState("a.tsx", "deeper", "setCount")

	result, err := Build(edb)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	setters := result["a.tsx"]["a.tsx:3:effect"]
	if len(setters) != 1 || setters[0] != "setCount" {
		t.Fatalf("expected hook site to reach setCount transitively, got %+v", setters)
	}
}

func TestBuildOneLevelCrossFileHop(t *testing.T) {
	var edb EDB
	edb.AddCall("a.tsx", "a.tsx:5:effect", "sharedHandler")
	edb.AddImport("a.tsx", "b.tsx")
	edb.AddSetsState("b.tsx", "sharedHandler", "setValue")

	result, err := Build(edb)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	setters := result["a.tsx"]["a.tsx:5:effect"]
	if len(setters) != 1 || setters[0] != "setValue" {
		t.Fatalf("expected one-level import hop to reach setValue, got %+v", setters)
	}
}

func TestBuildDoesNotCrossTwoImportHops(t *testing.T) {
	var edb EDB
	edb.AddCall("a.tsx", "a.tsx:7:effect", "middle")
	edb.AddImport("a.tsx", "b.tsx")
	edb.AddCall("b.tsx", "middle", "deepHelper")
	edb.AddImport("b.tsx", "c.tsx")
	edb.AddSetsState("c.tsx", "deepHelper", "setDeep")

	result, err := Build(edb)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if setters := result["a.tsx"]["a.tsx:7:effect"]; len(setters) != 0 {
		t.Fatalf("expected no reachability two import hops away, got %+v", setters)
	}
}

func TestBuildMethodSetsState(t *testing.T) {
	var edb EDB
	edb.AddCallMethod("a.tsx", "a.tsx:9:effect", "api", "reset")
	edb.AddMethodSetsState("a.tsx", "api", "reset", "setCount")

	result, err := Build(edb)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	setters := result["a.tsx"]["a.tsx:9:effect"]
	if len(setters) != 1 || setters[0] != "setCount" {
		t.Fatalf("expected object.method setter reachability, got %+v", setters)
	}
}

func TestToSetterMapFiltersByKnownHookSites(t *testing.T) {
	byFile := map[string]map[string][]string{
		"a.tsx": {"a.tsx:3:effect": {"setCount"}},
	}
	sites := []model.HookSite{
		{File: "a.tsx", Line: 3, HookType: model.HookEffect},
		{File: "a.tsx", Line: 9, HookType: model.HookCallback},
	}
	m := ToSetterMap(byFile, sites)
	if len(m) != 1 {
		t.Fatalf("expected exactly 1 mapped hook site, got %+v", m)
	}
	if got := m["a.tsx:3:effect"]; len(got) != 1 || got[0] != "setCount" {
		t.Fatalf("unexpected setters for hook site: %+v", got)
	}
}
