package graph

import (
	"reflect"
	"testing"
)

func TestNewDropsExternalDeps(t *testing.T) {
	g := New([]string{"a", "b"}, map[string][]string{
		"a": {"b", "malloc"},
		"b": {"printf"},
	})
	if !reflect.DeepEqual(g["a"], []string{"b"}) {
		t.Fatalf("a: got %v", g["a"])
	}
	if g["b"] != nil {
		t.Fatalf("b: got %v, want nil", g["b"])
	}
}

func TestSCCsSingletons(t *testing.T) {
	g := New([]string{"a", "b", "c"}, map[string][]string{
		"a": {"b"},
		"b": {"c"},
	})
	sccs := SCCs(g)
	if len(sccs) != 3 {
		t.Fatalf("expected 3 singleton SCCs, got %d: %v", len(sccs), sccs)
	}
	for _, s := range sccs {
		if s.Len() != 1 {
			t.Fatalf("expected singleton, got %v", s)
		}
	}
}

func TestSCCsMutualRecursion(t *testing.T) {
	g := New([]string{"f", "g", "h"}, map[string][]string{
		"f": {"g"},
		"g": {"f", "h"},
		"h": {},
	})
	sccs := SCCs(g)
	var found bool
	for _, s := range sccs {
		if s.Len() == 2 {
			found = true
			if !reflect.DeepEqual(s.Nodes, []string{"f", "g"}) {
				t.Fatalf("unexpected SCC members: %v", s.Nodes)
			}
		}
	}
	if !found {
		t.Fatalf("expected a 2-element SCC for mutual recursion between f and g, got %v", sccs)
	}
}

func TestPostOrderDependencyBeforeDependent(t *testing.T) {
	g := New([]string{"a", "b", "c"}, map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {},
	})
	inv := Inverse(g)
	order := PostOrder(g, inv)
	pos := make(map[string]int)
	for i, scc := range order {
		for _, n := range scc.Nodes {
			pos[n] = i
		}
	}
	if !(pos["c"] < pos["b"] && pos["b"] < pos["a"]) {
		t.Fatalf("expected c before b before a, got positions %v", pos)
	}
}

func TestInverse(t *testing.T) {
	g := New([]string{"a", "b"}, map[string][]string{"a": {"b"}})
	inv := Inverse(g)
	if !reflect.DeepEqual(inv["b"], []string{"a"}) {
		t.Fatalf("inverse: got %v", inv["b"])
	}
	if inv["a"] != nil {
		t.Fatalf("inverse a: got %v, want nil", inv["a"])
	}
}
