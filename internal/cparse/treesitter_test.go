package cparse

import "testing"

const sampleC = `
int COUNTER = 0;

int add(int a, int b) {
    int sum = a + b;
    return helper(sum);
}

int helper(int x) {
    return x + COUNTER;
}
`

func TestParseFindsTopLevelDeclarations(t *testing.T) {
	p := NewTreeSitterParser()
	ast, err := p.Parse([]byte(sampleC))
	if err != nil {
		t.Fatal(err)
	}

	vars := p.VariableDeclarations(ast)
	if len(vars) != 1 {
		t.Fatalf("expected 1 variable declaration, got %d", len(vars))
	}
	names := p.VariableNames(vars[0])
	if len(names) != 1 || names[0] != "COUNTER" {
		t.Fatalf("expected [COUNTER], got %v", names)
	}

	funcs := p.FunctionDefinitions(ast)
	if len(funcs) != 2 {
		t.Fatalf("expected 2 function definitions, got %d", len(funcs))
	}
}

func TestFunctionNameAndCallees(t *testing.T) {
	p := NewTreeSitterParser()
	ast, err := p.Parse([]byte(sampleC))
	if err != nil {
		t.Fatal(err)
	}
	funcs := p.FunctionDefinitions(ast)

	var add Node
	for _, f := range funcs {
		if p.FunctionName(f) == "add" {
			add = f
		}
	}
	if add == nil {
		t.Fatal("could not find function add")
	}

	callees := p.Callees(add)
	if len(callees) != 1 || callees[0].Name != "helper" {
		t.Fatalf("expected callees [helper], got %v", callees)
	}
}

func TestNodeToStringRoundTrips(t *testing.T) {
	p := NewTreeSitterParser()
	ast, err := p.Parse([]byte(sampleC))
	if err != nil {
		t.Fatal(err)
	}
	funcs := p.FunctionDefinitions(ast)
	for _, f := range funcs {
		s := p.NodeToString(f, ast)
		if s == "" {
			t.Fatal("expected non-empty node text")
		}
	}
}

func TestReplaceSubstitutesSpan(t *testing.T) {
	p := NewTreeSitterParser()
	ast, err := p.Parse([]byte(sampleC))
	if err != nil {
		t.Fatal(err)
	}
	funcs := p.FunctionDefinitions(ast)
	var add Node
	for _, f := range funcs {
		if p.FunctionName(f) == "add" {
			add = f
		}
	}
	nameSpan := p.FunctionNameSpan(add)
	out, err := p.Replace(add, ast, []Edit{{Span: nameSpan, Text: "plus"}})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(out, "plus") {
		t.Fatalf("expected replaced text to contain 'plus', got %q", out)
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
