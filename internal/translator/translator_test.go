// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package translator

import (
	"context"
	"strings"
	"testing"

	"github.com/crust-lang/crust/internal/cparse"
	"github.com/crust-lang/crust/internal/rustcheck"
)

// fakeClient is a LanguageModel whose every method is driven by small
// lookup tables keyed by the original C identifier name, so each test
// only has to set up the entries it actually exercises.
type fakeClient struct {
	renamedVars  map[string]string
	renamedFuncs map[string]string
	varBody      map[string]string // original var name -> translated declaration
	signatures   map[string][]string // new func name -> candidate signature texts
	bodies       map[string]string // new func name -> translated body (must start with its signature)
	compareFn    func(a, b string) int
	fixes        map[string]string // snippet -> replacement
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		renamedVars:  map[string]string{},
		renamedFuncs: map[string]string{},
		varBody:      map[string]string{},
		signatures:   map[string][]string{},
		bodies:       map[string]string{},
		fixes:        map[string]string{},
	}
}

func (c *fakeClient) RenameVariable(ctx context.Context, name string) (string, error) {
	if n, ok := c.renamedVars[name]; ok {
		return n, nil
	}
	return strings.ToUpper(name), nil
}

func (c *fakeClient) RenameFunction(ctx context.Context, name string) (string, error) {
	if n, ok := c.renamedFuncs[name]; ok {
		return n, nil
	}
	return name, nil
}

func (c *fakeClient) TranslateVariable(ctx context.Context, code string, deps []string) (string, bool, error) {
	for orig, body := range c.varBody {
		if strings.Contains(code, orig) {
			return body, true, nil
		}
	}
	return "", false, nil
}

func (c *fakeClient) TranslateSignature(ctx context.Context, code, newName string, deps []string, n int) ([]string, error) {
	if sigs, ok := c.signatures[newName]; ok {
		return sigs, nil
	}
	return nil, nil
}

func (c *fakeClient) TranslateFunction(ctx context.Context, code string, signature string, deps []string) (string, bool, error) {
	for newName, body := range c.bodies {
		if strings.HasPrefix(signature, "fn "+newName) {
			return body, true, nil
		}
	}
	return "", false, nil
}

func (c *fakeClient) Fix(ctx context.Context, code, compileError string) (string, bool, error) {
	if r, ok := c.fixes[code]; ok {
		return r, true, nil
	}
	return "", false, nil
}

func (c *fakeClient) Compare(ctx context.Context, code1, code2 string) (int, error) {
	if c.compareFn != nil {
		return c.compareFn(code1, code2), nil
	}
	return -1, nil
}

// fakeCompiler returns the same result and error from every TypeCheck
// call; tests that need a different result per round use
// sequencedCompiler.
type fakeCompiler struct {
	result rustcheck.Result
	err    error
}

func (c *fakeCompiler) TypeCheck(ctx context.Context, source string) (rustcheck.Result, error) {
	return c.result, c.err
}

func TestTranslateVariablesRecordsParsedShape(t *testing.T) {
	parser := &fakeParser{
		vars: []*fakeVarDecl{{name: "counter", text: "int counter = 0;"}},
	}
	client := newFakeClient()
	client.varBody["counter"] = "pub static mut COUNTER: i32 = 0;"
	check := &fakeCompiler{}

	tr, err := New(parser, client, check, []byte(""), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.TranslateVariables(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := tr.translatedVariableNames["counter"]; got != "COUNTER" {
		t.Fatalf("translatedVariableNames[counter] = %q", got)
	}
	if got := tr.translatedVariableTypes["counter"]; got != "i32" {
		t.Fatalf("translatedVariableTypes[counter] = %q", got)
	}
}

func TestTranslateVariablesRejectsMultiDeclarator(t *testing.T) {
	// VariableNames returning more than one name for a single declaration
	// node isn't representable by fakeVarDecl directly, so this exercises
	// the guard via a parser stub that always returns two names.
	parser := &multiNameParser{fakeParser: fakeParser{
		vars: []*fakeVarDecl{{name: "a", text: "int a, b;"}},
	}}
	client := newFakeClient()
	check := &fakeCompiler{}

	tr, err := New(parser, client, check, []byte(""), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.TranslateVariables(context.Background()); err == nil {
		t.Fatal("expected error for multi-declarator variable declaration")
	}
}

type multiNameParser struct {
	fakeParser
}

func (p *multiNameParser) VariableNames(node cparse.Node) []string {
	return []string{"a", "b"}
}

func TestTranslateFunctionsSingletonCommitsWinner(t *testing.T) {
	parser := &fakeParser{
		funcs: []*fakeFunc{{name: "add", text: "int add(int a, int b) { return a + b; }"}},
	}
	client := newFakeClient()
	client.renamedFuncs["add"] = "add"
	client.signatures["add"] = []string{"fn add(a: i32, b: i32) -> i32 {"}
	client.bodies["add"] = "fn add(a: i32, b: i32) -> i32 { a + b }"
	check := &fakeCompiler{result: rustcheck.Result{OK: true}}

	tr, err := New(parser, client, check, []byte(""), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.TranslateFunctions(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, ok := tr.translatedFunctions["add"]
	if !ok {
		t.Fatal("expected add to be committed")
	}
	if !strings.Contains(got, "a + b") {
		t.Fatalf("translatedFunctions[add] = %q", got)
	}
}

func TestTranslateFunctionsMutualGroupCommitsBothMembers(t *testing.T) {
	parser := &fakeParser{
		funcs: []*fakeFunc{
			{name: "is_even", text: "int is_even(int n) { return n == 0 || is_odd(n - 1); }", callees: []string{"is_odd"}},
			{name: "is_odd", text: "int is_odd(int n) { return n != 0 && is_even(n - 1); }", callees: []string{"is_even"}},
		},
	}
	client := newFakeClient()
	client.renamedFuncs["is_even"] = "is_even"
	client.renamedFuncs["is_odd"] = "is_odd"
	client.signatures["is_even"] = []string{"fn is_even(n: i32) -> bool {"}
	client.signatures["is_odd"] = []string{"fn is_odd(n: i32) -> bool {"}
	client.bodies["is_even"] = "fn is_even(n: i32) -> bool { n == 0 || is_odd(n - 1) }"
	client.bodies["is_odd"] = "fn is_odd(n: i32) -> bool { n != 0 && is_even(n - 1) }"
	check := &fakeCompiler{result: rustcheck.Result{OK: true}}

	tr, err := New(parser, client, check, []byte(""), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.TranslateFunctions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.translatedFunctions["is_even"]; !ok {
		t.Fatal("expected is_even to be committed")
	}
	if _, ok := tr.translatedFunctions["is_odd"]; !ok {
		t.Fatal("expected is_odd to be committed")
	}
}

func TestWholeCodeOrdersVariablesThenFunctionsThenMain(t *testing.T) {
	parser := &fakeParser{
		vars:  []*fakeVarDecl{{name: "counter", text: "int counter = 0;"}},
		funcs: []*fakeFunc{{name: "add", text: "int add(int a, int b) { return a + b; }"}},
	}
	client := newFakeClient()
	client.varBody["counter"] = "pub static mut COUNTER: i32 = 0;"
	client.renamedFuncs["add"] = "add"
	client.signatures["add"] = []string{"fn add(a: i32, b: i32) -> i32 {"}
	client.bodies["add"] = "fn add(a: i32, b: i32) -> i32 { a + b }"
	check := &fakeCompiler{result: rustcheck.Result{OK: true}}

	tr, err := New(parser, client, check, []byte(""), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.TranslateVariables(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := tr.TranslateFunctions(context.Background()); err != nil {
		t.Fatal(err)
	}

	whole := tr.WholeCode()
	counterIdx := strings.Index(whole, "COUNTER")
	addIdx := strings.Index(whole, "fn add")
	mainIdx := strings.Index(whole, "fn main() {}")
	if counterIdx < 0 || addIdx < 0 || mainIdx < 0 {
		t.Fatalf("missing expected section in whole code: %q", whole)
	}
	if !(counterIdx < addIdx && addIdx < mainIdx) {
		t.Fatalf("expected variable, then function, then synthetic main, got %q", whole)
	}
}

func TestMergeUseListsIsSetUnionPreservingOrder(t *testing.T) {
	base := []string{"use std::fmt;", "use std::io;"}
	extra := []string{"use std::io;", "use std::collections::HashMap;"}
	got := mergeUseLists(base, extra)
	want := []string{"use std::fmt;", "use std::io;", "use std::collections::HashMap;"}
	if len(got) != len(want) {
		t.Fatalf("mergeUseLists = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mergeUseLists = %v, want %v", got, want)
		}
	}
}

func TestFixCompilerFoldsAddUseAndReturnsResidual(t *testing.T) {
	check := &sequencedCompiler{
		results: []rustcheck.Result{
			{AddUse: []string{"use std::collections::HashMap;"}},
			{Errors: []rustcheck.Diagnostic{{Message: "mismatched types", Snippet: "a + b"}}},
		},
	}
	tr := &Translator{check: check}
	fn := translatedFunction{prefix: "#[allow(dead_code)]\n", translated: "fn f() { a + b }"}
	got, err := tr.fixCompiler(context.Background(), fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.uses) != 1 || got.uses[0] != "use std::collections::HashMap;" {
		t.Fatalf("uses = %v", got.uses)
	}
	if len(got.errors) != 1 {
		t.Fatalf("expected 1 residual error, got %v", got.errors)
	}
}

type sequencedCompiler struct {
	results []rustcheck.Result
	i       int
}

func (c *sequencedCompiler) TypeCheck(ctx context.Context, source string) (rustcheck.Result, error) {
	r := c.results[c.i]
	if c.i < len(c.results)-1 {
		c.i++
	}
	return r, nil
}

func TestAcceptableFixRejectsUseLinesAndExternCrate(t *testing.T) {
	if acceptableFix("a + b", "use std::fmt;") {
		t.Fatal("expected use-line fix to be rejected")
	}
	if acceptableFix("a + b", "extern crate foo;") {
		t.Fatal("expected extern crate fix to be rejected")
	}
	if acceptableFix("fn f() {}", "let x = 1;") {
		t.Fatal("expected fn-ness flip to be rejected")
	}
	if !acceptableFix("a + b", "a - b") {
		t.Fatal("expected plain expression fix to be accepted")
	}
}
