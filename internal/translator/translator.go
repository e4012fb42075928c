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

// Package translator is the orchestrator: it walks a parsed C translation
// unit in dependency order, asks a language model to translate each
// variable and function, and repairs the result against a real Rust
// compiler until it type-checks or no further progress is possible.
package translator

import (
	"context"
	"sort"
	"strings"

	"github.com/crust-lang/crust/internal/cparse"
	"github.com/crust-lang/crust/internal/errs"
	"github.com/crust-lang/crust/internal/graph"
	"github.com/crust-lang/crust/internal/log"
	"github.com/crust-lang/crust/internal/rustcheck"
)

// LanguageModel is the subset of llm.Client's operations the orchestrator
// consumes. *llm.Client satisfies this structurally; tests substitute a
// fake so the repair-loop control flow can be exercised without a real
// chat-completions backend.
type LanguageModel interface {
	RenameVariable(ctx context.Context, name string) (string, error)
	RenameFunction(ctx context.Context, name string) (string, error)
	TranslateVariable(ctx context.Context, code string, deps []string) (string, bool, error)
	TranslateSignature(ctx context.Context, code, newName string, deps []string, n int) ([]string, error)
	TranslateFunction(ctx context.Context, code string, signature string, deps []string) (string, bool, error)
	Fix(ctx context.Context, code, compileError string) (string, bool, error)
	Compare(ctx context.Context, code1, code2 string) (int, error)
}

// Compiler is the subset of rustcheck.Checker the orchestrator consumes.
type Compiler interface {
	TypeCheck(ctx context.Context, source string) (rustcheck.Result, error)
}

// reservedPrefix marks a function as compiler/parser-internal and not a
// translation target (e.g. builtins the C parser's preprocessing step
// synthesizes).
const reservedPrefix = "__"

// Options configures a Translator's behavior. Zero value is valid and
// uses the documented defaults.
type Options struct {
	// SignatureCandidates is how many candidate signatures to request per
	// function before deduplicating by structural type. Defaults to 3.
	SignatureCandidates int
	// MaxConcurrency bounds how many signature candidates' bodies are
	// translated and repaired at once within a single function's
	// candidate fan-out (§5's advisory in-flight semaphore). Defaults to
	// 30. This is the only concurrency the orchestrator introduces;
	// entities themselves are still walked strictly in post order.
	MaxConcurrency int
	// Verbose logs, at debug level, every candidate signature and every
	// LLM repair that reduces a candidate's error count. Candidate bodies
	// and the before/after text of a repair are not logged.
	Verbose bool
}

func (o Options) withDefaults() Options {
	if o.SignatureCandidates <= 0 {
		o.SignatureCandidates = 3
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 30
	}
	return o
}

// Translator holds one translation unit's state: the parsed AST, the
// dependency order to walk it in, and every fact recorded about entities
// translated so far.
type Translator struct {
	opts Options

	parser cparse.Parser
	ast    cparse.AST
	client LanguageModel
	check  Compiler

	variableDecls []cparse.Node
	variables     map[string]bool
	funcDefs      map[string]cparse.Node
	funcOrder     []string // declaration order, for stable iteration where order isn't dependency-driven
	callGraph     map[string][]cparse.Identifier
	postOrder     []graph.SCC

	translatedVariableNames map[string]string
	translatedVariableTypes map[string]string
	translatedVariables     map[string]string
	translatedFunctionNames map[string]string
	translatedSignatures    map[string]string
	translatedFunctions     map[string]string
	useList                 []string

	// signatureBySig is scratch state populated by buildSignatureCandidates
	// for the function currently being translated: canonical signature
	// text keyed by structural type, first-textual-form-wins.
	signatureBySig map[rustcheck.FunTySig]string
}

// New parses source and builds the dependency-ordered translation plan:
// variable declarations, function definitions (minus reserved-prefix
// ones), the call graph restricted to locally defined functions, and a
// post-order SCC walk.
func New(parser cparse.Parser, client LanguageModel, check Compiler, source []byte, opts Options) (*Translator, error) {
	ast, err := parser.Parse(source)
	if err != nil {
		return nil, errs.Wrap(err, "parse translation unit")
	}

	t := &Translator{
		opts:                    opts.withDefaults(),
		parser:                  parser,
		ast:                     ast,
		client:                  client,
		check:                   check,
		variables:               map[string]bool{},
		funcDefs:                map[string]cparse.Node{},
		callGraph:               map[string][]cparse.Identifier{},
		translatedVariableNames: map[string]string{},
		translatedVariableTypes: map[string]string{},
		translatedVariables:     map[string]string{},
		translatedFunctionNames: map[string]string{},
		translatedSignatures:    map[string]string{},
		translatedFunctions:     map[string]string{},
	}

	t.variableDecls = parser.VariableDeclarations(ast)
	for _, d := range t.variableDecls {
		for _, name := range parser.VariableNames(d) {
			t.variables[name] = true
		}
	}

	for _, f := range parser.FunctionDefinitions(ast) {
		name := parser.FunctionName(f)
		if name == "" || strings.HasPrefix(name, reservedPrefix) {
			continue
		}
		t.funcDefs[name] = f
		t.funcOrder = append(t.funcOrder, name)
	}

	deps := make(map[string][]string, len(t.funcDefs))
	for name, node := range t.funcDefs {
		callees := t.parser.Callees(node)
		var kept []cparse.Identifier
		var depNames []string
		for _, c := range callees {
			if _, ok := t.funcDefs[c.Name]; ok {
				kept = append(kept, c)
				depNames = append(depNames, c.Name)
			}
		}
		t.callGraph[name] = kept
		deps[name] = depNames
	}

	names := make([]string, 0, len(t.funcDefs))
	for name := range t.funcDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	g := graph.New(names, deps)
	t.postOrder = graph.PostOrder(g, graph.Inverse(g))

	return t, nil
}

// TranslateVariables runs the variable pass: every global declaration is
// translated independently, in declaration order. The compiler is not
// invoked here; each variable is re-checked as part of every function
// that references it.
func (t *Translator) TranslateVariables(ctx context.Context) error {
	for _, decl := range t.variableDecls {
		names := t.parser.VariableNames(decl)
		if len(names) != 1 {
			return errs.Errorf("variable declaration must declare exactly one name, got %d: %v", len(names), names)
		}
		name := names[0]
		code := t.parser.NodeToString(decl, t.ast)

		translated, ok, err := t.client.TranslateVariable(ctx, code, nil)
		if err != nil {
			return errs.Wrapf(err, "translate variable %s", name)
		}
		if !ok {
			return errs.Errorf("translate variable %s: no code block survived extraction", name)
		}

		parsed := rustcheck.ParseGlobalVariable(translated)
		if len(parsed) != 1 {
			return errs.Errorf("translate variable %s: expected exactly one parsed declaration, got %d", name, len(parsed))
		}

		t.translatedVariableNames[name] = parsed[0][0]
		t.translatedVariableTypes[name] = parsed[0][1]
		t.translatedVariables[name] = translated
		log.Debug("translated variable %s -> %s: %s", name, parsed[0][0], translated)
	}
	return nil
}

// TranslateFunctions runs the function pass over every SCC in post order.
// Singleton SCCs (the common case) go through translateFunction directly;
// SCCs with more than one member are mutually recursive and go through
// the joint strategy in scc.go.
func (t *Translator) TranslateFunctions(ctx context.Context) error {
	for _, scc := range t.postOrder {
		if scc.Len() == 1 {
			name := scc.Nodes[0]
			fn, err := t.translateFunction(ctx, name)
			if err != nil {
				return errs.Wrapf(err, "translate function %s", name)
			}
			t.commit(name, fn)
			continue
		}
		if err := t.translateMutualGroup(ctx, scc.Nodes); err != nil {
			return errs.Wrapf(err, "translate mutually recursive group %v", scc.Nodes)
		}
	}
	return nil
}

func (t *Translator) commit(name string, fn translatedFunction) {
	t.translatedFunctionNames[name] = fn.name
	t.translatedSignatures[name] = fn.signature
	t.translatedFunctions[name] = fn.translated
	t.useList = mergeUseLists(t.useList, fn.uses)
}

// WholeCode assembles the final program: the merged use list, every
// translated variable in declaration order, every translated function in
// post order, and a synthetic `fn main() {}` if the original program
// defined no `main`.
func (t *Translator) WholeCode() string {
	var parts []string

	if len(t.useList) > 0 {
		parts = append(parts, strings.Join(t.useList, "\n"))
	}

	var varNames []string
	for _, decl := range t.variableDecls {
		varNames = append(varNames, t.parser.VariableNames(decl)...)
	}
	if body := joinByNames(t.translatedVariables, varNames); body != "" {
		parts = append(parts, body)
	}

	var funcNames []string
	for _, scc := range t.postOrder {
		funcNames = append(funcNames, scc.Nodes...)
	}
	if body := joinByNames(t.translatedFunctions, funcNames); body != "" {
		parts = append(parts, body)
	}

	if _, hasMain := t.translatedFunctions["main"]; !hasMain {
		parts = append(parts, "fn main() {}")
	}

	return strings.Join(parts, "\n\n")
}

func joinByNames(m map[string]string, names []string) string {
	var pieces []string
	for _, n := range names {
		if v, ok := m[n]; ok {
			pieces = append(pieces, v)
		}
	}
	return strings.Join(pieces, "\n\n")
}

// mergeUseLists appends the entries of extra to base that aren't already
// present, preserving base's existing order (set-union semantics, §8).
func mergeUseLists(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	for _, u := range base {
		seen[u] = true
	}
	out := append([]string{}, base...)
	for _, u := range extra {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
