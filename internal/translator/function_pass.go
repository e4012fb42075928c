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
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/crust-lang/crust/internal/cparse"
	"github.com/crust-lang/crust/internal/errs"
	"github.com/crust-lang/crust/internal/log"
	"github.com/crust-lang/crust/internal/rustcheck"
)

// translatedFunction is one candidate's accumulated state as it moves
// through signature selection and the repair loop.
type translatedFunction struct {
	prefix        string
	name          string
	signatureType rustcheck.FunTySig
	signature     string
	translated    string
	uses          []string
	errors        []rustcheck.Diagnostic
}

// calleeRef is one callee a function references, paired with its
// translated signature where one is already known. Signature is empty
// for a callee that hasn't been translated yet — the only case this
// arises is a fellow member of the same mutually recursive group, which
// the caller must substitute a stub for instead.
type calleeRef struct {
	name      string
	signature string
}

// functionContext is what translateFunction gathers before asking the
// model for anything: the globals and callees a function's body actually
// references, with their already-translated forms.
type functionContext struct {
	variableNames []string // one entry per referencing occurrence, may repeat
	variableDecls []string // deduplicated translated variable declarations
	callees       []calleeRef // deduplicated, sorted by name
}

// signatures returns the translated signature of every callee that has
// one, in callees order.
func (c functionContext) signatures() []string {
	var out []string
	for _, ref := range c.callees {
		if ref.signature != "" {
			out = append(out, ref.signature)
		}
	}
	return out
}

func (t *Translator) gatherContext(node cparse.Node, name string) functionContext {
	ids := t.parser.Identifiers(node)
	locals := make(map[string]bool)
	for _, l := range t.parser.LocalVariables(node) {
		locals[l] = true
	}

	var ctx functionContext
	seenVar := make(map[string]bool)
	for _, id := range ids {
		if !t.variables[id.Name] || locals[id.Name] {
			continue
		}
		ctx.variableNames = append(ctx.variableNames, id.Name)
		if !seenVar[id.Name] {
			seenVar[id.Name] = true
			if decl, ok := t.translatedVariables[id.Name]; ok {
				ctx.variableDecls = append(ctx.variableDecls, decl)
			}
		}
	}

	calleeSet := make(map[string]bool)
	for _, c := range t.callGraph[name] {
		calleeSet[c.Name] = true
	}
	var calleeNames []string
	for callee := range calleeSet {
		calleeNames = append(calleeNames, callee)
	}
	sort.Strings(calleeNames)
	for _, callee := range calleeNames {
		ctx.callees = append(ctx.callees, calleeRef{name: callee, signature: t.translatedSignatures[callee]})
	}
	return ctx
}

// synthesizePrefix builds the type-checking-only scaffold a candidate
// body needs to compile in isolation: callees as dead-code-denied
// `{ todo!() }` stubs, globals initialized via a zero-byte transmute of
// their recorded type, and an empty `main` if this isn't main and none
// has been committed yet. None of this text is ever part of the emitted
// program (§4.5.3 step 2).
func (t *Translator) synthesizePrefix(ctx functionContext, name string) string {
	var useForCheck []string
	for _, u := range t.useList {
		useForCheck = append(useForCheck, "#[allow(unused_imports)] "+u)
	}

	var varsForCheck []string
	seen := make(map[string]bool)
	for _, vn := range ctx.variableNames {
		if seen[vn] {
			continue
		}
		seen[vn] = true
		decl, ok := t.translatedVariables[vn]
		ty, tyOk := t.translatedVariableTypes[vn]
		if !ok || !tyOk {
			continue
		}
		eq := strings.Index(decl, "=")
		if eq < 0 {
			continue
		}
		varsForCheck = append(varsForCheck, fmt.Sprintf(
			"#[deny(unused)] %s unsafe { std::mem::transmute([0u8; std::mem::size_of::<%s>()]) };",
			decl[:eq+1], ty,
		))
	}

	var funcsForCheck []string
	for _, sig := range ctx.signatures() {
		sig = strings.TrimSpace(sig)
		body := strings.TrimSuffix(sig, "{}")
		funcsForCheck = append(funcsForCheck, fmt.Sprintf(
			"#[deny(dead_code)] #[allow(unused_variables)] %s { todo!() }", body,
		))
	}

	_, hasMain := t.translatedFunctions["main"]
	needsStubMain := !hasMain && name != "main"

	var lines []string
	if s := strings.Join(useForCheck, "\n"); s != "" {
		lines = append(lines, s)
	}
	if s := strings.Join(varsForCheck, "\n"); s != "" {
		lines = append(lines, s)
	}
	if needsStubMain {
		lines = append(lines, "fn main() {}")
	}
	if s := strings.Join(funcsForCheck, "\n"); s != "" {
		lines = append(lines, s)
	}
	lines = append(lines, "#[allow(dead_code)]")
	return strings.Join(lines, "\n") + "\n"
}

// translateFunction runs the single-entity function pass: context
// gathering, prefix synthesis, renaming, candidate signature/body
// generation, repair, and scoring. Apart from the signatureBySig scratch
// map, it does not mutate Translator state; the caller commits the winner.
func (t *Translator) translateFunction(ctx context.Context, name string) (translatedFunction, error) {
	node := t.funcDefs[name]
	fctx := t.gatherContext(node, name)
	prefix := t.synthesizePrefix(fctx, name)

	newName, err := t.client.RenameFunction(ctx, name)
	if err != nil {
		return translatedFunction{}, errs.Wrap(err, "rename function")
	}

	code, err := t.renameReferences(node, name, newName, fctx)
	if err != nil {
		return translatedFunction{}, err
	}

	candidates, err := t.buildSignatureCandidates(ctx, code, newName, fctx)
	if err != nil {
		return translatedFunction{}, err
	}
	if len(candidates) == 0 {
		return translatedFunction{}, errs.Errorf("no candidate signatures survived for %s", name)
	}

	// Candidate signatures for the same function are independent of each
	// other once chosen, so their body translation and repair fixpoints
	// run concurrently, bounded by the configurable in-flight semaphore
	// (§5's resource policy); selection itself stays sequential below.
	var mu sync.Mutex
	var scored []scoredCandidate
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(t.opts.MaxConcurrency)
	for _, sigType := range candidates {
		sigType := sigType
		sig := t.signatureBySig[sigType]
		if t.opts.Verbose {
			log.Debug("candidate signature for %s: %s", name, sig)
		}

		group.Go(func() error {
			deps := append(append([]string{}, fctx.variableDecls...), fctx.signatures()...)
			translated, ok, err := t.client.TranslateFunction(gctx, code, sig, deps)
			if err != nil {
				return errs.Wrap(err, "translate function body")
			}
			if !ok {
				return nil
			}
			sigPrefix := strings.TrimSuffix(sig, "{}")
			if !strings.HasPrefix(translated, sigPrefix) {
				return nil
			}

			candidate := translatedFunction{
				prefix:        prefix,
				name:          newName,
				signatureType: sigType,
				signature:     sig,
				translated:    translated,
			}
			fixed, err := t.fixFunction(gctx, candidate)
			if err != nil {
				return err
			}

			mu.Lock()
			scored = append(scored, scoredCandidate{fn: fixed, score: len(fixed.errors)})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return translatedFunction{}, err
	}
	if len(scored) == 0 {
		return translatedFunction{}, errs.Errorf("no surviving candidates for %s", name)
	}

	// Sort by signature text for determinism: concurrent completion order
	// is not stable, but selectBest's tie-break must be (§9).
	sort.Slice(scored, func(i, j int) bool { return scored[i].fn.signature < scored[j].fn.signature })

	return t.selectBest(ctx, scored)
}

type scoredCandidate struct {
	fn    translatedFunction
	score int
}

// selectBest keeps candidates tied for the minimum error count, then
// breaks ties with pairwise Compare calls reduced via max; first-seen
// wins any remaining equality (§9 design note).
func (t *Translator) selectBest(ctx context.Context, scored []scoredCandidate) (translatedFunction, error) {
	best := scored[0].score
	for _, s := range scored[1:] {
		if s.score < best {
			best = s.score
		}
	}
	var tied []translatedFunction
	for _, s := range scored {
		if s.score == best {
			tied = append(tied, s.fn)
		}
	}

	winner := tied[0]
	for _, candidate := range tied[1:] {
		cmp, err := t.client.Compare(ctx, winner.translated, candidate.translated)
		if err != nil {
			return translatedFunction{}, errs.Wrap(err, "compare candidates")
		}
		if cmp > 0 {
			winner = candidate
		}
	}
	return winner, nil
}

// renameReferences rewrites the function's own name and every reference
// to a translated global or callee to its new name, via the AST span
// table (§4.5.3 step 3).
func (t *Translator) renameReferences(node cparse.Node, name, newName string, fctx functionContext) (string, error) {
	edits := []cparse.Edit{{Span: t.parser.FunctionNameSpan(node), Text: newName}}

	for _, id := range t.parser.Identifiers(node) {
		if newVarName, ok := t.translatedVariableNames[id.Name]; ok && t.variables[id.Name] {
			edits = append(edits, cparse.Edit{Span: id.Span, Text: newVarName})
		}
	}
	for _, callee := range t.parser.Callees(node) {
		if newCalleeName, ok := t.translatedFunctionNames[callee.Name]; ok {
			edits = append(edits, cparse.Edit{Span: callee.Span, Text: newCalleeName})
		}
	}

	code, err := t.parser.Replace(node, t.ast, edits)
	if err != nil {
		return "", errs.Wrap(err, "rewrite identifier spans")
	}
	return code, nil
}

// buildSignatureCandidates requests SignatureCandidates signatures and
// deduplicates them by structural type, keeping the first textual form
// per type (the same BTreeMap-first-wins order the original translator
// gets for free from Rust's BTreeMap, reproduced with an explicit
// first-seen map plus stable iteration order since Go maps don't
// preserve key order).
func (t *Translator) buildSignatureCandidates(ctx context.Context, code, newName string, fctx functionContext) ([]rustcheck.FunTySig, error) {
	deps := append(append([]string{}, fctx.variableDecls...), fctx.signatures()...)
	sigs, err := t.client.TranslateSignature(ctx, code, newName, deps, t.opts.SignatureCandidates)
	if err != nil {
		return nil, errs.Wrap(err, "translate signature")
	}

	t.signatureBySig = make(map[rustcheck.FunTySig]string)
	var order []rustcheck.FunTySig
	for _, raw := range sigs {
		sigType, canonical, err := rustcheck.ParseSignature(raw)
		if err != nil {
			log.Debug("discarding unparsable signature candidate: %v", err)
			continue
		}
		if _, exists := t.signatureBySig[sigType]; exists {
			continue
		}
		t.signatureBySig[sigType] = canonical
		order = append(order, sigType)
	}
	return order, nil
}
