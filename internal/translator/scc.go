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

	"github.com/crust-lang/crust/internal/cparse"
	"github.com/crust-lang/crust/internal/errs"
	"github.com/crust-lang/crust/internal/log"
	"github.com/crust-lang/crust/internal/rustcheck"
)

// translateMutualGroup handles an SCC of more than one function: the
// members call each other, so none can be translated in isolation the
// way translateFunction assumes. The strategy (§9's suggested
// resolution): rename every member, request one signature per member
// (each seeing the others only as still-unnamed external calls, already
// rewritten to their new names), build a stub body for every member from
// that signature, translate each member's body against its siblings'
// stubs, then run one final compiler fixpoint over the concatenation of
// every member's real body so cross-calls between final implementations
// are validated together rather than against stand-in stubs.
//
// This is a deliberate simplification of the single-function path: one
// signature candidate per member rather than a scored set, since scoring
// candidate combinations across a whole mutually recursive group is
// combinatorial in group size and real-world C rarely has large mutual
// recursion clusters.
func (t *Translator) translateMutualGroup(ctx context.Context, names []string) error {
	sorted := append([]string{}, names...)
	sort.Strings(sorted)

	newNames := make(map[string]string, len(sorted))
	for _, name := range sorted {
		newName, err := t.client.RenameFunction(ctx, name)
		if err != nil {
			return errs.Wrapf(err, "rename function %s", name)
		}
		newNames[name] = newName
	}

	codes := make(map[string]string, len(sorted))
	contexts := make(map[string]functionContext, len(sorted))
	for _, name := range sorted {
		node := t.funcDefs[name]
		fctx := t.gatherContext(node, name)
		contexts[name] = fctx

		code, err := t.renameSelfAndKnown(node, name, newNames)
		if err != nil {
			return err
		}
		codes[name] = code
	}

	sigs := make(map[string]string, len(sorted))
	for _, name := range sorted {
		fctx := contexts[name]
		deps := append(append([]string{}, fctx.variableDecls...), fctx.signatures()...)
		candidates, err := t.client.TranslateSignature(ctx, codes[name], newNames[name], deps, 1)
		if err != nil {
			return errs.Wrapf(err, "translate signature for %s", name)
		}
		if len(candidates) == 0 {
			return errs.Errorf("no candidate signature for mutually recursive function %s", name)
		}
		sigs[name] = canonicalSignature(candidates[0])
	}

	stubs := make(map[string]string, len(sorted))
	for _, name := range sorted {
		body := strings.TrimSuffix(sigs[name], "{}")
		stubs[name] = fmt.Sprintf("#[deny(dead_code)] #[allow(unused_variables)] %s { todo!() }", body)
	}

	bodies := make(map[string]translatedFunction, len(sorted))
	for _, name := range sorted {
		fctx := contexts[name]
		prefix := t.synthesizeGroupPrefix(fctx, name, sorted, stubs)
		deps := append(append([]string{}, fctx.variableDecls...), fctx.signatures()...)
		for _, sibling := range sorted {
			if sibling == name {
				continue
			}
			deps = append(deps, stubs[sibling])
		}

		translated, ok, err := t.client.TranslateFunction(ctx, codes[name], sigs[name], deps)
		if err != nil {
			return errs.Wrapf(err, "translate body for %s", name)
		}
		if !ok {
			return errs.Errorf("no function body survived extraction for mutually recursive function %s", name)
		}

		fn := translatedFunction{prefix: prefix, name: newNames[name], signature: sigs[name], translated: translated}
		fixed, err := t.fixFunction(ctx, fn)
		if err != nil {
			return errs.Wrapf(err, "repair %s", name)
		}
		bodies[name] = fixed
	}

	// Joint pass: re-check every member's final body together so calls
	// between real (non-stub) implementations are validated once more.
	combinedUses := []string{}
	for _, name := range sorted {
		combinedUses = mergeUseLists(combinedUses, bodies[name].uses)
	}
	var combinedBody strings.Builder
	for _, name := range sorted {
		combinedBody.WriteString(bodies[name].translated)
		combinedBody.WriteString("\n\n")
	}
	// Aggregate external (non-group) context across every member: the
	// real bodies now stand in for the group's own members, so only
	// outside globals/callees still need synthetic stubs here.
	var aggregate functionContext
	seenCallee := make(map[string]bool)
	groupMember := make(map[string]bool, len(sorted))
	for _, n := range sorted {
		groupMember[n] = true
	}
	for _, name := range sorted {
		fctx := contexts[name]
		aggregate.variableNames = append(aggregate.variableNames, fctx.variableNames...)
		for _, ref := range fctx.callees {
			if groupMember[ref.name] || seenCallee[ref.name] {
				continue
			}
			seenCallee[ref.name] = true
			aggregate.callees = append(aggregate.callees, ref)
		}
	}
	groupPrefix := t.synthesizeGroupPrefix(aggregate, "", nil, nil)
	joint := translatedFunction{
		prefix:     groupPrefix,
		translated: combinedBody.String(),
		uses:       combinedUses,
	}
	joint, err := t.fixCompiler(ctx, joint)
	if err != nil {
		return errs.Wrap(err, "joint repair for mutually recursive group")
	}
	if t.opts.Verbose && len(joint.errors) > 0 {
		log.Debug("mutually recursive group %v has %d residual errors after joint check", sorted, len(joint.errors))
	}

	for _, name := range sorted {
		fn := bodies[name]
		fn.uses = joint.uses
		fn.errors = joint.errors
		t.commit(name, fn)
	}
	return nil
}

// synthesizeGroupPrefix is synthesizePrefix's mutual-recursion variant:
// siblings are declared via their stub text instead of a single external
// signature list, since within the group every member is simultaneously
// "not yet translated" from every other member's point of view.
func (t *Translator) synthesizeGroupPrefix(fctx functionContext, self string, group []string, stubs map[string]string) string {
	var useForCheck []string
	for _, u := range t.useList {
		useForCheck = append(useForCheck, "#[allow(unused_imports)] "+u)
	}

	var varsForCheck []string
	seen := make(map[string]bool)
	for _, vn := range fctx.variableNames {
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

	var siblingStubs []string
	for _, name := range group {
		if name == self {
			continue
		}
		if s, ok := stubs[name]; ok {
			siblingStubs = append(siblingStubs, s)
		}
	}
	for _, sig := range fctx.signatures() {
		sigBody := strings.TrimSuffix(sig, "{}")
		siblingStubs = append(siblingStubs, fmt.Sprintf("#[deny(dead_code)] #[allow(unused_variables)] %s { todo!() }", sigBody))
	}

	_, hasMain := t.translatedFunctions["main"]
	needsStubMain := !hasMain
	for _, name := range group {
		if name == "main" {
			needsStubMain = false
		}
	}

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
	if s := strings.Join(siblingStubs, "\n"); s != "" {
		lines = append(lines, s)
	}
	lines = append(lines, "#[allow(dead_code)]")
	return strings.Join(lines, "\n") + "\n"
}

// renameSelfAndKnown rewrites node's own name and every reference to a
// callee whose new name is already known (every other member of the
// group, renamed up front, plus any already-committed external callee or
// global). Unlike renameReferences, there is no translatedFunctionNames
// entry for the group's own members yet, so newNames is consulted first.
func (t *Translator) renameSelfAndKnown(node cparse.Node, name string, newNames map[string]string) (string, error) {
	edits := []cparse.Edit{{Span: t.parser.FunctionNameSpan(node), Text: newNames[name]}}

	for _, id := range t.parser.Identifiers(node) {
		if newVarName, ok := t.translatedVariableNames[id.Name]; ok && t.variables[id.Name] {
			edits = append(edits, cparse.Edit{Span: id.Span, Text: newVarName})
		}
	}
	for _, callee := range t.parser.Callees(node) {
		if newCalleeName, ok := newNames[callee.Name]; ok {
			edits = append(edits, cparse.Edit{Span: callee.Span, Text: newCalleeName})
			continue
		}
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

// canonicalSignature normalizes a signature candidate via rustcheck,
// falling back to the raw text if it doesn't parse cleanly — a single
// stray candidate shouldn't abort the whole group when the group
// strategy only ever requests one candidate to begin with.
func canonicalSignature(raw string) string {
	_, canonical, err := rustcheck.ParseSignature(raw)
	if err != nil {
		return raw
	}
	return canonical
}
