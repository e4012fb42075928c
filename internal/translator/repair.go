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

	"github.com/crust-lang/crust/internal/errs"
	"github.com/crust-lang/crust/internal/log"
	"github.com/crust-lang/crust/internal/rustcheck"
)

// fixFunction drives both repair fixpoints: the compiler fixpoint first
// (cheap, deterministic), then the LLM fixpoint over whatever residual
// errors remain.
func (t *Translator) fixFunction(ctx context.Context, fn translatedFunction) (translatedFunction, error) {
	fn, err := t.fixCompiler(ctx, fn)
	if err != nil {
		return translatedFunction{}, err
	}
	return t.fixLLM(ctx, fn)
}

// fixCompiler concatenates the use list, synthetic prefix, and candidate
// body, type-checks, and applies machine-applicable suggestions. If a
// round of suggestions added new `use` lines, they're folded into fn.uses
// and the whole thing is re-checked; otherwise the residual errors are
// returned. A round whose suggested `use` lines are all already present
// ends the loop too, so the use list grows on every repeated round; that
// growth is bounded by the set of lines the compiler can ever suggest,
// which guarantees termination.
func (t *Translator) fixCompiler(ctx context.Context, fn translatedFunction) (translatedFunction, error) {
	for {
		newPrefix := strings.Join(fn.uses, "\n") + "\n" + fn.prefix
		code := newPrefix + fn.translated

		result, err := t.check.TypeCheck(ctx, code)
		if err != nil {
			return translatedFunction{}, errs.Wrap(err, "type check")
		}
		patched, residual := rustcheck.ApplySuggestions(code, result)

		merged := mergeUseLists(fn.uses, result.AddUse)
		if len(merged) == len(fn.uses) {
			fn.translated = patched[len(newPrefix):]
			fn.errors = residual
			return fn, nil
		}
		fn.uses = merged
	}
}

// fixLLM asks the model to repair each residual error in turn, smallest
// snippet first conceptually (we operate per-diagnostic, each carrying
// its own snippet). A reply is rejected outright if it looks like it's
// trying to add an import, flip function-ness, or touch crate
// configuration — none of which `Fix` is allowed to do to a single
// definition. Accepted repairs are substituted preserving indentation,
// re-checked via the compiler fixpoint, and recursed into only if they
// strictly reduced the error count; otherwise the next error is tried.
// Recursion terminates because the error count is a strictly decreasing
// well-founded measure on every accepted step.
func (t *Translator) fixLLM(ctx context.Context, fn translatedFunction) (translatedFunction, error) {
	for _, diag := range fn.errors {
		if diag.Snippet == "" {
			continue
		}
		fixed, ok, err := t.client.Fix(ctx, diag.Snippet, diag.Message)
		if err != nil {
			return translatedFunction{}, errs.Wrap(err, "fix")
		}
		if !ok || !acceptableFix(diag.Snippet, fixed) {
			continue
		}

		indentation := leadingWhitespace(diag.Snippet)
		replacement := indentation + strings.TrimSpace(fixed)
		candidate := fn
		candidate.translated = strings.Replace(fn.translated, diag.Snippet, replacement, 1)

		repaired, err := t.fixCompiler(ctx, candidate)
		if err != nil {
			return translatedFunction{}, err
		}
		if len(repaired.errors) < len(fn.errors) {
			if t.opts.Verbose {
				log.Debug("llm repair reduced errors %d -> %d for %s", len(fn.errors), len(repaired.errors), fn.name)
			}
			return t.fixLLM(ctx, repaired)
		}
	}
	return fn, nil
}

// acceptableFix rejects replies that try to do something a single
// snippet-level repair must not: add a `use` line, flip whether the
// snippet is a function definition, declare an extern crate, or edit
// crate manifest sections.
func acceptableFix(original, fixed string) bool {
	trimmed := strings.TrimSpace(fixed)
	if strings.HasPrefix(trimmed, "use ") {
		return false
	}
	if strings.HasPrefix(trimmed, "fn ") != strings.HasPrefix(strings.TrimSpace(original), "fn ") {
		return false
	}
	if strings.Contains(trimmed, "extern crate ") {
		return false
	}
	if strings.Contains(trimmed, "[dependencies]") {
		return false
	}
	return true
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}
