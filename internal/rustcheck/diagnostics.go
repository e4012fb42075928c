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

package rustcheck

import (
	"bufio"
	"encoding/json"
	"strings"
)

// cargoMessage is the subset of `cargo check --message-format=json`'s
// per-line envelope this package cares about. Cargo interleaves
// "compiler-artifact" and "build-finished" messages with
// "compiler-message" ones; only the latter carry rustc diagnostics.
type cargoMessage struct {
	Reason  string         `json:"reason"`
	Message *rustcMessage  `json:"message"`
}

type rustcMessage struct {
	Level    string          `json:"level"`
	Message  string          `json:"message"`
	Spans    []rustcSpan     `json:"spans"`
	Children []rustcMessage  `json:"children"`
}

type rustcSpan struct {
	ByteStart         int               `json:"byte_start"`
	ByteEnd           int               `json:"byte_end"`
	Text              []rustcSpanText   `json:"text"`
	IsPrimary         bool              `json:"is_primary"`
	Suggested         string            `json:"suggested_replacement"`
	SuggestionApplies string            `json:"suggestion_applicability"`
}

type rustcSpanText struct {
	Text string `json:"text"`
}

// parseCargoCheckJSON decodes the newline-delimited JSON `cargo check
// --message-format=json` emits into a Result. Non-JSON or unrelated
// lines (plain human-readable fallback output, build-finished markers)
// are skipped rather than treated as a parse failure, since cargo mixes
// several message shapes on one stream.
func parseCargoCheckJSON(stdout string) Result {
	var result Result
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] != '{' {
			continue
		}
		var msg cargoMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.Reason != "compiler-message" || msg.Message == nil {
			continue
		}
		appendDiagnostic(&result, *msg.Message)
	}
	return result
}

// appendDiagnostic walks m and its children unconditionally: rustc nests
// a diagnostic's machine-applicable suggestions under "help"-level
// children, so harvesting must not stop at the top message's own level
// or those spans are silently dropped.
func appendDiagnostic(result *Result, m rustcMessage) {
	harvestSuggestions(result, m)

	if m.Level == "error" || m.Level == "warning" {
		var snippet string
		for _, sp := range m.Spans {
			if sp.IsPrimary {
				for _, t := range sp.Text {
					snippet = t.Text
				}
			}
		}
		if strings.Contains(m.Message, "unresolved import") || strings.Contains(m.Message, "cannot find") {
			if use, ok := extractUseSuggestion(m); ok {
				result.AddUse = append(result.AddUse, use)
			}
		}
		if m.Level == "error" {
			result.Errors = append(result.Errors, Diagnostic{Message: m.Message, Snippet: snippet})
		}
	}

	for _, child := range m.Children {
		appendDiagnostic(result, child)
	}
}

// harvestSuggestions records m's own primary-span machine-applicable
// suggestion, if any, skipping `use` lines: those are routed through
// extractUseSuggestion to AddUse instead, since hoisting an import to the
// top of the unit is a different edit than splicing it in at the span.
// Called for every message at every level (error, warning, help, note),
// so non-import inline fixes that rustc attaches to a help child — the
// common shape for things like a missing `&`, a wrong literal suffix, or
// a redundant clone — are no longer dropped just because the message
// they hang off of isn't itself an error or warning.
func harvestSuggestions(result *Result, m rustcMessage) {
	for _, sp := range m.Spans {
		if !sp.IsPrimary || sp.SuggestionApplies != "MachineApplicable" || sp.Suggested == "" {
			continue
		}
		if strings.Contains(sp.Suggested, "use ") {
			continue
		}
		result.Suggestions = append(result.Suggestions, Suggestion{
			StartByte: sp.ByteStart,
			EndByte:   sp.ByteEnd,
			Replace:   sp.Suggested,
		})
	}
}

// extractUseSuggestion pulls a `use path::to::Item;` line out of a
// "help" child message, the shape rustc emits for E0433/E0412-style
// unresolved-name diagnostics ("consider importing this struct").
func extractUseSuggestion(m rustcMessage) (string, bool) {
	for _, child := range m.Children {
		if child.Level != "help" {
			continue
		}
		for _, sp := range child.Spans {
			if sp.Suggested != "" && strings.Contains(sp.Suggested, "use ") {
				line := strings.TrimSpace(sp.Suggested)
				if !strings.HasSuffix(line, ";") {
					line += ";"
				}
				return line, true
			}
		}
	}
	return "", false
}
