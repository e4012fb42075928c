/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package llm

import "strings"

// extractName pulls the first backtick-delimited token out of a reply,
// e.g. "The converted name is `FooBar`." -> "FooBar". If no backticks are
// present the whole reply is returned, on the assumption the model just
// answered bare.
func extractName(result string) string {
	i := strings.IndexByte(result, '`')
	if i < 0 {
		return result
	}
	rest := result[i+1:]
	j := strings.IndexByte(rest, '`')
	if j < 0 {
		return result
	}
	return rest[:j]
}

// extractCode scans result for every fenced code block (```rust\n...\n```
// or plain ```\n...\n```), keeps the ones containing at least one line
// that starts with one of prefixes, and returns the longest surviving
// block. Models sometimes emit more than one fenced block (an aside plus
// the real answer); filtering by prefix keeps only blocks that look like
// the kind of definition being asked for, and taking the longest among
// those favors a complete block over a truncated echo of it.
func extractCode(result string, prefixes []string) (string, bool) {
	const (
		fenceRust = "```rust\n"
		fencePlain = "```\n"
		fenceClose = "\n```"
	)

	var blocks []string
	rest := result
	for {
		i1 := indexAfter(rest, fenceRust)
		i2 := indexAfter(rest, fencePlain)
		start := -1
		switch {
		case i1 >= 0 && i2 >= 0:
			start = min(i1, i2)
		case i1 >= 0:
			start = i1
		case i2 >= 0:
			start = i2
		default:
			goto done
		}
		rest = rest[start:]
		end := strings.Index(rest, fenceClose)
		if end < 0 {
			goto done
		}
		blocks = append(blocks, rest[:end])
		rest = rest[end+len(fenceClose):]
	}
done:

	var best string
	var bestLen = -1
	for _, b := range blocks {
		if !anyLineHasPrefix(b, prefixes) {
			continue
		}
		if len(b) > bestLen {
			best = b
			bestLen = len(b)
		}
	}
	if bestLen < 0 {
		return "", false
	}
	return best, true
}

func indexAfter(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return i + len(sub)
}

func anyLineHasPrefix(s string, prefixes []string) bool {
	for _, line := range strings.Split(s, "\n") {
		for _, p := range prefixes {
			if strings.HasPrefix(line, p) {
				return true
			}
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// extractSignatures parses the numbered `1. \`fn foo(...) -> T;\`` lines a
// translate_signature reply is expected to contain. If no numbered lines
// parse, it falls back to pulling every backtick-delimited span that
// looks like a function signature (starts with "fn "), which is how the
// original client handles a reply that dropped the numbering but still
// produced valid signatures.
func extractSignatures(result string) []string {
	var sigs []string
	for _, line := range strings.Split(result, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < 2 {
			continue
		}
		if trimmed[0] < '1' || trimmed[0] > '9' || trimmed[1] != '.' {
			continue
		}
		i := strings.IndexByte(trimmed, '`')
		if i < 0 {
			continue
		}
		rest := trimmed[i+1:]
		j := strings.IndexByte(rest, '`')
		if j < 0 {
			continue
		}
		sig := normalizeSignature(rest[:j])
		if sig != "" {
			sigs = append(sigs, sig)
		}
	}
	if len(sigs) > 0 {
		return sigs
	}

	rest := result
	for {
		i := strings.IndexByte(rest, '`')
		if i < 0 {
			break
		}
		rest = rest[i+1:]
		j := strings.IndexByte(rest, '`')
		if j < 0 {
			break
		}
		span := rest[:j]
		rest = rest[j+1:]
		if strings.HasPrefix(strings.TrimSpace(span), "fn ") {
			if sig := normalizeSignature(span); sig != "" {
				sigs = append(sigs, sig)
			}
		}
	}
	return sigs
}

func normalizeSignature(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "unsafe ")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// compareChoice parses a Compare reply's trailing "Choice: Implementation
// N" line. It returns 0 when parsing fails, matching the original
// client's fail-open-to-Equal behavior: an unparsable comparison is
// treated as a tie rather than an error.
func compareChoice(result string) int {
	const marker = "Choice: Implementation "
	i := strings.Index(result, marker)
	if i < 0 {
		return 0
	}
	rest := result[i+len(marker):]
	for _, r := range rest {
		switch r {
		case '1':
			return 1
		case '2':
			return 2
		}
	}
	return 0
}
