// Package fences extracts output documents from model responses.
//
// The model wraps every complete document it produces in marker lines:
//
//	==== readme.md ====
//	# Title
//	...
//	==== koniec ====
//
// Matching is line based. Trailing whitespace is ignored and the terminator
// is case-insensitive. A block that is still open when the text ends (a
// response still streaming) is emitted with whatever was collected.
package fences

import (
	"iter"
	"regexp"
	"strings"
)

var (
	openRe   = regexp.MustCompile(`^====\s+(.+?)\s+====$`)
	closeRe  = regexp.MustCompile(`(?i)^====\s+koniec\s+====$`)
	legacyRe = regexp.MustCompile("(?is)```(?:markdown|md)\\s*\\n(.*?)```")
)

// Separator replaces a marker line when a response is unwrapped for display.
const Separator = "\n---\n"

// Block is one delimited document.
type Block struct {
	Filename string
	Content  string
}

// openMarker returns the declared filename when line opens a block.
// The terminator line also matches the open pattern and is rejected here.
func openMarker(line string) (string, bool) {
	m := openRe.FindStringSubmatch(line)
	if m == nil || closeRe.MatchString(line) {
		return "", false
	}
	return m[1], true
}

// Blocks yields the raw blocks of text in document order. Content is not
// trimmed. The sequence can be ranged over any number of times.
func Blocks(text string) iter.Seq[Block] {
	return func(yield func(Block) bool) {
		var (
			inside   bool
			filename string
			current  []string
		)

		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimRight(line, " \t\r")

			if !inside {
				if name, ok := openMarker(trimmed); ok {
					inside = true
					filename = name
					current = current[:0]
				}
				continue
			}

			if closeRe.MatchString(trimmed) {
				if !yield(Block{Filename: filename, Content: strings.Join(current, "\n")}) {
					return
				}
				inside = false
				current = current[:0]
				continue
			}
			current = append(current, line)
		}

		if inside && len(current) > 0 {
			yield(Block{Filename: filename, Content: strings.Join(current, "\n")})
		}
	}
}

// Extract returns the blocks of text with trimmed content. Blocks whose
// content is empty after trimming are dropped.
func Extract(text string) []Block {
	var out []Block
	for b := range Blocks(text) {
		b.Content = strings.TrimSpace(b.Content)
		if b.Content == "" {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Contents returns only the content of Extract(text).
func Contents(text string) []string {
	blocks := Extract(text)
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, b.Content)
	}
	return out
}

// HasBlocks reports whether text contains at least one opening marker.
func HasBlocks(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if _, ok := openMarker(strings.TrimRight(line, " \t\r")); ok {
			return true
		}
	}
	return false
}

// Unwrap rewrites text for display. Marker lines become separators and every
// other line is kept as is. Text without markers falls back to legacy
// ```markdown fences, which are replaced by their trimmed body framed by
// separators. Unwrap is never used for extraction.
func Unwrap(text string) string {
	if !HasBlocks(text) {
		return legacyRe.ReplaceAllStringFunc(text, func(match string) string {
			inner := legacyRe.FindStringSubmatch(match)[1]
			return Separator + "\n" + strings.TrimSpace(inner) + "\n" + Separator
		})
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines)+8)
	inside := false

	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if !inside {
			if _, ok := openMarker(trimmed); ok {
				inside = true
				out = append(out, "", "---", "")
				continue
			}
			out = append(out, line)
			continue
		}
		if closeRe.MatchString(trimmed) {
			inside = false
			out = append(out, "", "---", "")
			continue
		}
		out = append(out, line)
	}

	return strings.Join(out, "\n")
}
