package fences

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Block
	}{
		{
			name:     "no markers",
			input:    "just an answer\nwith two lines",
			expected: nil,
		},
		{
			name:  "single block",
			input: "Here you go:\n==== readme.md ====\n# Title\n\nBody\n==== koniec ====\nBye",
			expected: []Block{
				{Filename: "readme.md", Content: "# Title\n\nBody"},
			},
		},
		{
			name: "two blocks in order",
			input: "==== a.md ====\nA\n==== koniec ====\ntext between\n" +
				"==== b.md ====\nB\n==== koniec ====",
			expected: []Block{
				{Filename: "a.md", Content: "A"},
				{Filename: "b.md", Content: "B"},
			},
		},
		{
			name:  "terminator is case-insensitive",
			input: "==== a.md ====\nA\n==== KONIEC ====",
			expected: []Block{
				{Filename: "a.md", Content: "A"},
			},
		},
		{
			name:  "trailing whitespace on marker lines",
			input: "==== a.md ====  \t\r\nA\r\n==== koniec ====   ",
			expected: []Block{
				{Filename: "a.md", Content: "A"},
			},
		},
		{
			name:  "unterminated block is still emitted",
			input: "==== draft.md ====\nline one\nline two",
			expected: []Block{
				{Filename: "draft.md", Content: "line one\nline two"},
			},
		},
		{
			name:     "empty block is dropped",
			input:    "==== empty.md ====\n   \n\n==== koniec ====",
			expected: nil,
		},
		{
			name:     "stray terminator does not open a block",
			input:    "==== koniec ====\nnot a document\n==== koniec ====",
			expected: nil,
		},
		{
			name:  "code fences inside a block are kept",
			input: "==== x.md ====\n```js\nconsole.log(1)\n```\n==== koniec ====",
			expected: []Block{
				{Filename: "x.md", Content: "```js\nconsole.log(1)\n```"},
			},
		},
		{
			name:  "marker inside a block is content",
			input: "==== outer.md ====\n==== inner.md ====\ntext\n==== koniec ====",
			expected: []Block{
				{Filename: "outer.md", Content: "==== inner.md ====\ntext"},
			},
		},
		{
			name:  "filename with spaces",
			input: "==== my notes.md ====\nN\n==== koniec ====",
			expected: []Block{
				{Filename: "my notes.md", Content: "N"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Extract(tt.input))
		})
	}
}

func TestExtractCountsWellFormedBlocks(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 7; i++ {
		sb.WriteString("prose\n==== f.md ====\n  body  \n==== koniec ====\n")
	}

	blocks := Extract(sb.String())
	require.Len(t, blocks, 7)
	for _, b := range blocks {
		assert.Equal(t, "body", b.Content)
	}
}

func TestBlocksIsRestartable(t *testing.T) {
	text := "==== a.md ====\nA\n==== koniec ====\n==== b.md ====\nB"
	seq := Blocks(text)

	var first, second []Block
	for b := range seq {
		first = append(first, b)
	}
	for b := range seq {
		second = append(second, b)
	}

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
}

func TestBlocksStopsEarly(t *testing.T) {
	text := "==== a.md ====\nA\n==== koniec ====\n==== b.md ====\nB\n==== koniec ===="
	var got []string
	for b := range Blocks(text) {
		got = append(got, b.Filename)
		break
	}
	assert.Equal(t, []string{"a.md"}, got)
}

func TestContents(t *testing.T) {
	text := "==== a.md ====\n A \n==== koniec ====\n==== b.md ====\nB\n==== koniec ===="
	assert.Equal(t, []string{"A", "B"}, Contents(text))
	assert.Empty(t, Contents("nothing here"))
}

func TestUnwrap(t *testing.T) {
	t.Run("markers become separators and prose survives", func(t *testing.T) {
		text := "Intro line\n==== a.md ====\n# Doc\n==== koniec ====\nOutro line"
		got := Unwrap(text)

		assert.Equal(t, "Intro line\n\n---\n\n# Doc\n\n---\n\nOutro line", got)
		assert.NotContains(t, got, "====")
	})

	t.Run("unterminated block keeps its lines", func(t *testing.T) {
		got := Unwrap("==== a.md ====\npartial")
		assert.Equal(t, "\n---\n\npartial", got)
	})

	t.Run("legacy markdown fence fallback", func(t *testing.T) {
		text := "Before\n```markdown\n# Doc\n\n```\nAfter"
		got := Unwrap(text)
		assert.Equal(t, "Before\n\n---\n\n# Doc\n\n---\n\nAfter", got)
	})

	t.Run("legacy fences are not extracted", func(t *testing.T) {
		assert.Empty(t, Extract("```markdown\n# Doc\n```"))
	})

	t.Run("plain text is unchanged", func(t *testing.T) {
		assert.Equal(t, "hello\nworld", Unwrap("hello\nworld"))
	})
}

func TestHasBlocks(t *testing.T) {
	assert.True(t, HasBlocks("x\n==== a.md ====\n"))
	assert.False(t, HasBlocks("==== koniec ===="))
	assert.False(t, HasBlocks("====a.md===="))
}
