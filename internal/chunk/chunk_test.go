package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func section(title string, size int) string {
	head := "# " + title + "\n"
	return head + strings.Repeat("x", size-len(head)-1) + "\n"
}

func TestSplitPacksSectionsGreedily(t *testing.T) {
	text := section("One", 30000) + section("Two", 30000) + section("Three", 30000)

	chunks := Split(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, 60000, len(chunks[0]))
	assert.True(t, strings.HasPrefix(chunks[0], "# One"))
	assert.Contains(t, chunks[0], "# Two")
	assert.True(t, strings.HasPrefix(chunks[1], "# Three"))
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitKeepsOversizedSectionWhole(t *testing.T) {
	text := strings.Repeat("y", 100000)

	chunks := Split(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitRespectsMaxUnlessSingleUnit(t *testing.T) {
	var b strings.Builder
	b.WriteString("preamble text\n")
	for i := 0; i < 40; i++ {
		b.WriteString("## Section\n")
		b.WriteString(strings.Repeat("z", 97))
		b.WriteString("\n")
	}
	text := b.String()

	chunks := NewSplitter(500).Split(text)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 500)
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitNeverEmpty(t *testing.T) {
	assert.Equal(t, []string{""}, Split(""))
	assert.Equal(t, []string{"   "}, Split("   "))
}

func TestUnitsFoldWhitespacePreamble(t *testing.T) {
	text := "\n\n# A\nbody\n### B\nmore"

	units := Units(text)

	require.Len(t, units, 2)
	assert.Equal(t, "\n\n# A\nbody\n", units[0])
	assert.Equal(t, "### B\nmore", units[1])
}

func TestUnitsIgnoreNonHeadingHashes(t *testing.T) {
	text := "Intro #1 item\n#hashtag line\n####### seven\n# Real\nbody"

	units := Units(text)

	require.Len(t, units, 2)
	assert.Equal(t, "# Real\nbody", units[1])
}

func TestSplitFixedCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 10)

	parts := SplitFixed(text, 4)

	require.Len(t, parts, 3)
	assert.Equal(t, 4, utf8.RuneCountInString(parts[0]))
	assert.Equal(t, 2, utf8.RuneCountInString(parts[2]))
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitIsRestartable(t *testing.T) {
	text := section("A", 100) + section("B", 100)
	s := NewSplitter(150)

	assert.Equal(t, s.Split(text), s.Split(text))
}

func TestUnitsIgnoreMidLineHeadingMarker(t *testing.T) {
	text := "# One\nbody text # Two\n"

	units := Units(text)

	require.Len(t, units, 1)
	assert.Equal(t, text, units[0])
}
