package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSize is the chunk budget in characters.
const DefaultMaxSize = 64000

var reHeading = regexp.MustCompile(`(?m)^#{1,6}[ \t]+\S.*$`)

// Splitter packs section-aligned units of a document into chunks.
type Splitter struct {
	MaxSize int
}

func NewSplitter(maxSize int) *Splitter {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Splitter{MaxSize: maxSize}
}

// Split is NewSplitter(DefaultMaxSize).Split.
func Split(text string) []string {
	return NewSplitter(DefaultMaxSize).Split(text)
}

// Split breaks text into chunks of at most MaxSize characters where possible.
//
// A unit is a heading line plus the body up to the next heading; text before
// the first heading is its own unit. Units are packed greedily in order and a
// unit larger than MaxSize becomes a chunk on its own. Chunks are contiguous
// substrings, so joining them yields the input. The result is never empty.
func (s *Splitter) Split(text string) []string {
	max := s.MaxSize
	if max <= 0 {
		max = DefaultMaxSize
	}

	units := Units(text)
	if len(units) == 0 {
		return SplitFixed(text, max)
	}

	var chunks []string
	var cur strings.Builder
	curSize := 0

	for _, u := range units {
		size := utf8.RuneCountInString(u)
		if curSize > 0 && curSize+size > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curSize = 0
		}
		cur.WriteString(u)
		curSize += size
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}

	if len(chunks) == 0 {
		return SplitFixed(text, max)
	}
	return chunks
}

// Units returns the section units of text in document order.
// A whitespace-only preamble is folded into the first section.
func Units(text string) []string {
	if text == "" {
		return nil
	}

	locs := reHeading.FindAllStringIndex(text, -1)
	bounds := make([]int, 0, len(locs)+2)
	bounds = append(bounds, 0)
	for _, loc := range locs {
		if loc[0] == 0 {
			continue
		}
		bounds = append(bounds, loc[0])
	}
	bounds = append(bounds, len(text))

	if len(bounds) > 2 && strings.TrimSpace(text[bounds[0]:bounds[1]]) == "" {
		bounds = append(bounds[:1], bounds[2:]...)
	}

	units := make([]string, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		if bounds[i] == bounds[i+1] {
			continue
		}
		units = append(units, text[bounds[i]:bounds[i+1]])
	}
	return units
}

// SplitFixed slices text into consecutive pieces of max characters.
// Empty input yields a single empty chunk.
func SplitFixed(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxSize
	}
	if text == "" {
		return []string{""}
	}

	var out []string
	start, n := 0, 0
	for i := range text {
		if n == max {
			out = append(out, text[start:i])
			start, n = i, 0
		}
		n++
	}
	out = append(out, text[start:])
	return out
}
