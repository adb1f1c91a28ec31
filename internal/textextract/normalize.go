package textextract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reFormFeed   = regexp.MustCompile(`\f+`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses noisy whitespace while keeping line breaks.
// More than one blank line in a row becomes a single blank line and page
// breaks become line breaks.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reFormFeed.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// numbered section line: "5.2 Eligibility Criteria", "3. STUDY DESIGN"
var reNumbered = regexp.MustCompile(`^(\d{1,2}(?:\.\d{1,2}){0,5})\.?[ ]+(\p{Lu}[^.;:,]*)$`)

const maxHeadingLen = 80

// PromoteHeadings turns section titles of plain text into markdown headings
// so the chunker can align on them. A numbered line gets one # per number
// level; a short ALL-CAPS line gets a single #. Existing # lines are kept.
func PromoteHeadings(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") || len(t) > maxHeadingLen {
			continue
		}
		if m := reNumbered.FindStringSubmatch(t); m != nil {
			depth := strings.Count(m[1], ".") + 1
			if depth == 1 && !isCaps(m[2]) {
				// "1. Age over 18" is a list item more often than a section
				continue
			}
			lines[i] = strings.Repeat("#", min(depth, 6)) + " " + t
			continue
		}
		if isCaps(t) && len(strings.Fields(t)) <= 8 {
			lines[i] = "# " + t
		}
	}
	return strings.Join(lines, "\n")
}

// isCaps reports whether s has at least three letters and no lower-case ones.
func isCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}
