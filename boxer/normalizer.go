package boxer

import (
	"regexp"
	"strings"
)

var (
	deepHeading  = regexp.MustCompile(`(?m)^(#{4,6})\s+(.+)$`)
	frontmatter  = regexp.MustCompile(`(?s)^---\s*\n.*?\n---\s*\n`)
)

// Normalize applies the three deterministic heading-repair heuristics from
// the Normalizer (C3), in order: Headless, Shouting, Deep nesting.
func Normalize(filename, content string) string {
	content = headless(filename, content)
	content = shouting(content)
	content = deepNesting(content)
	return content
}

// headless synthesizes an H1 from the Title-Cased filename when content has
// no H1 preceding it, ignoring optional YAML frontmatter.
func headless(filename, content string) string {
	body := content
	prefix := ""
	if loc := frontmatter.FindStringIndex(content); loc != nil {
		prefix = content[:loc[1]]
		body = content[loc[1]:]
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if h1LinePattern.MatchString(line) {
			return content
		}
		break
	}
	title := titleCaseFilename(filename)
	return prefix + "# " + title + "\n\n" + body
}

// shouting demotes every H1 after the first to H2.
func shouting(content string) string {
	lines := strings.Split(content, "\n")
	seenFirst := false
	for i, line := range lines {
		if !h1LinePattern.MatchString(line) {
			continue
		}
		if !seenFirst {
			seenFirst = true
			continue
		}
		lines[i] = "#" + line
	}
	return strings.Join(lines, "\n")
}

var h1LinePattern = regexp.MustCompile(`^#\s+.+$`)

// deepNesting converts H4-H6 headings to bold inline text.
func deepNesting(content string) string {
	return deepHeading.ReplaceAllString(content, "**$2**")
}

// titleCaseFilename strips extension/path and directory separators and
// title-cases the remaining words.
func titleCaseFilename(filename string) string {
	base := filename
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
