package resonance

import (
	"regexp"
	"strings"

	"github.com/pjsvis/resonance/boxer"
)

// RenderBoxed serializes boxes back into a single Markdown document with
// a literal `<!-- locus:ID -->` marker preceding each box's content
// (§6's bit-exact marker format), the inverse of splitByLocusMarkers.
func RenderBoxed(boxes []boxer.Box) string {
	var sb strings.Builder
	for _, b := range boxes {
		sb.WriteString("<!-- locus:")
		sb.WriteString(b.LocusID)
		sb.WriteString(" -->\n")
		sb.WriteString(b.Content)
		if !strings.HasSuffix(b.Content, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatTagsComment renders the oracle's tag pairs as the metadata block
// EdgeWeaver's extractMetadataBlock reads back (§6): one bracketed
// "[KEY: Value]" per pair, comma-separated inside a single HTML comment.
func FormatTagsComment(pairs [][2]string) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = "[" + p[0] + ": " + p[1] + "]"
	}
	return "<!-- tags: " + strings.Join(parts, ", ") + " -->\n"
}

var (
	locusCommentPattern = regexp.MustCompile(`(?m)^<!--\s*locus:[a-zA-Z0-9-]+\s*-->\s*\n?`)
	tagsCommentPattern  = regexp.MustCompile(`(?is)<!--\s*tags:.*?-->\s*\n?`)
	whitespaceRun       = regexp.MustCompile(`[ \t]+`)
	blankLineRun        = regexp.MustCompile(`\n{3,}`)
)

// StripMarkers removes every locus and tags marker from content, for the
// `audit` command's round-trip comparison.
func StripMarkers(content string) string {
	content = locusCommentPattern.ReplaceAllString(content, "")
	content = tagsCommentPattern.ReplaceAllString(content, "")
	return content
}

// NormalizeWhitespace collapses runs of horizontal whitespace and excess
// blank lines, then trims the result, so two documents that differ only
// in incidental spacing compare equal (§6 audit's "whitespace-normalized
// content equivalence").
func NormalizeWhitespace(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(whitespaceRun.ReplaceAllString(line, " "), " ")
	}
	content = strings.Join(lines, "\n")
	content = blankLineRun.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
