package resonance

import "strings"

// parseFrontmatter extracts the optional leading `---`-delimited metadata
// block and returns it alongside the remaining body. The block is a flat
// "key: value" per line format (§4.11 step 1), not real YAML — a line
// without a colon is ignored rather than treated as an error.
func parseFrontmatter(content string) (map[string]string, string) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	if !strings.HasPrefix(content, "---\n") {
		return nil, content
	}

	rest := content[4:]
	endIndex := strings.Index(rest, "\n---")
	if endIndex == -1 {
		return nil, content
	}

	block := rest[:endIndex]
	body := strings.TrimPrefix(rest[endIndex+4:], "\n")

	meta := make(map[string]string)
	for _, line := range strings.Split(block, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			continue
		}
		meta[key] = value
	}

	return meta, body
}
