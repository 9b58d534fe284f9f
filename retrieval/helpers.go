package retrieval

import "strings"

// sanitizeFTSQuery strips FTS5 syntax metacharacters and rejoins the
// remaining words with OR, so a raw user query can't break the MATCH
// expression's syntax.
func sanitizeFTSQuery(query string) string {
	replacer := strings.NewReplacer(
		"\"", "", "*", "", "(", "", ")", "",
		"+", "", "-", "", "^", "", ":", "",
		"?", "", "[", "", "]", "", "{", "",
		"}", "", "!", "", ".", "", ",", "",
		";", "",
	)
	cleaned := replacer.Replace(query)

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return query
	}
	return strings.Join(words, " OR ")
}
