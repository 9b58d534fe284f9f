package resonance

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pjsvis/resonance/embed"
)

const tagOraclePrompt = `You tag a piece of Markdown with relationship pairs to other concepts.
Respond with one pair per line, formatted exactly as "KEY: value" (e.g. "CITES: term-foo").
Use only CITES, EXEMPLIFIES, or REFERENCES as KEY. Respond with nothing else.

Content:
%s`

var oracleLinePattern = regexp.MustCompile(`(?i)^(CITES|EXEMPLIFIES|REFERENCES):\s*(.+)$`)

// TagBox asks the chat provider to propose relationship pairs for a box's
// content (`box --tag`). Malformed or empty lines in the response are
// silently dropped rather than erroring the whole box.
func TagBox(ctx context.Context, chat embed.Provider, model, content string) ([][2]string, error) {
	resp, err := chat.Chat(ctx, embed.ChatRequest{
		Model:       model,
		Messages:    []embed.Message{{Role: "user", Content: fmt.Sprintf(tagOraclePrompt, content)}},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	var pairs [][2]string
	for _, line := range strings.Split(resp.Content, "\n") {
		m := oracleLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		pairs = append(pairs, [2]string{strings.ToUpper(m[1]), strings.TrimSpace(m[2])})
	}
	return pairs, nil
}
