package assistant

import (
	"fmt"
	"strings"
)

// knowledge answers product_info questions about a whole shopping topic
// from the static fact tables. ok is false when no topic keyword matched.
func (c *Composer) knowledge(text string) (Response, bool) {
	for _, category := range c.rules.Knowledge {
		if !containsWord(text, category.Keywords) {
			continue
		}

		branch := CategoryBranch(strings.ToLower(category.Name))
		for _, topic := range category.Topics {
			if containsWord(text, topic.Keywords) {
				return c.reply(IntentProductInfo, branch, topic.Fact), true
			}
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Here's what I know about %s:", category.Name)
		for _, topic := range category.Topics {
			sb.WriteString("\n• ")
			sb.WriteString(topic.Fact)
		}
		return c.reply(IntentProductInfo, branch, sb.String()), true
	}
	return Response{}, false
}
