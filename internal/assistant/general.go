package assistant

import (
	"context"
	"strings"
)

// general resolves utterances no router rule matched. A known product name
// wins; otherwise listing keywords are checked before giving up.
func (c *Composer) general(ctx context.Context, cl Classification) Response {
	if cl.Normalized == "" {
		return c.notUnderstood()
	}

	names, err := c.catalog.ListTopViewed(ctx, c.config.TopViewedLimit)
	if err != nil {
		return c.unavailable(IntentNotUnderstood, "list_top_viewed", err)
	}
	if name, ok := c.matchProductName(cl.Normalized, names); ok {
		return c.describeProduct(ctx, name)
	}

	t := c.rules.Triggers
	switch {
	case containsAny(cl.Normalized, t.Trending):
		return c.recommend(ctx, "")
	case containsAny(cl.Normalized, t.NewArrivals):
		return c.newArrivals(ctx)
	case containsAny(cl.Normalized, t.Discounts):
		return c.discounted(ctx)
	}
	return c.notUnderstood()
}

// matchProductName returns the first name, in popularity order, that appears
// in text under the configured match mode.
func (c *Composer) matchProductName(text string, names []string) (string, bool) {
	var tokens []string
	if c.config.NameMatch == NameMatchToken {
		tokens = tokenize(text)
	}

	for _, name := range names {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			continue
		}
		if c.config.NameMatch == NameMatchSubstring {
			if strings.Contains(text, lower) {
				return name, true
			}
			continue
		}
		if containsTokens(tokens, tokenize(lower)) {
			return name, true
		}
	}
	return "", false
}
