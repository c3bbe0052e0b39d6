package assistant

import (
	"regexp"
	"sort"
	"strings"
)

// comparisonRule is one named grammar for extracting two product names.
type comparisonRule struct {
	name    string
	pattern *regexp.Regexp
}

// Comparison grammars, tried in order on the normalized utterance.
var comparisonRules = []comparisonRule{
	{name: "versus", pattern: regexp.MustCompile(`^(.+?)\s+(?:versus|vs\.?)\s+(.+)$`)},
	{name: "difference_between", pattern: regexp.MustCompile(`difference between\s+(.+?)\s+and\s+(.+)$`)},
	{name: "compare", pattern: regexp.MustCompile(`compare\s+(.+?)\s+(?:and|with|to)\s+(.+)$`)},
}

var leadingArticle = regexp.MustCompile(`^(?:the|a|an)\s+`)

// leadingComparison matches comparison wording the versus grammar leaves in
// front of the first name.
var leadingComparison = regexp.MustCompile(`^.*?\b(?:compare|difference between|which is better(?: between)?)\s*[:,]?\s+`)

// Router classifies utterances with an ordered, first-match-wins list of
// keyword rules. It holds no per-conversation state.
type Router struct {
	rules      Rules
	searchStop *regexp.Regexp
	infoStop   *regexp.Regexp
}

// NewRouter creates a router over a private copy of rules.
func NewRouter(rules Rules) *Router {
	r := rules.clone()
	return &Router{
		rules:      r,
		searchStop: stopWordPattern(r.SearchStopWords),
		infoStop:   stopWordPattern(r.InfoStopWords),
	}
}

// Classify maps an utterance to exactly one intent. Utterances matching no
// rule yield IntentGeneral.
func (r *Router) Classify(utterance string) Classification {
	text := normalize(utterance)
	c := Classification{Intent: IntentGeneral, Normalized: text}
	t := r.rules.Triggers

	switch {
	case containsAny(text, t.ProductSearch):
		c.Intent = IntentProductSearch
		c.Terms = r.ExtractSearchTerms(text)
		c.Category = r.InferCategory(text)
	case containsAny(text, t.ProductInfo):
		c.Intent = IntentProductInfo
		c.Terms = r.ExtractInfoSubject(text)
	case containsAny(text, t.ProductComparison):
		c.Intent = IntentProductComparison
		c.Pair = ExtractComparisonPair(text)
		if c.Pair != nil {
			c.Branch = Branch(c.Pair.Rule)
		}
	case containsAny(text, t.SizeGuide):
		c.Intent = IntentSizeGuide
	case containsAny(text, t.Shipping):
		c.Intent = IntentShipping
		switch {
		case containsAny(text, t.ShippingInternational):
			c.Branch = BranchShippingInternational
		case containsAny(text, t.ShippingTracking):
			c.Branch = BranchShippingTracking
		default:
			c.Branch = BranchShippingDomestic
		}
	case containsAny(text, t.Returns):
		c.Intent = IntentReturns
		switch {
		case containsAny(text, t.ReturnsProcess):
			c.Branch = BranchReturnsProcess
		case containsAny(text, t.ReturnsExceptions):
			c.Branch = BranchReturnsExceptions
		default:
			c.Branch = BranchReturnsPolicy
		}
	case containsAny(text, t.Recommendation):
		c.Intent = IntentRecommendation
		c.Category = r.InferCategory(text)
	case containsAny(text, t.Greeting) || equalsAny(text, t.GreetingExact):
		c.Intent = IntentGreeting
	}

	return c
}

// ExtractSearchTerms strips search trigger words from an utterance. An empty
// result means there is nothing to search for.
func (r *Router) ExtractSearchTerms(utterance string) string {
	return stripWords(r.searchStop, normalize(utterance))
}

// ExtractInfoSubject strips product-info trigger words, leaving the thing
// the user asked about.
func (r *Router) ExtractInfoSubject(utterance string) string {
	return stripWords(r.infoStop, normalize(utterance))
}

// InferCategory returns the first known category named in the utterance, or
// "" when none is.
func (r *Router) InferCategory(utterance string) string {
	text := normalize(utterance)
	for _, category := range r.rules.Categories {
		if strings.Contains(text, strings.ToLower(category)) {
			return category
		}
	}
	return ""
}

// ExtractComparisonPair applies the comparison grammars in order and returns
// the first match, or nil.
func ExtractComparisonPair(utterance string) *ComparisonPair {
	text := strings.TrimRight(normalize(utterance), "?.!")
	for _, rule := range comparisonRules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		first, second := cleanProductName(m[1]), cleanProductName(m[2])
		if first == "" || second == "" {
			continue
		}
		return &ComparisonPair{Rule: rule.name, First: first, Second: second}
	}
	return nil
}

func cleanProductName(s string) string {
	s = trimPunctuation(s)
	s = leadingComparison.ReplaceAllString(s, "")
	s = leadingArticle.ReplaceAllString(s, "")
	return collapseSpaces(trimPunctuation(s))
}

func stopWordPattern(words []string) *regexp.Regexp {
	if len(words) == 0 {
		return nil
	}
	sorted := append([]string(nil), words...)
	// Longer phrases first so "looking for" wins over any shorter overlap.
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func stripWords(pattern *regexp.Regexp, text string) string {
	if pattern != nil {
		text = pattern.ReplaceAllString(text, " ")
	}
	return trimPunctuation(collapseSpaces(text))
}
