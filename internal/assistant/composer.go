package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopmate/assistant-engine/internal/catalog"
	"github.com/shopmate/assistant-engine/internal/observability"
)

// ApologyText is the reply used whenever the product catalog fails.
const ApologyText = "I'm having trouble accessing product information right now. Please try again later."

// NameMatchMode selects how the general-query handler looks for product
// names inside an utterance.
type NameMatchMode string

const (
	// NameMatchToken matches a product name as a whole-word token sequence.
	NameMatchToken NameMatchMode = "token"
	// NameMatchSubstring matches a product name anywhere in the raw text.
	NameMatchSubstring NameMatchMode = "substring"
)

const (
	defaultSearchLimit    = 5
	defaultTopViewedLimit = 100
	comparisonLimit       = 1
	productInfoLimit      = 1
)

// Config holds composer configuration.
type Config struct {
	SearchLimit    int
	TopViewedLimit int
	NameMatch      NameMatchMode
	Chooser        Chooser
}

// Composer turns a classification into a reply, querying the catalog as
// needed. It never returns an error.
type Composer struct {
	catalog catalog.Catalog
	rules   Rules
	config  Config
	logger  *observability.Logger
}

// NewComposer creates a composer over a private copy of rules.
func NewComposer(cat catalog.Catalog, rules Rules, cfg Config, logger *observability.Logger) *Composer {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if cfg.TopViewedLimit <= 0 {
		cfg.TopViewedLimit = defaultTopViewedLimit
	}
	if cfg.NameMatch == "" {
		cfg.NameMatch = NameMatchToken
	}
	if cfg.Chooser == nil {
		cfg.Chooser = RandomChooser()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Composer{
		catalog: cat,
		rules:   rules.clone(),
		config:  cfg,
		logger:  logger,
	}
}

// Compose builds the reply for an already classified utterance.
func (c *Composer) Compose(ctx context.Context, utterance string, cl Classification) Response {
	if cl.Normalized == "" {
		cl.Normalized = normalize(utterance)
	}

	switch cl.Intent {
	case IntentGreeting:
		return c.reply(IntentGreeting, BranchNone, c.config.Chooser.pick(c.rules.Phrases.Greeting))
	case IntentSizeGuide:
		return c.reply(IntentSizeGuide, BranchNone, c.config.Chooser.pick(c.rules.Phrases.SizeGuide))
	case IntentShipping, IntentReturns:
		return c.reply(cl.Intent, cl.Branch, c.rules.Messages[cl.Branch])
	case IntentProductSearch:
		return c.search(ctx, cl)
	case IntentProductInfo:
		return c.productInfo(ctx, cl)
	case IntentProductComparison:
		return c.compare(ctx, cl)
	case IntentRecommendation:
		return c.recommend(ctx, cl.Category)
	case IntentNewArrivals:
		return c.newArrivals(ctx)
	case IntentDiscounted:
		return c.discounted(ctx)
	case IntentGeneral:
		return c.general(ctx, cl)
	default:
		return c.notUnderstood()
	}
}

func (c *Composer) search(ctx context.Context, cl Classification) Response {
	if cl.Terms == "" {
		resp := c.reply(IntentProductSearch, BranchClarify,
			"What would you like me to search for? Tell me a product name, brand or category.")
		resp.Suggestions = c.categorySuggestions()
		return resp
	}

	products, err := c.catalog.SearchByName(ctx, cl.Terms, c.config.SearchLimit)
	if err != nil {
		return c.unavailable(IntentProductSearch, "search_by_name", err)
	}

	if len(products) == 0 {
		text := fmt.Sprintf("I couldn't find any products matching %q.", cl.Terms)
		suggestions := c.suggestions(IntentProductSearch)
		if cl.Category != "" {
			text += fmt.Sprintf(" You could browse our %s category instead.", cl.Category)
			suggestions = append([]string{"Recommend " + strings.ToLower(cl.Category)}, suggestions...)
		}
		resp := c.reply(IntentProductSearch, BranchNoMatch, text)
		resp.Suggestions = suggestions
		return resp
	}

	resp := c.listing(IntentProductSearch, BranchNone,
		fmt.Sprintf("I found %s matching %q:", countProducts(len(products)), cl.Terms), products)
	resp.Suggestions = productSuggestions(products)
	return resp
}

// productInfo describes the product the user named. The category knowledge
// tables answer only when no product resolves.
func (c *Composer) productInfo(ctx context.Context, cl Classification) Response {
	if cl.Terms == "" {
		if resp, ok := c.knowledge(cl.Normalized); ok {
			return resp
		}
		return c.reply(IntentProductInfo, BranchClarify, "Which product would you like to know more about?")
	}

	products, err := c.catalog.SearchByName(ctx, cl.Terms, productInfoLimit)
	if err != nil {
		if resp, ok := c.knowledge(cl.Normalized); ok {
			return resp
		}
		return c.unavailable(IntentProductInfo, "search_by_name", err)
	}
	if len(products) > 0 {
		return c.productDetails(products[0])
	}
	if resp, ok := c.knowledge(cl.Normalized); ok {
		return resp
	}
	return c.productNotFound(cl.Terms)
}

func (c *Composer) describeProduct(ctx context.Context, name string) Response {
	products, err := c.catalog.SearchByName(ctx, name, productInfoLimit)
	if err != nil {
		return c.unavailable(IntentProductInfo, "search_by_name", err)
	}
	if len(products) == 0 {
		return c.productNotFound(name)
	}
	return c.productDetails(products[0])
}

func (c *Composer) productNotFound(name string) Response {
	return c.reply(IntentProductInfo, BranchNoMatch,
		fmt.Sprintf("I couldn't find a product called %q. Try searching for it instead.", name))
}

func (c *Composer) productDetails(p catalog.ProductSummary) Response {
	var sb strings.Builder
	fmt.Fprintf(&sb, c.config.Chooser.pick(c.rules.Phrases.ProductInfo), p.Name)
	sb.WriteString("\n")
	sb.WriteString(describe(p))

	resp := c.listing(IntentProductInfo, BranchProduct, sb.String(), []catalog.ProductSummary{p})
	resp.Suggestions = []string{
		"Recommend " + strings.ToLower(categoryOrDefault(p.Category)),
		"Shipping information",
		"Return policy",
	}
	return resp
}

func (c *Composer) compare(ctx context.Context, cl Classification) Response {
	if cl.Pair == nil {
		return c.reply(IntentProductComparison, BranchClarify,
			`Which two products would you like me to compare? Try "compare iPhone 13 and Galaxy S21".`)
	}

	first, err := c.catalog.SearchByName(ctx, cl.Pair.First, comparisonLimit)
	if err != nil {
		return c.unavailable(IntentProductComparison, "search_by_name", err)
	}
	second, err := c.catalog.SearchByName(ctx, cl.Pair.Second, comparisonLimit)
	if err != nil {
		return c.unavailable(IntentProductComparison, "search_by_name", err)
	}

	var missing []string
	if len(first) == 0 {
		missing = append(missing, fmt.Sprintf("%q", cl.Pair.First))
	}
	if len(second) == 0 {
		missing = append(missing, fmt.Sprintf("%q", cl.Pair.Second))
	}
	if len(missing) > 0 {
		return c.reply(IntentProductComparison, BranchNoMatch,
			fmt.Sprintf("I couldn't find %s, so I can't compare them. Check the product names and try again.",
				strings.Join(missing, " or ")))
	}

	a, b := first[0], second[0]
	return c.listing(IntentProductComparison, cl.Branch, SummarizeComparison(a, b).String(),
		[]catalog.ProductSummary{a, b})
}

func (c *Composer) recommend(ctx context.Context, category string) Response {
	branch := BranchPopular
	if category != "" {
		branch = CategoryBranch(strings.ToLower(category))
	}

	products, err := c.catalog.ListByCategory(ctx, category, c.config.SearchLimit)
	if err != nil {
		return c.unavailable(IntentRecommendation, "list_by_category", err)
	}
	if len(products) == 0 {
		text := "I don't have any recommendations right now."
		if category != "" {
			text = fmt.Sprintf("I don't have any %s recommendations right now.", category)
		}
		return c.reply(IntentRecommendation, BranchNoMatch, text)
	}

	text := "Here are some of our most popular products:"
	if category != "" {
		text = fmt.Sprintf("Here are some popular picks in %s:", category)
	}
	return c.listing(IntentRecommendation, branch, text, products)
}

func (c *Composer) newArrivals(ctx context.Context) Response {
	products, err := c.catalog.ListNewest(ctx, c.config.SearchLimit)
	if err != nil {
		return c.unavailable(IntentNewArrivals, "list_newest", err)
	}
	if len(products) == 0 {
		return c.reply(IntentNewArrivals, BranchNoMatch, "There are no new arrivals right now. Check back soon!")
	}
	return c.listing(IntentNewArrivals, BranchNone, "Here are our latest arrivals:", products)
}

func (c *Composer) discounted(ctx context.Context) Response {
	products, err := c.catalog.ListDiscounted(ctx, c.config.SearchLimit)
	if err != nil {
		return c.unavailable(IntentDiscounted, "list_discounted", err)
	}
	if len(products) == 0 {
		return c.reply(IntentDiscounted, BranchNoMatch, "There are no discounts running right now. Check back soon!")
	}
	return c.listing(IntentDiscounted, BranchNone, "Here are the best deals right now:", products)
}

func (c *Composer) notUnderstood() Response {
	return c.reply(IntentNotUnderstood, BranchNone, c.config.Chooser.pick(c.rules.Phrases.NotUnderstood))
}

// unavailable maps a catalog failure to the apology reply.
func (c *Composer) unavailable(intent Intent, op string, err error) Response {
	c.logger.Warn().
		Err(err).
		Str("intent", string(intent)).
		Str("operation", op).
		Msg("Catalog query failed")
	return Response{
		Intent:      intent,
		Branch:      BranchUnavailable,
		Text:        ApologyText,
		Products:    []catalog.ProductSummary{},
		Suggestions: c.suggestions(IntentNotUnderstood),
	}
}

func (c *Composer) reply(intent Intent, branch Branch, text string) Response {
	return Response{
		Intent:      intent,
		Branch:      branch,
		Text:        text,
		Products:    []catalog.ProductSummary{},
		Suggestions: c.suggestions(intent),
	}
}

func (c *Composer) listing(intent Intent, branch Branch, heading string, products []catalog.ProductSummary) Response {
	var sb strings.Builder
	sb.WriteString(heading)
	if intent != IntentProductInfo && intent != IntentProductComparison {
		for _, p := range products {
			sb.WriteString("\n• ")
			sb.WriteString(headline(p))
		}
	}
	resp := c.reply(intent, branch, sb.String())
	resp.Products = products
	return resp
}

func (c *Composer) suggestions(intent Intent) []string {
	return append([]string{}, c.rules.Suggestions[intent]...)
}

func (c *Composer) categorySuggestions() []string {
	out := make([]string, 0, 3)
	for _, category := range c.rules.Categories {
		if len(out) == cap(out) {
			break
		}
		out = append(out, "Find "+strings.ToLower(category))
	}
	return out
}

func productSuggestions(products []catalog.ProductSummary) []string {
	out := []string{fmt.Sprintf("Tell me about %s", products[0].Name)}
	if len(products) > 1 {
		out = append(out, fmt.Sprintf("Compare %s and %s", products[0].Name, products[1].Name))
	}
	return append(out, "Shipping information")
}

func headline(p catalog.ProductSummary) string {
	line := fmt.Sprintf("%s, %s", p.Name, formatPrice(p.Price))
	if p.DiscountPercentage != nil && *p.DiscountPercentage > 0 {
		line += fmt.Sprintf(" (%.0f%% off)", *p.DiscountPercentage)
	}
	if p.ShopName != "" {
		line += " from " + p.ShopName
	}
	if !p.InStock() {
		line += " (out of stock)"
	}
	return line
}

func describe(p catalog.ProductSummary) string {
	lines := []string{
		"Price: " + formatPrice(p.Price),
		"Category: " + categoryOrDefault(p.Category),
		"Seller: " + shopName(p),
		"Availability: " + availability(p),
	}
	if p.DiscountPercentage != nil && *p.DiscountPercentage > 0 {
		lines = append(lines, fmt.Sprintf("Discount: %.0f%% off", *p.DiscountPercentage))
	}
	if p.Rating != nil {
		lines = append(lines, fmt.Sprintf("Rating: %.1f/5", *p.Rating))
	}
	return "• " + strings.Join(lines, "\n• ")
}

func categoryOrDefault(category string) string {
	if category == "" {
		return "Products"
	}
	return category
}

func countProducts(n int) string {
	if n == 1 {
		return "1 product"
	}
	return fmt.Sprintf("%d products", n)
}
