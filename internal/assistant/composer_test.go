package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmate/assistant-engine/internal/catalog"
)

func float(v float64) *float64 { return &v }

// fakeCatalog answers from an in-memory product list and records every call.
type fakeCatalog struct {
	products  []catalog.ProductSummary
	topViewed []string
	err       error
	calls     []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: []catalog.ProductSummary{
			{ID: "p1", Name: "iPhone 13", Price: 699, Category: "Electronics", ShopName: "TechHub",
				StockQuantity: 12, Stock: catalog.QuantityOnly(12), Rating: float(4.7), DiscountPercentage: float(5)},
			{ID: "p2", Name: "Galaxy S21", Price: 599.99, Category: "Electronics", ShopName: "TechHub",
				Stock: catalog.QuantityOnly(0), Rating: float(4.4)},
			{ID: "p3", Name: "Vitamin C Serum", Price: 24.99, Category: "Beauty", ShopName: "Glow Beauty Co",
				StockQuantity: 40, Stock: catalog.QuantityOnly(40)},
			{ID: "p4", Name: "Hydrating Face Cream", Price: 19.99, Category: "Beauty", ShopName: "Glow Beauty Co",
				StockQuantity: 3, Stock: catalog.QuantityOnly(3), DiscountPercentage: float(30)},
		},
		topViewed: []string{"iPhone 13", "Galaxy S21", "Pen"},
	}
}

func (f *fakeCatalog) SearchByName(ctx context.Context, text string, limit int) ([]catalog.ProductSummary, error) {
	f.calls = append(f.calls, fmt.Sprintf("SearchByName(%s,%d)", text, limit))
	if f.err != nil {
		return nil, f.err
	}
	var out []catalog.ProductSummary
	for _, p := range f.products {
		if len(out) < limit && strings.Contains(strings.ToLower(p.Name), strings.ToLower(text)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListByCategory(ctx context.Context, category string, limit int) ([]catalog.ProductSummary, error) {
	f.calls = append(f.calls, fmt.Sprintf("ListByCategory(%s,%d)", category, limit))
	if f.err != nil {
		return nil, f.err
	}
	var out []catalog.ProductSummary
	for _, p := range f.products {
		if len(out) < limit && (category == "" || strings.EqualFold(p.Category, category)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListNewest(ctx context.Context, limit int) ([]catalog.ProductSummary, error) {
	f.calls = append(f.calls, fmt.Sprintf("ListNewest(%d)", limit))
	if f.err != nil {
		return nil, f.err
	}
	return f.products[:1], nil
}

func (f *fakeCatalog) ListDiscounted(ctx context.Context, limit int) ([]catalog.ProductSummary, error) {
	f.calls = append(f.calls, fmt.Sprintf("ListDiscounted(%d)", limit))
	if f.err != nil {
		return nil, f.err
	}
	return []catalog.ProductSummary{f.products[3], f.products[0]}, nil
}

func (f *fakeCatalog) ListTopViewed(ctx context.Context, limit int) ([]string, error) {
	f.calls = append(f.calls, fmt.Sprintf("ListTopViewed(%d)", limit))
	if f.err != nil {
		return nil, f.err
	}
	return f.topViewed, nil
}

func newTestAssistant(cat catalog.Catalog, cfg Config) *Assistant {
	if cfg.Chooser == nil {
		cfg.Chooser = FixedChooser(0)
	}
	return New(cat, DefaultRules(), cfg, nil)
}

func TestRespond_SearchWithoutTermsAsksAndDoesNotQuery(t *testing.T) {
	cat := newFakeCatalog()
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "find")

	assert.Equal(t, IntentProductSearch, resp.Intent)
	assert.Equal(t, BranchClarify, resp.Branch)
	assert.Contains(t, resp.Text, "What would you like me to search for?")
	assert.Empty(t, resp.Products)
	assert.NotEmpty(t, resp.Suggestions)
	assert.Empty(t, cat.calls)
}

func TestRespond_ShowMeElectronicsSearchesByName(t *testing.T) {
	cat := newFakeCatalog()
	cat.products = append(cat.products, catalog.ProductSummary{ID: "p5", Name: "Refurbished Electronics Bundle", Price: 99})
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "show me electronics")

	assert.Equal(t, []string{"SearchByName(electronics,5)"}, cat.calls)
	assert.Equal(t, IntentProductSearch, resp.Intent)
	require.Len(t, resp.Products, 1)
	assert.Contains(t, resp.Text, `I found 1 product matching "electronics"`)
	assert.Contains(t, resp.Suggestions, "Tell me about Refurbished Electronics Bundle")
}

func TestRespond_SearchNoMatchSuggestsCategory(t *testing.T) {
	cat := newFakeCatalog()
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "find kitchen knives")

	assert.Equal(t, BranchNoMatch, resp.Branch)
	assert.Contains(t, resp.Text, `I couldn't find any products matching "kitchen knives".`)
	assert.Contains(t, resp.Text, "browse our Kitchen category")
	assert.Equal(t, "Recommend kitchen", resp.Suggestions[0])
	assert.Empty(t, resp.Products)
}

func TestRespond_CatalogFailureYieldsApology(t *testing.T) {
	utterances := []string{
		"find iphone",
		"tell me about the galaxy",
		"compare iphone and galaxy",
		"recommend electronics",
		"what's trending",
	}

	for _, u := range utterances {
		t.Run(u, func(t *testing.T) {
			cat := newFakeCatalog()
			cat.err = errors.New("connection refused")
			a := newTestAssistant(cat, Config{})

			resp := a.Respond(context.Background(), u)

			assert.Equal(t, ApologyText, resp.Text)
			assert.Equal(t, BranchUnavailable, resp.Branch)
			assert.NotNil(t, resp.Products)
			assert.Empty(t, resp.Products)
			assert.Len(t, cat.calls, 1, "the first failure ends the turn")
		})
	}
}

func TestRespond_Comparison(t *testing.T) {
	cat := newFakeCatalog()
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "compare Face Cream and Vitamin C Serum")

	assert.Equal(t, IntentProductComparison, resp.Intent)
	assert.Equal(t, Branch("compare"), resp.Branch)
	assert.Equal(t, []string{"SearchByName(face cream,1)", "SearchByName(vitamin c serum,1)"}, cat.calls)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "Hydrating Face Cream", resp.Products[0].Name)
	assert.Contains(t, resp.Text, "Hydrating Face Cream is $5.00 cheaper than Vitamin C Serum.")
	assert.NotContains(t, resp.Text, "Rating:")
}

func TestRespond_ComparisonNeedsBothProducts(t *testing.T) {
	cat := newFakeCatalog()
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "iphone 13 vs pixel 9")

	assert.Equal(t, BranchNoMatch, resp.Branch)
	assert.Contains(t, resp.Text, `I couldn't find "pixel 9"`)
	assert.Empty(t, resp.Products)

	resp = a.Respond(context.Background(), "which is better than that")
	assert.Equal(t, BranchClarify, resp.Branch)
}

func TestRespond_ProductInfo(t *testing.T) {
	cat := newFakeCatalog()
	a := newTestAssistant(cat, Config{Chooser: FixedChooser(2)})

	resp := a.Respond(context.Background(), "Tell me about the Galaxy S21")

	assert.Equal(t, IntentProductInfo, resp.Intent)
	assert.Equal(t, BranchProduct, resp.Branch)
	assert.Equal(t, []string{"SearchByName(galaxy s21,1)"}, cat.calls)
	assert.True(t, strings.HasPrefix(resp.Text, "Good question! Here are the details for Galaxy S21:"))
	assert.Contains(t, resp.Text, "Availability: out of stock")
	assert.Contains(t, resp.Text, "Rating: 4.4/5")
}

func TestRespond_CategoryKnowledge(t *testing.T) {
	cat := newFakeCatalog()
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "tell me about electronics warranty")
	assert.Equal(t, IntentProductInfo, resp.Intent)
	assert.Equal(t, CategoryBranch("electronics"), resp.Branch)
	assert.Equal(t, "All electronics come with at least a 12-month manufacturer warranty.", resp.Text)

	resp = a.Respond(context.Background(), "what is your returns policy")
	assert.Equal(t, CategoryBranch("returns"), resp.Branch)
	assert.True(t, strings.HasPrefix(resp.Text, "Here's what I know about Returns:\n• "))
	assert.Equal(t, 3, strings.Count(resp.Text, "\n• "))

	assert.Equal(t, []string{
		"SearchByName(electronics warranty,1)",
		"SearchByName(your returns policy,1)",
	}, cat.calls)
}

func TestRespond_ProductNamedLikeCategory(t *testing.T) {
	cat := newFakeCatalog()
	cat.products = append(cat.products, catalog.ProductSummary{
		ID: "p5", Name: "Smart Home Hub", Price: 89, Category: "Electronics", ShopName: "Nest & Co",
		StockQuantity: 7, Stock: catalog.QuantityOnly(7),
	})
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "tell me about the Smart Home Hub")

	assert.Equal(t, IntentProductInfo, resp.Intent)
	assert.Equal(t, BranchProduct, resp.Branch)
	assert.Equal(t, []string{"SearchByName(smart home hub,1)"}, cat.calls)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "Smart Home Hub", resp.Products[0].Name)
	assert.NotContains(t, resp.Text, "Here's what I know about Home")
}

func TestRespond_CategoryKnowledgeSurvivesCatalogFailure(t *testing.T) {
	cat := newFakeCatalog()
	cat.err = errors.New("connection refused")
	a := newTestAssistant(cat, Config{})

	resp := a.Respond(context.Background(), "tell me about electronics warranty")

	assert.Equal(t, CategoryBranch("electronics"), resp.Branch)
	assert.Equal(t, "All electronics come with at least a 12-month manufacturer warranty.", resp.Text)
	assert.Len(t, cat.calls, 1)
}

func TestRespond_StaticReplies(t *testing.T) {
	cat := newFakeCatalog()
	rules := DefaultRules()
	a := newTestAssistant(cat, Config{Chooser: FixedChooser(1)})

	resp := a.Respond(context.Background(), "hi")
	assert.Equal(t, rules.Phrases.Greeting[1], resp.Text)

	resp = a.Respond(context.Background(), "does it fit?")
	assert.Equal(t, IntentSizeGuide, resp.Intent)
	assert.Equal(t, rules.Phrases.SizeGuide[1], resp.Text)

	resp = a.Respond(context.Background(), "is international shipping available")
	assert.Equal(t, BranchShippingInternational, resp.Branch)
	assert.Equal(t, rules.Messages[BranchShippingInternational], resp.Text)

	resp = a.Respond(context.Background(), "what's the return process")
	assert.Equal(t, BranchReturnsProcess, resp.Branch)
	assert.Equal(t, rules.Suggestions[IntentReturns], resp.Suggestions)

	assert.Empty(t, cat.calls)
}

func TestRespond_Recommendation(t *testing.T) {
	cat := newFakeCatalog()
	a := newTestAssistant(cat, Config{SearchLimit: 3})

	resp := a.Respond(context.Background(), "recommend something in beauty")
	assert.Equal(t, []string{"ListByCategory(Beauty,3)"}, cat.calls)
	assert.Equal(t, CategoryBranch("beauty"), resp.Branch)
	assert.Len(t, resp.Products, 2)
	assert.Contains(t, resp.Text, "Here are some popular picks in Beauty:")
	assert.Contains(t, resp.Text, "Hydrating Face Cream, $19.99 (30% off) from Glow Beauty Co")
}

func TestRespond_GeneralQuery(t *testing.T) {
	t.Run("known product name", func(t *testing.T) {
		cat := newFakeCatalog()
		a := newTestAssistant(cat, Config{})

		resp := a.Respond(context.Background(), "iphone 13 price?")
		assert.Equal(t, IntentProductInfo, resp.Intent)
		assert.Equal(t, []string{"ListTopViewed(100)", "SearchByName(iPhone 13,1)"}, cat.calls)
		require.Len(t, resp.Products, 1)
		assert.Equal(t, "iPhone 13", resp.Products[0].Name)
	})

	t.Run("trending", func(t *testing.T) {
		cat := newFakeCatalog()
		a := newTestAssistant(cat, Config{})

		resp := a.Respond(context.Background(), "what's trending")
		assert.Equal(t, IntentRecommendation, resp.Intent)
		assert.Equal(t, BranchPopular, resp.Branch)
		assert.Equal(t, []string{"ListTopViewed(100)", "ListByCategory(,5)"}, cat.calls)
	})

	t.Run("latest arrivals", func(t *testing.T) {
		cat := newFakeCatalog()
		a := newTestAssistant(cat, Config{})

		resp := a.Respond(context.Background(), "latest arrivals")
		assert.Equal(t, IntentNewArrivals, resp.Intent)
		assert.Equal(t, []string{"ListTopViewed(100)", "ListNewest(5)"}, cat.calls)
	})

	t.Run("deals", func(t *testing.T) {
		cat := newFakeCatalog()
		a := newTestAssistant(cat, Config{})

		resp := a.Respond(context.Background(), "any deals today")
		assert.Equal(t, IntentDiscounted, resp.Intent)
		assert.Equal(t, "Hydrating Face Cream", resp.Products[0].Name)
	})

	t.Run("not understood", func(t *testing.T) {
		cat := newFakeCatalog()
		a := newTestAssistant(cat, Config{})

		resp := a.Respond(context.Background(), "blah")
		assert.Equal(t, IntentNotUnderstood, resp.Intent)
		assert.Equal(t, DefaultRules().Phrases.NotUnderstood[0], resp.Text)
		assert.Empty(t, resp.Products)
	})

	t.Run("empty utterance", func(t *testing.T) {
		cat := newFakeCatalog()
		a := newTestAssistant(cat, Config{})

		resp := a.Respond(context.Background(), "   ")
		assert.Equal(t, IntentNotUnderstood, resp.Intent)
		assert.Empty(t, cat.calls)
	})
}

func TestRespond_NameMatchModes(t *testing.T) {
	// "pen" is a substring of "open" but not a word in it.
	token := newTestAssistant(newFakeCatalog(), Config{NameMatch: NameMatchToken})
	resp := token.Respond(context.Background(), "open the box")
	assert.Equal(t, IntentNotUnderstood, resp.Intent)

	cat := newFakeCatalog()
	substring := newTestAssistant(cat, Config{NameMatch: NameMatchSubstring})
	resp = substring.Respond(context.Background(), "open the box")
	assert.Equal(t, IntentProductInfo, resp.Intent)
	assert.Equal(t, []string{"ListTopViewed(100)", "SearchByName(Pen,1)"}, cat.calls)
}
