// Package assistant implements the shopping assistant's intent router and
// response composer.
package assistant

import "github.com/shopmate/assistant-engine/internal/catalog"

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentGreeting          Intent = "greeting"
	IntentSizeGuide         Intent = "size_guide"
	IntentProductSearch     Intent = "product_search"
	IntentProductInfo       Intent = "product_info"
	IntentProductComparison Intent = "product_comparison"
	IntentRecommendation    Intent = "recommendation"
	IntentShipping          Intent = "shipping"
	IntentReturns           Intent = "returns"
	IntentNotUnderstood     Intent = "not_understood"

	// Listing intents reached only through the general-query handler.
	IntentNewArrivals Intent = "new_arrivals"
	IntentDiscounted  Intent = "discounted"

	// IntentGeneral is the router's fall-through result. The composer always
	// resolves it to one of the intents above.
	IntentGeneral Intent = "general"
)

// Branch names a sub-path taken while classifying or composing.
type Branch string

const (
	BranchNone                  Branch = ""
	BranchShippingDomestic      Branch = "shipping/domestic"
	BranchShippingInternational Branch = "shipping/international"
	BranchShippingTracking      Branch = "shipping/tracking"
	BranchReturnsPolicy         Branch = "returns/policy"
	BranchReturnsProcess        Branch = "returns/process"
	BranchReturnsExceptions     Branch = "returns/exceptions"
	BranchClarify               Branch = "clarify"
	BranchNoMatch               Branch = "no_match"
	BranchUnavailable           Branch = "unavailable"
	BranchProduct               Branch = "product"
	BranchPopular               Branch = "popular"
)

// CategoryBranch reports a category-scoped path such as "category:electronics".
func CategoryBranch(category string) Branch {
	return Branch("category:" + category)
}

// ComparisonPair holds the two product-name queries of a comparison.
type ComparisonPair struct {
	Rule   string `json:"rule"`
	First  string `json:"first"`
	Second string `json:"second"`
}

// Classification is the router's verdict for one utterance.
type Classification struct {
	Intent     Intent          `json:"intent"`
	Branch     Branch          `json:"branch,omitempty"`
	Normalized string          `json:"normalized"`
	Terms      string          `json:"terms,omitempty"`
	Category   string          `json:"category,omitempty"`
	Pair       *ComparisonPair `json:"pair,omitempty"`
}

// Response is one assistant turn.
type Response struct {
	Intent      Intent                   `json:"intent"`
	Branch      Branch                   `json:"branch,omitempty"`
	Text        string                   `json:"text"`
	Products    []catalog.ProductSummary `json:"products"`
	Suggestions []string                 `json:"suggestions"`
}
