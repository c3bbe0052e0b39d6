package assistant

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules holds every keyword table, phrase pool and fact table the assistant
// consults. A Rules value is copied into the router and composer on
// construction, so later changes by the caller have no effect.
type Rules struct {
	Triggers        Triggers            `yaml:"triggers"`
	SearchStopWords []string            `yaml:"search_stop_words"`
	InfoStopWords   []string            `yaml:"info_stop_words"`
	Categories      []string            `yaml:"categories"`
	Phrases         Phrases             `yaml:"phrases"`
	Knowledge       []KnowledgeCategory `yaml:"knowledge"`
	Suggestions     map[Intent][]string `yaml:"suggestions"`
	Messages        map[Branch]string   `yaml:"messages"`
}

// Triggers are the ordered keyword lists used by the router and the
// general-query handler. All entries are lower case.
type Triggers struct {
	ProductSearch     []string `yaml:"product_search"`
	ProductInfo       []string `yaml:"product_info"`
	ProductComparison []string `yaml:"product_comparison"`
	SizeGuide         []string `yaml:"size_guide"`
	Shipping          []string `yaml:"shipping"`
	Returns           []string `yaml:"returns"`
	Recommendation    []string `yaml:"recommendation"`
	Greeting          []string `yaml:"greeting"`
	GreetingExact     []string `yaml:"greeting_exact"`

	ShippingInternational []string `yaml:"shipping_international"`
	ShippingTracking      []string `yaml:"shipping_tracking"`
	ReturnsProcess        []string `yaml:"returns_process"`
	ReturnsExceptions     []string `yaml:"returns_exceptions"`

	Trending    []string `yaml:"trending"`
	NewArrivals []string `yaml:"new_arrivals"`
	Discounts   []string `yaml:"discounts"`
}

// Phrases are the interchangeable reply variants picked by a Chooser.
// ProductInfo entries are format strings taking the product name.
type Phrases struct {
	Greeting      []string `yaml:"greeting"`
	SizeGuide     []string `yaml:"size_guide"`
	ProductInfo   []string `yaml:"product_info"`
	NotUnderstood []string `yaml:"not_understood"`
}

// KnowledgeCategory is a static fact table for one shopping topic.
type KnowledgeCategory struct {
	Name     string           `yaml:"name"`
	Keywords []string         `yaml:"keywords"`
	Topics   []KnowledgeTopic `yaml:"topics"`
}

// KnowledgeTopic is one fact, selected when any keyword appears.
type KnowledgeTopic struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Fact     string   `yaml:"fact"`
}

// LoadRules overlays the YAML file at path on DefaultRules. Lists present in
// the file replace the defaults; map entries are merged by key.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("validate rules: %w", err)
	}
	return rules, nil
}

// Validate reports tables that would leave an intent without a reply.
func (r Rules) Validate() error {
	pools := map[string][]string{
		"phrases.greeting":       r.Phrases.Greeting,
		"phrases.size_guide":     r.Phrases.SizeGuide,
		"phrases.product_info":   r.Phrases.ProductInfo,
		"phrases.not_understood": r.Phrases.NotUnderstood,
	}
	for name, pool := range pools {
		if len(pool) == 0 {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	for _, phrase := range r.Phrases.ProductInfo {
		verbs := strings.ReplaceAll(phrase, "%%", "")
		if strings.Count(verbs, "%") != 1 || strings.Count(verbs, "%s") != 1 {
			return fmt.Errorf("phrases.product_info %q must contain exactly one %%s for the product name", phrase)
		}
	}
	if len(r.Triggers.ProductSearch) == 0 {
		return fmt.Errorf("triggers.product_search must not be empty")
	}
	for _, k := range r.Knowledge {
		if k.Name == "" || len(k.Keywords) == 0 {
			return fmt.Errorf("knowledge category %q needs a name and keywords", k.Name)
		}
		if len(k.Topics) == 0 {
			return fmt.Errorf("knowledge category %q has no topics", k.Name)
		}
	}
	return nil
}

func (r Rules) clone() Rules {
	out := r
	t := &out.Triggers
	for _, list := range []*[]string{
		&t.ProductSearch, &t.ProductInfo, &t.ProductComparison, &t.SizeGuide,
		&t.Shipping, &t.Returns, &t.Recommendation, &t.Greeting, &t.GreetingExact,
		&t.ShippingInternational, &t.ShippingTracking, &t.ReturnsProcess,
		&t.ReturnsExceptions, &t.Trending, &t.NewArrivals, &t.Discounts,
		&out.SearchStopWords, &out.InfoStopWords, &out.Categories,
		&out.Phrases.Greeting, &out.Phrases.SizeGuide, &out.Phrases.ProductInfo,
		&out.Phrases.NotUnderstood,
	} {
		*list = append([]string(nil), (*list)...)
	}

	out.Knowledge = make([]KnowledgeCategory, len(r.Knowledge))
	for i, k := range r.Knowledge {
		k.Keywords = append([]string(nil), k.Keywords...)
		topics := make([]KnowledgeTopic, len(k.Topics))
		for j, topic := range k.Topics {
			topic.Keywords = append([]string(nil), topic.Keywords...)
			topics[j] = topic
		}
		k.Topics = topics
		out.Knowledge[i] = k
	}

	out.Suggestions = make(map[Intent][]string, len(r.Suggestions))
	for intent, s := range r.Suggestions {
		out.Suggestions[intent] = append([]string(nil), s...)
	}
	out.Messages = make(map[Branch]string, len(r.Messages))
	for branch, m := range r.Messages {
		out.Messages[branch] = m
	}
	return out
}

// DefaultRules returns the built-in tables.
func DefaultRules() Rules {
	return Rules{
		Triggers: Triggers{
			ProductSearch:     []string{"find", "search", "looking for", "show me"},
			ProductInfo:       []string{"how does", "what is", "explain", "tell me about", "features", "specifications", "specs"},
			ProductComparison: []string{"compare", "difference between", "versus", "vs", "better than"},
			SizeGuide:         []string{"size", "fit", "measurement"},
			Shipping:          []string{"shipping", "delivery", "when will", "how long", "track"},
			Returns:           []string{"return", "refund", "exchange", "send back"},
			Recommendation:    []string{"recommend", "suggestion", "what should i", "best product"},
			Greeting:          []string{"hello", "hi", "hey"},
			GreetingExact:     []string{"help"},

			ShippingInternational: []string{"international", "overseas"},
			ShippingTracking:      []string{"track"},
			ReturnsProcess:        []string{"how", "process"},
			ReturnsExceptions:     []string{"exception", "can", "cannot"},

			Trending:    []string{"trending", "popular", "bestseller"},
			NewArrivals: []string{"new", "recent", "latest"},
			Discounts:   []string{"discount", "sale", "deal"},
		},
		SearchStopWords: []string{"looking for", "show me", "find", "search", "products", "items"},
		InfoStopWords: []string{
			"how does", "what is", "explain", "tell me about", "features", "specifications",
			"specs", "work", "the", "of", "a", "an",
		},
		Categories: []string{
			"Electronics", "Clothing", "Shoes", "Accessories", "Beauty", "Home",
			"Kitchen", "Furniture", "Sports", "Toys", "Books", "Jewelry",
			"Health", "Groceries", "Automotive", "Pet Supplies",
		},
		Phrases: Phrases{
			Greeting: []string{
				"Hello! I'm your shopping assistant. What can I help you find today?",
				"Hi there! Ask me about products, prices, shipping or returns.",
				"Hey! Looking for something special? Tell me what you need and I'll find it.",
			},
			SizeGuide: []string{
				"Sizes vary by brand, so check the size chart on each product page. If you're between sizes, we suggest going one size up.",
				"Every product page has its own size chart with measurements in cm and inches. Measure a garment that fits you well and compare.",
			},
			ProductInfo: []string{
				"Here's what I know about %s:",
				"Sure! Let me tell you about %s.",
				"Good question! Here are the details for %s:",
			},
			NotUnderstood: []string{
				"I'm not sure I understood that. Could you rephrase it?",
				"Sorry, I didn't catch that. You can ask me to find products, compare items or explain our policies.",
				"Hmm, I'm not sure how to help with that yet. Try one of the suggestions below.",
			},
		},
		Knowledge: defaultKnowledge(),
		Suggestions: map[Intent][]string{
			IntentGreeting:          {"What's trending?", "What's on sale?", "Find wireless earbuds", "Shipping information"},
			IntentSizeGuide:         {"Find clothing", "Return policy", "Exchange process"},
			IntentProductSearch:     {"What's trending?", "What's new?", "What's on sale?"},
			IntentProductInfo:       {"Compare products", "Shipping information", "Return policy"},
			IntentProductComparison: {"What's trending?", "Find electronics", "What's on sale?"},
			IntentRecommendation:    {"What's new?", "What's on sale?", "Find electronics"},
			IntentShipping:          {"Track my order", "International shipping", "Return policy"},
			IntentReturns:           {"How do I return an item?", "Return exceptions", "Shipping information"},
			IntentNewArrivals:       {"What's trending?", "What's on sale?"},
			IntentDiscounted:        {"What's new?", "What's trending?"},
			IntentNotUnderstood:     {"What's trending?", "Find electronics", "Shipping information", "Return policy"},
		},
		Messages: map[Branch]string{
			BranchShippingDomestic: "Standard domestic delivery takes 3-5 business days and is free on orders over $50. " +
				"Express delivery arrives in 1-2 business days.",
			BranchShippingInternational: "We ship to over 40 countries. International delivery usually takes 7-14 business days; " +
				"duties and taxes are calculated at checkout.",
			BranchShippingTracking: "You can track your order from the Orders tab in your profile. " +
				"A tracking link is also emailed to you as soon as the shop ships it.",
			BranchReturnsPolicy: "Most items can be returned within 30 days of delivery for a full refund, " +
				"as long as they are unused and in their original packaging.",
			BranchReturnsProcess: "To start a return, open the order in your profile, choose Return item and pick a reason. " +
				"Once the shop receives it, your refund is issued within 5 business days.",
			BranchReturnsExceptions: "Some items cannot be returned: personalised products, opened beauty items, " +
				"underwear and perishable goods. Faulty items can always be returned.",
		},
	}
}

func defaultKnowledge() []KnowledgeCategory {
	return []KnowledgeCategory{
		{
			Name:     "Electronics",
			Keywords: []string{"electronics", "electronic", "gadgets"},
			Topics: []KnowledgeTopic{
				{Name: "warranty", Keywords: []string{"warranty", "guarantee"}, Fact: "All electronics come with at least a 12-month manufacturer warranty."},
				{Name: "compatibility", Keywords: []string{"compatible", "compatibility", "work with"}, Fact: "Check the specifications tab for supported devices and connection standards."},
				{Name: "battery", Keywords: []string{"battery", "charge", "charging"}, Fact: "Battery life figures are measured by the manufacturer under typical use."},
			},
		},
		{
			Name:     "Clothing",
			Keywords: []string{"clothing", "clothes", "apparel"},
			Topics: []KnowledgeTopic{
				{Name: "materials", Keywords: []string{"material", "materials", "fabric", "cotton"}, Fact: "The fabric composition is listed on every clothing product page."},
				{Name: "care", Keywords: []string{"care", "wash", "washing", "iron"}, Fact: "Follow the care label; most items are machine washable at 30°C."},
				{Name: "sizing", Keywords: []string{"sizing", "sizes"}, Fact: "Each product has its own size chart with measurements in cm and inches."},
			},
		},
		{
			Name:     "Beauty",
			Keywords: []string{"beauty", "cosmetics", "skincare"},
			Topics: []KnowledgeTopic{
				{Name: "ingredients", Keywords: []string{"ingredient", "ingredients"}, Fact: "Full ingredient lists are shown on each beauty product page."},
				{Name: "skin type", Keywords: []string{"skin type", "sensitive", "oily", "dry"}, Fact: "Look for the skin type tags; we recommend a patch test for sensitive skin."},
				{Name: "expiry", Keywords: []string{"expiry", "expire", "shelf life"}, Fact: "Products show a period-after-opening symbol, usually 6 to 12 months."},
			},
		},
		{
			Name:     "Home",
			Keywords: []string{"home", "household", "decor"},
			Topics: []KnowledgeTopic{
				{Name: "assembly", Keywords: []string{"assembly", "assemble", "install"}, Fact: "Items that need assembly include instructions and all fittings."},
				{Name: "dimensions", Keywords: []string{"dimensions", "measurements", "dimension"}, Fact: "Dimensions are listed as width x depth x height in the specifications tab."},
				{Name: "care", Keywords: []string{"care", "clean", "cleaning"}, Fact: "Care instructions are included in the box and on the product page."},
			},
		},
		{
			Name:     "Shipping",
			Keywords: []string{"shipping", "delivery"},
			Topics: []KnowledgeTopic{
				{Name: "cost", Keywords: []string{"cost", "price", "free"}, Fact: "Shipping is free on orders over $50; otherwise it is calculated at checkout."},
				{Name: "times", Keywords: []string{"time", "times", "days", "fast"}, Fact: "Domestic orders arrive in 3-5 business days and international orders in 7-14."},
				{Name: "carriers", Keywords: []string{"carrier", "carriers", "courier"}, Fact: "Shops choose their carrier; the tracking link shows which one."},
			},
		},
		{
			Name:     "Returns",
			Keywords: []string{"returns", "return", "refunds", "refund"},
			Topics: []KnowledgeTopic{
				{Name: "window", Keywords: []string{"window", "days", "period"}, Fact: "You have 30 days from delivery to return most items."},
				{Name: "refunds", Keywords: []string{"refund", "money"}, Fact: "Refunds go back to the original payment method within 5 business days."},
				{Name: "cost", Keywords: []string{"cost", "free", "label"}, Fact: "Return shipping is free for faulty items; otherwise a prepaid label is deducted from your refund."},
			},
		},
		{
			Name:     "Orders",
			Keywords: []string{"orders", "order", "checkout"},
			Topics: []KnowledgeTopic{
				{Name: "cancel", Keywords: []string{"cancel", "cancellation"}, Fact: "Orders can be cancelled from your profile until the shop ships them."},
				{Name: "payment", Keywords: []string{"payment", "pay", "card"}, Fact: "We accept cards, wallets and cash on delivery where available."},
				{Name: "status", Keywords: []string{"status", "history"}, Fact: "Your order history and statuses are in the Orders tab of your profile."},
			},
		},
		{
			Name:     "Account",
			Keywords: []string{"account", "profile"},
			Topics: []KnowledgeTopic{
				{Name: "password", Keywords: []string{"password", "reset", "login"}, Fact: "Use Forgot password on the sign-in screen to reset your password."},
				{Name: "addresses", Keywords: []string{"address", "addresses"}, Fact: "Saved addresses can be managed from Settings in your profile."},
				{Name: "notifications", Keywords: []string{"notification", "notifications", "email"}, Fact: "Notification preferences are under Settings > Notifications."},
			},
		},
		{
			Name:     "Shops",
			Keywords: []string{"shops", "shop", "sellers", "seller"},
			Topics: []KnowledgeTopic{
				{Name: "contact", Keywords: []string{"contact", "message"}, Fact: "You can message a shop from its profile page."},
				{Name: "open a shop", Keywords: []string{"open", "sell", "become"}, Fact: "Anyone can open a shop from the Sell tab; listing products is free."},
				{Name: "ratings", Keywords: []string{"rating", "ratings", "review", "reviews"}, Fact: "Shop ratings are the average of verified buyer reviews."},
			},
		},
	}
}
