package assistant

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopmate/assistant-engine/internal/catalog"
)

// ComparisonSummary is the structured form of a two-product comparison.
type ComparisonSummary struct {
	Heading    string
	Lines      []string
	Conclusion string
	// Note is set only when exactly one product is in stock.
	Note string
}

// SummarizeComparison compares price, availability, seller and, when both
// products are rated, rating.
func SummarizeComparison(a, b catalog.ProductSummary) ComparisonSummary {
	s := ComparisonSummary{
		Heading: fmt.Sprintf("Here's how %s compares to %s:", a.Name, b.Name),
		Lines: []string{
			fmt.Sprintf("Price: %s %s vs %s %s", a.Name, formatPrice(a.Price), b.Name, formatPrice(b.Price)),
			fmt.Sprintf("Availability: %s is %s, %s is %s", a.Name, availability(a), b.Name, availability(b)),
			fmt.Sprintf("Seller: %s sells %s, %s sells %s", shopName(a), a.Name, shopName(b), b.Name),
		},
	}
	if a.Rating != nil && b.Rating != nil {
		s.Lines = append(s.Lines, fmt.Sprintf("Rating: %s %.1f/5 vs %s %.1f/5", a.Name, *a.Rating, b.Name, *b.Rating))
	}

	diff := math.Round(math.Abs(a.Price-b.Price)*100) / 100
	switch {
	case diff == 0:
		s.Conclusion = fmt.Sprintf("%s and %s cost the same.", a.Name, b.Name)
	case a.Price < b.Price:
		s.Conclusion = fmt.Sprintf("%s is $%.2f cheaper than %s.", a.Name, diff, b.Name)
	default:
		s.Conclusion = fmt.Sprintf("%s is $%.2f cheaper than %s.", b.Name, diff, a.Name)
	}

	switch {
	case a.InStock() && !b.InStock():
		s.Note = fmt.Sprintf("Note: only %s is currently in stock.", a.Name)
	case b.InStock() && !a.InStock():
		s.Note = fmt.Sprintf("Note: only %s is currently in stock.", b.Name)
	}
	return s
}

// String renders the summary as reply text.
func (s ComparisonSummary) String() string {
	var sb strings.Builder
	sb.WriteString(s.Heading)
	for _, line := range s.Lines {
		sb.WriteString("\n• ")
		sb.WriteString(line)
	}
	sb.WriteString("\n\n")
	sb.WriteString(s.Conclusion)
	if s.Note != "" {
		sb.WriteString("\n")
		sb.WriteString(s.Note)
	}
	return sb.String()
}

func formatPrice(price float64) string {
	return fmt.Sprintf("$%.2f", price)
}

func availability(p catalog.ProductSummary) string {
	if p.InStock() {
		return "in stock"
	}
	return "out of stock"
}

func shopName(p catalog.ProductSummary) string {
	if p.ShopName == "" {
		return "An independent shop"
	}
	return p.ShopName
}
