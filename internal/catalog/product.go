// Package catalog provides the read-only product queries the assistant runs
// against the marketplace database.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
)

// Catalog is the product collaborator consumed by the assistant.
// Every method is a network/database call and may fail.
type Catalog interface {
	// SearchByName returns products whose name contains text, most viewed first.
	SearchByName(ctx context.Context, text string, limit int) ([]ProductSummary, error)
	// ListByCategory returns products in category ordered by popularity.
	// An empty category lists across all categories.
	ListByCategory(ctx context.Context, category string, limit int) ([]ProductSummary, error)
	// ListNewest returns the most recently listed products.
	ListNewest(ctx context.Context, limit int) ([]ProductSummary, error)
	// ListDiscounted returns discounted products, largest discount first.
	ListDiscounted(ctx context.Context, limit int) ([]ProductSummary, error)
	// ListTopViewed returns the names of the most viewed products.
	ListTopViewed(ctx context.Context, limit int) ([]string, error)
}

// ProductSummary is a read-only projection of a product row.
type ProductSummary struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Price              float64     `json:"price"`
	Category           string      `json:"category"`
	ShopName           string      `json:"shopName"`
	StockQuantity      int         `json:"stockQuantity"`
	Stock              StockStatus `json:"stock"`
	DiscountPercentage *float64    `json:"discountPercentage,omitempty"`
	Rating             *float64    `json:"rating,omitempty"`
}

// InStock reports availability derived from the stock status.
func (p ProductSummary) InStock() bool {
	return p.Stock.InStock()
}

type stockKind uint8

const (
	stockQuantityOnly stockKind = iota
	stockOnOrderFlag
)

// StockStatus is either an explicit on-order flag or a bare stock quantity.
// The zero value is QuantityOnly(0).
type StockStatus struct {
	kind     stockKind
	onOrder  bool
	quantity int
}

// OnOrderFlag builds a status from an explicit is_on_order value.
func OnOrderFlag(onOrder bool) StockStatus {
	return StockStatus{kind: stockOnOrderFlag, onOrder: onOrder}
}

// QuantityOnly builds a status from a stock quantity alone.
func QuantityOnly(quantity int) StockStatus {
	return StockStatus{kind: stockQuantityOnly, quantity: quantity}
}

// StockFromRow resolves a product row into a status. A present is_on_order
// field takes precedence; quantity is consulted only when it is absent.
func StockFromRow(isOnOrder *bool, quantity int) StockStatus {
	if isOnOrder != nil {
		return OnOrderFlag(*isOnOrder)
	}
	return QuantityOnly(quantity)
}

// InStock is !onOrder for the flag variant and quantity > 0 otherwise.
func (s StockStatus) InStock() bool {
	if s.kind == stockOnOrderFlag {
		return !s.onOrder
	}
	return s.quantity > 0
}

// OnOrder returns the flag and whether this status carries one.
func (s StockStatus) OnOrder() (onOrder bool, ok bool) {
	return s.onOrder, s.kind == stockOnOrderFlag
}

// Quantity returns the quantity and whether this status carries one.
func (s StockStatus) Quantity() (quantity int, ok bool) {
	return s.quantity, s.kind == stockQuantityOnly
}

func (s StockStatus) String() string {
	if s.kind == stockOnOrderFlag {
		return fmt.Sprintf("on_order=%t", s.onOrder)
	}
	return fmt.Sprintf("quantity=%d", s.quantity)
}

type stockJSON struct {
	OnOrder  *bool `json:"onOrder,omitempty"`
	Quantity *int  `json:"quantity,omitempty"`
	InStock  bool  `json:"inStock"`
}

// MarshalJSON encodes exactly one of onOrder or quantity, plus the derived inStock.
func (s StockStatus) MarshalJSON() ([]byte, error) {
	out := stockJSON{InStock: s.InStock()}
	if s.kind == stockOnOrderFlag {
		v := s.onOrder
		out.OnOrder = &v
	} else {
		q := s.quantity
		out.Quantity = &q
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (s *StockStatus) UnmarshalJSON(data []byte) error {
	var in stockJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode stock status: %w", err)
	}
	quantity := 0
	if in.Quantity != nil {
		quantity = *in.Quantity
	}
	*s = StockFromRow(in.OnOrder, quantity)
	return nil
}
