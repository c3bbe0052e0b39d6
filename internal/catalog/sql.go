package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopmate/assistant-engine/internal/storage"
)

const summaryColumns = `
	SELECT p.id, p.name, p.price, p.category, s.name,
		p.stock_quantity, p.is_on_order, p.discount_percentage, p.rating
	FROM products p
	JOIN shops s ON s.id = p.shop_id
`

// SQLCatalog implements Catalog against the marketplace SQL schema.
type SQLCatalog struct {
	db      storage.DB
	dialect storage.Dialect
}

// NewSQLCatalog creates a catalog over db using the given dialect.
func NewSQLCatalog(db storage.DB, dialect storage.Dialect) *SQLCatalog {
	return &SQLCatalog{db: db, dialect: dialect}
}

// SearchByName performs a case-insensitive substring match on product names.
func (c *SQLCatalog) SearchByName(ctx context.Context, text string, limit int) ([]ProductSummary, error) {
	query := summaryColumns + `
		WHERE LOWER(p.name) LIKE ? ESCAPE '\'
		ORDER BY p.view_count DESC, p.name
		LIMIT ?
	`
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(text))) + "%"
	return c.querySummaries(ctx, "search by name", query, pattern, limit)
}

// ListByCategory lists products in category, most viewed first.
func (c *SQLCatalog) ListByCategory(ctx context.Context, category string, limit int) ([]ProductSummary, error) {
	if category == "" {
		query := summaryColumns + `
			ORDER BY p.view_count DESC, p.name
			LIMIT ?
		`
		return c.querySummaries(ctx, "list popular", query, limit)
	}

	query := summaryColumns + `
		WHERE LOWER(p.category) = ?
		ORDER BY p.view_count DESC, p.name
		LIMIT ?
	`
	return c.querySummaries(ctx, "list by category", query, strings.ToLower(category), limit)
}

// ListNewest lists the most recently created products.
func (c *SQLCatalog) ListNewest(ctx context.Context, limit int) ([]ProductSummary, error) {
	query := summaryColumns + `
		ORDER BY p.created_at DESC, p.name
		LIMIT ?
	`
	return c.querySummaries(ctx, "list newest", query, limit)
}

// ListDiscounted lists products with a positive discount, largest first.
func (c *SQLCatalog) ListDiscounted(ctx context.Context, limit int) ([]ProductSummary, error) {
	query := summaryColumns + `
		WHERE p.discount_percentage IS NOT NULL AND p.discount_percentage > 0
		ORDER BY p.discount_percentage DESC, p.name
		LIMIT ?
	`
	return c.querySummaries(ctx, "list discounted", query, limit)
}

// ListTopViewed returns product names ordered by view count.
func (c *SQLCatalog) ListTopViewed(ctx context.Context, limit int) ([]string, error) {
	query := c.dialect.Rebind(`
		SELECT name FROM products
		ORDER BY view_count DESC, name
		LIMIT ?
	`)

	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list top viewed: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan top viewed: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list top viewed: %w", err)
	}
	return names, nil
}

func (c *SQLCatalog) querySummaries(ctx context.Context, op, query string, args ...interface{}) ([]ProductSummary, error) {
	rows, err := c.db.QueryContext(ctx, c.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var products []ProductSummary
	for rows.Next() {
		p, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

func scanSummary(rows *sql.Rows) (ProductSummary, error) {
	var (
		p         ProductSummary
		isOnOrder sql.NullBool
		discount  sql.NullFloat64
		rating    sql.NullFloat64
	)

	if err := rows.Scan(
		&p.ID, &p.Name, &p.Price, &p.Category, &p.ShopName,
		&p.StockQuantity, &isOnOrder, &discount, &rating,
	); err != nil {
		return ProductSummary{}, err
	}

	var onOrder *bool
	if isOnOrder.Valid {
		onOrder = &isOnOrder.Bool
	}
	p.Stock = StockFromRow(onOrder, p.StockQuantity)

	if discount.Valid {
		p.DiscountPercentage = &discount.Float64
	}
	if rating.Valid {
		p.Rating = &rating.Float64
	}
	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
