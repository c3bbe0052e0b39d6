package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shopmate/assistant-engine/internal/storage"
)

// Fixture is a YAML document describing shops and products to load.
type Fixture struct {
	Shops    []ShopRecord    `yaml:"shops"`
	Products []ProductRecord `yaml:"products"`
}

// ShopRecord is one shop row.
type ShopRecord struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ProductRecord is one product row as written to the database.
type ProductRecord struct {
	ID                 string    `yaml:"id"`
	ShopID             string    `yaml:"shop"`
	Name               string    `yaml:"name"`
	Price              float64   `yaml:"price"`
	Category           string    `yaml:"category"`
	StockQuantity      int       `yaml:"stock_quantity"`
	IsOnOrder          *bool     `yaml:"is_on_order"`
	DiscountPercentage *float64  `yaml:"discount_percentage"`
	Rating             *float64  `yaml:"rating"`
	ViewCount          int       `yaml:"view_count"`
	CreatedAt          time.Time `yaml:"created_at"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("validate fixture: %w", err)
	}
	return &f, nil
}

// Validate checks ids are present and every product references a known shop.
func (f *Fixture) Validate() error {
	shops := make(map[string]bool, len(f.Shops))
	for i, s := range f.Shops {
		if s.ID == "" || s.Name == "" {
			return fmt.Errorf("shop %d: id and name are required", i)
		}
		shops[s.ID] = true
	}
	for i, p := range f.Products {
		if p.ID == "" || p.Name == "" {
			return fmt.Errorf("product %d: id and name are required", i)
		}
		if !shops[p.ShopID] {
			return fmt.Errorf("product %s: unknown shop %q", p.ID, p.ShopID)
		}
		if p.Price < 0 {
			return fmt.Errorf("product %s: negative price", p.ID)
		}
	}
	return nil
}

// Seeder upserts fixture rows.
type Seeder struct {
	db      storage.DB
	dialect storage.Dialect
	now     func() time.Time
}

// NewSeeder creates a seeder.
func NewSeeder(db storage.DB, dialect storage.Dialect) *Seeder {
	return &Seeder{db: db, dialect: dialect, now: time.Now}
}

// Seed writes all shops then all products. progress, if set, is called after
// each row with the number of rows written so far.
func (s *Seeder) Seed(ctx context.Context, f *Fixture, progress func(done int)) error {
	shopQuery := s.dialect.Rebind(`
		INSERT INTO shops (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name
	`)
	productQuery := s.dialect.Rebind(`
		INSERT INTO products (id, shop_id, name, price, category, stock_quantity,
			is_on_order, discount_percentage, rating, view_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			shop_id = excluded.shop_id,
			name = excluded.name,
			price = excluded.price,
			category = excluded.category,
			stock_quantity = excluded.stock_quantity,
			is_on_order = excluded.is_on_order,
			discount_percentage = excluded.discount_percentage,
			rating = excluded.rating,
			view_count = excluded.view_count,
			created_at = excluded.created_at
	`)

	done := 0
	tick := func() {
		done++
		if progress != nil {
			progress(done)
		}
	}

	for _, shop := range f.Shops {
		if _, err := s.db.ExecContext(ctx, shopQuery, shop.ID, shop.Name); err != nil {
			return fmt.Errorf("upsert shop %s: %w", shop.ID, err)
		}
		tick()
	}

	for _, p := range f.Products {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = s.now()
		}
		if _, err := s.db.ExecContext(ctx, productQuery,
			p.ID, p.ShopID, p.Name, p.Price, p.Category, p.StockQuantity,
			p.IsOnOrder, p.DiscountPercentage, p.Rating, p.ViewCount, createdAt.UTC(),
		); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		tick()
	}

	return nil
}

// Rows returns the number of rows Seed will write.
func (f *Fixture) Rows() int {
	return len(f.Shops) + len(f.Products)
}
