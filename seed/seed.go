// Package seed populates a deployment with synthetic commerce data so the
// accuracy checks have something meaningful to recompute.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aiventory/invoqa/supa"
)

const lineItemBatchSize = 50

// Config tunes the generated dataset.
type Config struct {
	DB  *supa.Client
	Log logrus.FieldLogger

	Companies           int     // Companies to ensure exist
	CustomersPerCompany int     //
	ProductsPerCompany  int     //
	OrdersPerCompany    int     //
	HistoryDays         int     // Order dates spread over this many days
	DeadStockFraction   float64 // Share of variants left with zero sales
	Seed                uint64  // 0 picks a random seed
}

// DefaultConfig mirrors the dataset shape the harness was tuned against.
func DefaultConfig(db *supa.Client, log logrus.FieldLogger) Config {
	return Config{
		DB:                  db,
		Log:                 log,
		Companies:           5,
		CustomersPerCompany: 10,
		ProductsPerCompany:  5,
		OrdersPerCompany:    20,
		HistoryDays:         180,
		DeadStockFraction:   0.2,
	}
}

// Stats summarizes what one seeding pass inserted.
type Stats struct {
	CompaniesSeeded  int
	CompaniesSkipped int
	Customers        int
	Products         int
	Variants         int
	Orders           int
	LineItems        int
}

// Seeder generates and inserts the synthetic dataset.
type Seeder struct {
	cfg   Config
	log   logrus.FieldLogger
	faker *gofakeit.Faker
}

// Row shapes for the tables the seeder writes.

type companyRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type settingsRow struct {
	CompanyID     string `json:"company_id"`
	DeadStockDays int    `json:"dead_stock_days"`
}

type customerRow struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email"`
	TotalOrders  int       `json:"total_orders"`
	TotalSpent   float64   `json:"total_spent"`
	CreatedAt    time.Time `json:"created_at"`
}

type productRow struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type variantRow struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	CompanyID         string    `json:"company_id"`
	SKU               string    `json:"sku"`
	Title             string    `json:"title"`
	Price             float64   `json:"price"`
	Cost              float64   `json:"cost"`
	InventoryQuantity int       `json:"inventory_quantity"`
	ReorderPoint      int       `json:"reorder_point"`
	ReorderQuantity   int       `json:"reorder_quantity"`
	CreatedAt         time.Time `json:"created_at"`

	deadStock    bool
	highVelocity bool
}

type orderRow struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	OrderNumber     string    `json:"order_number"`
	CustomerID      string    `json:"customer_id"`
	FinancialStatus string    `json:"financial_status"`
	Currency        string    `json:"currency"`
	Subtotal        float64   `json:"subtotal"`
	TotalTax        float64   `json:"total_tax"`
	TotalAmount     float64   `json:"total_amount"`
	SourcePlatform  string    `json:"source_platform"`
	CreatedAt       time.Time `json:"created_at"`
}

type lineItemRow struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	VariantID   string    `json:"variant_id"`
	CompanyID   string    `json:"company_id"`
	ProductName string    `json:"product_name"`
	SKU         string    `json:"sku"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Cost        float64   `json:"cost"`
	CreatedAt   time.Time `json:"created_at"`
}

// New builds a seeder from cfg, applying defaults for unset knobs.
func New(cfg Config) (*Seeder, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("seeder requires a database client")
	}
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	defaults := DefaultConfig(cfg.DB, cfg.Log)
	if cfg.Companies <= 0 {
		cfg.Companies = defaults.Companies
	}
	if cfg.CustomersPerCompany <= 0 {
		cfg.CustomersPerCompany = defaults.CustomersPerCompany
	}
	if cfg.ProductsPerCompany <= 0 {
		cfg.ProductsPerCompany = defaults.ProductsPerCompany
	}
	if cfg.OrdersPerCompany <= 0 {
		cfg.OrdersPerCompany = defaults.OrdersPerCompany
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = defaults.HistoryDays
	}
	if cfg.DeadStockFraction < 0 || cfg.DeadStockFraction >= 1 {
		cfg.DeadStockFraction = defaults.DeadStockFraction
	}

	faker := gofakeit.New(cfg.Seed)
	return &Seeder{cfg: cfg, log: cfg.Log, faker: faker}, nil
}

// Run ensures cfg.Companies companies exist and seeds customers, products,
// and order history for every company that has no orders yet. Companies
// that already have orders are left untouched.
func (s *Seeder) Run(ctx context.Context) (*Stats, error) {
	companies, err := s.ensureCompanies(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, company := range companies {
		orders, err := s.cfg.DB.From("orders").
			Select("id").
			Eq("company_id", company.ID).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count orders for %s: %w", company.Name, err)
		}
		if orders > 0 {
			s.log.WithFields(logrus.Fields{"company": company.Name, "orders": orders}).
				Info("company already seeded, skipping")
			stats.CompaniesSkipped++
			continue
		}

		if err := s.seedCompany(ctx, company, stats); err != nil {
			return nil, err
		}
		stats.CompaniesSeeded++
	}

	s.log.WithFields(logrus.Fields{
		"seeded":  stats.CompaniesSeeded,
		"skipped": stats.CompaniesSkipped,
		"orders":  stats.Orders,
	}).Info("seeding complete")
	return stats, nil
}

func (s *Seeder) ensureCompanies(ctx context.Context) ([]companyRow, error) {
	var existing []companyRow
	err := s.cfg.DB.From("companies").
		Select("id,name,created_at").
		OrderDesc("created_at").
		Limit(s.cfg.Companies).
		Execute(ctx, &existing)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	missing := s.cfg.Companies - len(existing)
	if missing <= 0 {
		return existing, nil
	}

	var created []companyRow
	var settings []settingsRow
	for i := 0; i < missing; i++ {
		company := companyRow{
			ID:        uuid.NewString(),
			Name:      s.faker.Company(),
			CreatedAt: time.Now().UTC(),
		}
		created = append(created, company)
		settings = append(settings, settingsRow{CompanyID: company.ID, DeadStockDays: 90})
	}
	if err := s.cfg.DB.Insert(ctx, "companies", created); err != nil {
		return nil, fmt.Errorf("failed to insert companies: %w", err)
	}
	if err := s.cfg.DB.Insert(ctx, "company_settings", settings); err != nil {
		return nil, fmt.Errorf("failed to insert company settings: %w", err)
	}
	s.log.WithField("count", missing).Info("created companies")
	return append(existing, created...), nil
}

func (s *Seeder) seedCompany(ctx context.Context, company companyRow, stats *Stats) error {
	log := s.log.WithField("company", company.Name)
	log.Info("seeding company")

	customers := s.buildCustomers(company)
	if err := s.cfg.DB.Insert(ctx, "customers", customers); err != nil {
		return fmt.Errorf("failed to insert customers for %s: %w", company.Name, err)
	}
	stats.Customers += len(customers)

	products, variants := s.buildCatalog(company)
	if err := s.cfg.DB.Insert(ctx, "products", products); err != nil {
		return fmt.Errorf("failed to insert products for %s: %w", company.Name, err)
	}
	if err := s.cfg.DB.Insert(ctx, "product_variants", variants); err != nil {
		return fmt.Errorf("failed to insert variants for %s: %w", company.Name, err)
	}
	stats.Products += len(products)
	stats.Variants += len(variants)

	orders, lineItems := s.buildOrders(company, customers, variants)
	if err := s.cfg.DB.Insert(ctx, "orders", orders); err != nil {
		return fmt.Errorf("failed to insert orders for %s: %w", company.Name, err)
	}
	for i := 0; i < len(lineItems); i += lineItemBatchSize {
		end := i + lineItemBatchSize
		if end > len(lineItems) {
			end = len(lineItems)
		}
		if err := s.cfg.DB.Insert(ctx, "order_line_items", lineItems[i:end]); err != nil {
			return fmt.Errorf("failed to insert line items for %s: %w", company.Name, err)
		}
	}
	stats.Orders += len(orders)
	stats.LineItems += len(lineItems)
	return nil
}

func (s *Seeder) buildCustomers(company companyRow) []customerRow {
	customers := make([]customerRow, 0, s.cfg.CustomersPerCompany)
	for i := 0; i < s.cfg.CustomersPerCompany; i++ {
		customers = append(customers, customerRow{
			ID:           uuid.NewString(),
			CompanyID:    company.ID,
			CustomerName: s.faker.Name(),
			Email:        s.faker.Email(),
			CreatedAt:    time.Now().UTC(),
		})
	}
	return customers
}

// buildCatalog creates products with 1 to 3 variants each. A configured
// fraction of variants is marked dead stock: inventory on hand but excluded
// from every order, so the dead-stock report must surface it. One variant
// per company is marked high velocity and shows up in most orders.
func (s *Seeder) buildCatalog(company companyRow) ([]productRow, []variantRow) {
	products := make([]productRow, 0, s.cfg.ProductsPerCompany)
	var variants []variantRow

	for i := 0; i < s.cfg.ProductsPerCompany; i++ {
		product := productRow{
			ID:          uuid.NewString(),
			CompanyID:   company.ID,
			Title:       s.faker.ProductName(),
			Description: s.faker.ProductDescription(),
			Status:      "active",
			CreatedAt:   time.Now().UTC(),
		}
		products = append(products, product)

		for j := 0; j < s.faker.IntRange(1, 3); j++ {
			cost := s.faker.Float64Range(10, 100)
			variants = append(variants, variantRow{
				ID:                uuid.NewString(),
				ProductID:         product.ID,
				CompanyID:         company.ID,
				SKU:               s.sku(company),
				Title:             fmt.Sprintf("Variant %d", j+1),
				Price:             cost * s.faker.Float64Range(1.5, 3.0),
				Cost:              cost,
				InventoryQuantity: s.faker.IntRange(20, 200),
				ReorderPoint:      s.faker.IntRange(5, 25),
				ReorderQuantity:   s.faker.IntRange(20, 60),
				CreatedAt:         time.Now().UTC(),
			})
		}
	}

	deadCount := int(float64(len(variants)) * s.cfg.DeadStockFraction)
	for i := 0; i < deadCount; i++ {
		variants[i].deadStock = true
	}
	if deadCount < len(variants) {
		variants[len(variants)-1].highVelocity = true
	}
	return products, variants
}

func (s *Seeder) buildOrders(company companyRow, customers []customerRow, variants []variantRow) ([]orderRow, []lineItemRow) {
	sellable := make([]variantRow, 0, len(variants))
	var hot *variantRow
	for i, v := range variants {
		if v.deadStock {
			continue
		}
		sellable = append(sellable, v)
		if v.highVelocity {
			hot = &variants[i]
		}
	}

	orders := make([]orderRow, 0, s.cfg.OrdersPerCompany)
	var lineItems []lineItemRow

	for i := 0; i < s.cfg.OrdersPerCompany; i++ {
		orderID := uuid.NewString()
		placed := time.Now().UTC().AddDate(0, 0, -s.faker.IntRange(1, s.cfg.HistoryDays))
		customer := customers[s.faker.IntRange(0, len(customers)-1)]

		var picked []variantRow
		if hot != nil && s.faker.IntRange(1, 10) <= 7 {
			picked = append(picked, *hot)
		}
		if len(sellable) > 0 {
			picked = append(picked, sellable[s.faker.IntRange(0, len(sellable)-1)])
		}

		var subtotal float64
		for _, v := range picked {
			qty := s.faker.IntRange(1, 4)
			subtotal += v.Price * float64(qty)
			lineItems = append(lineItems, lineItemRow{
				ID:          uuid.NewString(),
				OrderID:     orderID,
				VariantID:   v.ID,
				CompanyID:   company.ID,
				ProductName: v.Title,
				SKU:         v.SKU,
				Quantity:    qty,
				Price:       v.Price,
				Cost:        v.Cost,
				CreatedAt:   placed,
			})
		}

		tax := subtotal * 0.08
		orders = append(orders, orderRow{
			ID:              orderID,
			CompanyID:       company.ID,
			OrderNumber:     fmt.Sprintf("ORD-%s-%s-%05d", companyPrefix(company.Name), placed.Format("20060102"), s.faker.IntRange(10000, 99999)),
			CustomerID:      customer.ID,
			FinancialStatus: "paid",
			Currency:        "USD",
			Subtotal:        subtotal,
			TotalTax:        tax,
			TotalAmount:     subtotal + tax,
			SourcePlatform:  "shopify",
			CreatedAt:       placed,
		})
	}
	return orders, lineItems
}

// sku folds a fragment of the company id into the generated code so two
// companies whose names share a prefix still get disjoint catalogs. The
// tenant isolation check treats any cross-company SKU overlap as a leak.
func (s *Seeder) sku(company companyRow) string {
	return fmt.Sprintf("SKU-%s-%s-%04d", companyPrefix(company.Name), idFragment(company.ID), s.faker.IntRange(1000, 9999))
}

// companyPrefix derives a three-character tag from a company name. Names may
// contain multi-byte characters, so it slices runes rather than bytes.
func companyPrefix(name string) string {
	clean := []rune(strings.ToUpper(strings.ReplaceAll(name, " ", "")))
	for len(clean) < 3 {
		clean = append(clean, 'X')
	}
	return string(clean[:3])
}

func idFragment(id string) string {
	clean := []rune(strings.ToUpper(id))
	if len(clean) > 8 {
		clean = clean[:8]
	}
	return string(clean)
}
