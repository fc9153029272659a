package checks

import "time"

// Row types for the tables the checks read. Only the columns a check needs
// are declared; PostgREST ignores the rest via select lists.

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type CompanySettings struct {
	DeadStockDays int `json:"dead_stock_days"`
}

type Variant struct {
	ID                string  `json:"id"`
	SKU               string  `json:"sku"`
	ProductID         string  `json:"product_id"`
	CompanyID         string  `json:"company_id"`
	InventoryQuantity int     `json:"inventory_quantity"`
	Cost              float64 `json:"cost"`
	Price             float64 `json:"price"`
	ReorderPoint      int     `json:"reorder_point"`
	ReorderQuantity   int     `json:"reorder_quantity"`
}

type LineItem struct {
	VariantID string    `json:"variant_id"`
	CompanyID string    `json:"company_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}

// RPC result rows. The application returns these shapes from its reporting
// procedures.

type DeadStockRow struct {
	SKU          string  `json:"sku"`
	ProductTitle string  `json:"product_title"`
	Quantity     int     `json:"quantity"`
	TotalValue   float64 `json:"total_value"`
}

type ReorderRow struct {
	SKU               string `json:"sku"`
	CurrentQuantity   int    `json:"current_quantity"`
	SuggestedQuantity int    `json:"suggested_quantity"`
}

type ABCRow struct {
	SKU      string  `json:"sku"`
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
}

type TurnoverRow struct {
	TurnoverRatio float64 `json:"turnover_ratio"`
	COGS          float64 `json:"cogs"`
	AvgInventory  float64 `json:"average_inventory_value"`
}

type MarginRow struct {
	AverageMargin float64 `json:"average_margin"`
}
