package domain

import "github.com/shopspring/decimal"

// AdminStats is the dashboard rollup
type AdminStats struct {
	TotalProducts int             `json:"total_products"`
	TotalOrders   int             `json:"total_orders"`
	TotalUsers    int             `json:"total_users"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	RecentOrders  []*Order        `json:"recent_orders"`
}
