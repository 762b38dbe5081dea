package validation

import "github.com/imrishuroy/returnguard/internal/risk"

// AnalyzeOrderRequest is the payload for POST /orders. Every field but the
// order id is optional; absent values fall back to the scoring defaults.
type AnalyzeOrderRequest struct {
	OrderID               string  `json:"order_id" validate:"required,max=128"`
	ProductCategory       string  `json:"product_category,omitempty" validate:"max=64"`
	Price                 float64 `json:"price,omitempty" validate:"gte=0"`
	PaymentMethod         string  `json:"payment_method,omitempty" validate:"max=32"`
	IsCOD                 bool    `json:"is_cod,omitempty"`
	CustomerID            string  `json:"customer_id,omitempty" validate:"max=128"`
	CustomerName          string  `json:"customer_name,omitempty" validate:"max=128"`
	AccountAgeDays        int     `json:"account_age_days,omitempty" validate:"gte=0"`
	PastReturns           int     `json:"past_returns,omitempty" validate:"gte=0"`
	PastOrders            *int    `json:"past_orders,omitempty" validate:"omitempty,gte=0"`
	ReturnHistoryCount    *int    `json:"return_history_count,omitempty" validate:"omitempty,gte=0"`
	CustomerReturnHistory float64 `json:"customer_return_history,omitempty" validate:"gte=0,lte=100"`
	ReturnRate            float64 `json:"return_rate,omitempty" validate:"gte=0,lte=100"`
	CustomerAvgOrderValue float64 `json:"customer_avg_order_value,omitempty" validate:"gte=0"`
	ProductReturnRate     float64 `json:"product_return_rate,omitempty" validate:"gte=0,lte=100"`
	CategoryRiskScore     float64 `json:"category_risk_score,omitempty" validate:"gte=0,lte=100"`
	AvgReturnCost         float64 `json:"avg_return_cost,omitempty" validate:"gte=0"`
}

// ToOrder converts the request into the pipeline input.
func (r AnalyzeOrderRequest) ToOrder() risk.Order {
	return risk.Order{
		OrderID:               r.OrderID,
		ProductCategory:       r.ProductCategory,
		Price:                 r.Price,
		PaymentMethod:         r.PaymentMethod,
		IsCOD:                 r.IsCOD,
		CustomerID:            r.CustomerID,
		CustomerName:          r.CustomerName,
		AccountAgeDays:        r.AccountAgeDays,
		PastReturns:           r.PastReturns,
		PastOrders:            r.PastOrders,
		ReturnHistoryCount:    r.ReturnHistoryCount,
		CustomerReturnHistory: r.CustomerReturnHistory,
		ReturnRate:            r.ReturnRate,
		CustomerAvgOrderValue: r.CustomerAvgOrderValue,
		ProductReturnRate:     r.ProductReturnRate,
		CategoryRiskScore:     r.CategoryRiskScore,
		AvgReturnCost:         r.AvgReturnCost,
	}
}

// ReturnRequest is the payload for POST /returns.
type ReturnRequest struct {
	OrderID       string `json:"order_id" validate:"required"`
	Reason        string `json:"reason" validate:"required,max=64"`
	ItemCondition string `json:"item_condition" validate:"required,max=32"`
}

// CredentialsRequest is the payload for signup and login.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"` // bcrypt limit
}
