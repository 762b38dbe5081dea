package shopify

import "time"

type orderEnvelope struct {
	Order *shopifyOrder `json:"order"`
}

type ordersEnvelope struct {
	Orders []shopifyOrder `json:"orders"`
}

type shopifyOrder struct {
	ID         int64            `json:"id"`
	Name       string           `json:"name"`
	TotalPrice string           `json:"total_price"`
	Gateway    string           `json:"gateway"`
	Customer   *shopifyCustomer `json:"customer"`
	LineItems  []lineItem       `json:"line_items"`
	Refunds    []refund         `json:"refunds"`
}

type shopifyCustomer struct {
	ID          int64     `json:"id"`
	FirstName   string    `json:"first_name"`
	CreatedAt   time.Time `json:"created_at"`
	TotalSpent  string    `json:"total_spent"`
	OrdersCount int       `json:"orders_count"`
}

type lineItem struct {
	ProductType string `json:"product_type"`
}

type refund struct {
	ID int64 `json:"id"`
}

// WebhookOrder is the subset of an orders/create webhook payload needed to
// enqueue analysis.
type WebhookOrder struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Customer *struct {
		ID int64 `json:"id"`
	} `json:"customer"`
}

// HasCustomer reports whether the payload names a customer.
func (w WebhookOrder) HasCustomer() bool {
	return w.Customer != nil && w.Customer.ID != 0
}
