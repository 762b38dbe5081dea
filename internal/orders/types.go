package orders

import (
	"time"

	"github.com/imrishuroy/returnguard/internal/returns"
	"github.com/imrishuroy/returnguard/internal/risk"
)

// Order statuses
const (
	StatusPending         = "PENDING"
	StatusAnalyzing       = "ANALYZING"
	StatusConfirmed       = "CONFIRMED"
	StatusFailed          = "FAILED"
	StatusReturnRequested = "RETURN_REQUESTED"
)

// Order sources
const (
	SourceManual  = "manual"
	SourceShopify = "shopify"
)

// ReturnInfo is what the customer submitted when asking for a return.
type ReturnInfo struct {
	Reason      string            `json:"reason" dynamodbav:"reason"`
	Condition   returns.Condition `json:"item_condition" dynamodbav:"item_condition"`
	RequestedAt time.Time         `json:"requested_at" dynamodbav:"requested_at"`
}

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID          string                 `json:"order_id" dynamodbav:"order_id"` // PK
	OwnerID          string                 `json:"owner_id" dynamodbav:"owner_id"` // owner_id-index
	Status           string                 `json:"status" dynamodbav:"status"`
	Source           string                 `json:"source" dynamodbav:"source"`
	ShopifyOrderID   string                 `json:"shopify_order_id,omitempty" dynamodbav:"shopify_order_id,omitempty"`
	Input            risk.Order             `json:"input" dynamodbav:"input"`
	RiskAnalysis     *risk.RiskAnalysis     `json:"risk_analysis,omitempty" dynamodbav:"risk_analysis,omitempty"`
	GeneratedMessage *risk.GeneratedMessage `json:"generated_message,omitempty" dynamodbav:"generated_message,omitempty"`
	ReturnRequest    *ReturnInfo            `json:"return_request,omitempty" dynamodbav:"return_request,omitempty"`
	ReturnDecision   *returns.Decision      `json:"return_decision,omitempty" dynamodbav:"return_decision,omitempty"`
	IsReturned       bool                   `json:"is_returned" dynamodbav:"is_returned"`
	ReturnPrevented  bool                   `json:"return_prevented" dynamodbav:"return_prevented"`
	Note             string                 `json:"note,omitempty" dynamodbav:"note,omitempty"`
	Attempts         int                    `json:"attempts,omitempty" dynamodbav:"attempts,omitempty"`
	CreatedAt        time.Time              `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" dynamodbav:"updated_at"`
}

// Analysis is the pipeline output persisted onto an order.
type Analysis struct {
	Input        risk.Order
	RiskAnalysis risk.RiskAnalysis
	Message      *risk.GeneratedMessage
}

// Stats summarises a merchant's orders.
type Stats struct {
	TotalOrders      int `json:"totalOrders"`
	ReturnRequests   int `json:"returnRequests"`
	PreventedReturns int `json:"preventedReturns"`
	SuccessRate      int `json:"successRate"`
}

// ComputeStats derives dashboard figures. The success rate is the share of
// orders that were not returned, rounded, and 100 when there are no orders.
func ComputeStats(list []Order) Stats {
	st := Stats{TotalOrders: len(list), SuccessRate: 100}
	for _, o := range list {
		if o.IsReturned {
			st.ReturnRequests++
		}
		if o.ReturnPrevented {
			st.PreventedReturns++
		}
	}
	if st.TotalOrders > 0 {
		kept := float64(st.TotalOrders-st.ReturnRequests) / float64(st.TotalOrders) * 100
		st.SuccessRate = int(kept + 0.5)
	}
	return st
}
