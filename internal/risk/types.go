package risk

import "time"

// Label is the coarse risk bucket derived from a numeric score.
type Label string

const (
	LabelModerate Label = "MODERATE"
	LabelMedium   Label = "MEDIUM"
	LabelHigh     Label = "HIGH"
)

// Score thresholds. A score at or above the threshold belongs to the bucket.
const (
	HighThreshold   = 70
	MediumThreshold = 40
)

// LabelForScore maps a 0-100 score to its label.
func LabelForScore(score int) Label {
	switch {
	case score >= HighThreshold:
		return LabelHigh
	case score >= MediumThreshold:
		return LabelMedium
	default:
		return LabelModerate
	}
}

// DefaultConfidence is the label-based confidence used when the history
// override is disabled.
func (l Label) DefaultConfidence() int {
	switch l {
	case LabelHigh:
		return 85
	case LabelMedium:
		return 82
	default:
		return 78
	}
}

// Action is the preventive action recommended for an order.
type Action string

const (
	ActionNone         Action = "NO_ACTION"
	ActionIncentive    Action = "INCENTIVE"
	ActionConfirmation Action = "CONFIRMATION"
)

// Order is the input record the pipeline reads. All numeric fields are
// optional; zero means absent. PastOrders and ReturnHistoryCount are pointers
// because their presence alone changes the narrative and confidence.
type Order struct {
	OrderID               string  `json:"order_id" dynamodbav:"order_id"`
	ProductCategory       string  `json:"product_category,omitempty" dynamodbav:"product_category,omitempty"`
	Price                 float64 `json:"price,omitempty" dynamodbav:"price,omitempty"`
	PaymentMethod         string  `json:"payment_method,omitempty" dynamodbav:"payment_method,omitempty"`
	IsCOD                 bool    `json:"is_cod,omitempty" dynamodbav:"is_cod,omitempty"`
	CustomerID            string  `json:"customer_id,omitempty" dynamodbav:"customer_id,omitempty"`
	CustomerName          string  `json:"customer_name,omitempty" dynamodbav:"customer_name,omitempty"`
	AccountAgeDays        int     `json:"account_age_days,omitempty" dynamodbav:"account_age_days,omitempty"`
	PastReturns           int     `json:"past_returns,omitempty" dynamodbav:"past_returns,omitempty"`
	PastOrders            *int    `json:"past_orders,omitempty" dynamodbav:"past_orders,omitempty"`
	ReturnHistoryCount    *int    `json:"return_history_count,omitempty" dynamodbav:"return_history_count,omitempty"`
	CustomerReturnHistory float64 `json:"customer_return_history,omitempty" dynamodbav:"customer_return_history,omitempty"`
	ReturnRate            float64 `json:"return_rate,omitempty" dynamodbav:"return_rate,omitempty"`
	CustomerAvgOrderValue float64 `json:"customer_avg_order_value,omitempty" dynamodbav:"customer_avg_order_value,omitempty"`
	ProductReturnRate     float64 `json:"product_return_rate,omitempty" dynamodbav:"product_return_rate,omitempty"`
	CategoryRiskScore     float64 `json:"category_risk_score,omitempty" dynamodbav:"category_risk_score,omitempty"`
	AvgReturnCost         float64 `json:"avg_return_cost,omitempty" dynamodbav:"avg_return_cost,omitempty"`
}

// HasCustomerHistory reports whether the caller supplied customer history.
func (o Order) HasCustomerHistory() bool {
	return o.PastOrders != nil || o.ReturnHistoryCount != nil
}

// ROIBreakdown itemises the figures behind EstimatedSavings.
type ROIBreakdown struct {
	HandlingCost          float64 `json:"handling_cost" dynamodbav:"handling_cost"`
	RefundLoss            float64 `json:"refund_loss" dynamodbav:"refund_loss"`
	ShippingCost          float64 `json:"shipping_cost" dynamodbav:"shipping_cost"`
	PreventionProbability int     `json:"prevention_probability" dynamodbav:"prevention_probability"`
}

// RiskAnalysis is the derived record produced once per order.
type RiskAnalysis struct {
	RiskScore                  int          `json:"risk_score" dynamodbav:"risk_score"`
	RiskLabel                  Label        `json:"risk_label" dynamodbav:"risk_label"`
	ConfidencePercent          int          `json:"confidence_percent" dynamodbav:"confidence_percent"`
	Reasons                    []string     `json:"reasons" dynamodbav:"reasons"`
	ReasoningFactors           []string     `json:"reasoning_factors" dynamodbav:"reasoning_factors"`
	EstimatedSavings           float64      `json:"estimated_savings" dynamodbav:"estimated_savings"`
	PreventionChance           int          `json:"prevention_chance" dynamodbav:"prevention_chance"`
	PotentialLossWithoutAction float64      `json:"potential_loss_without_action" dynamodbav:"potential_loss_without_action"`
	RecommendedAction          Action       `json:"recommended_action" dynamodbav:"recommended_action"`
	ActionDescription          string       `json:"action_description" dynamodbav:"action_description"`
	ROIBreakdown               ROIBreakdown `json:"roi_breakdown" dynamodbav:"roi_breakdown"`
	ComparisonInsight          string       `json:"comparison_insight" dynamodbav:"comparison_insight"`
}

// MessageMetadata travels with a GeneratedMessage.
type MessageMetadata struct {
	RiskContext Label     `json:"risk_context" dynamodbav:"risk_context"`
	Timestamp   time.Time `json:"timestamp" dynamodbav:"timestamp"`
}

// GeneratedMessage is the customer-facing message for MEDIUM and HIGH risk
// orders. Sent is false until a dispatcher delivers it.
type GeneratedMessage struct {
	Sent     bool            `json:"sent" dynamodbav:"sent"`
	Content  string          `json:"content" dynamodbav:"content"`
	Channel  string          `json:"channel" dynamodbav:"channel"`
	Metadata MessageMetadata `json:"metadata" dynamodbav:"metadata"`
}
