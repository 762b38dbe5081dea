package returns

import (
	"strings"

	"github.com/imrishuroy/returnguard/internal/risk"
)

// Condition is the state of the returned product.
type Condition string

const (
	ConditionUnopened     Condition = "UNOPENED"
	ConditionOpenedUnused Condition = "OPENED_UNUSED"
	ConditionUsedDamaged  Condition = "USED_DAMAGED"
)

// ParseCondition maps the values offered by the merchant return portal to a
// Condition. Unknown values are treated as opened but unused.
func ParseCondition(v string) Condition {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "new", "unopened":
		return ConditionUnopened
	case "opened", "used", "opened_unused":
		return ConditionOpenedUnused
	case "damaged", "used_damaged":
		return ConditionUsedDamaged
	default:
		return ConditionOpenedUnused
	}
}

// Recommendation is how a return should be processed.
type Recommendation string

const (
	SuggestExchange Recommendation = "SUGGEST_EXCHANGE"
	FastRefund      Recommendation = "FAST_REFUND"
	ManualReview    Recommendation = "MANUAL_REVIEW"
	// Reject is part of the decision vocabulary; no rule emits it yet.
	Reject Recommendation = "REJECT"
)

// Request is a return filed against a previously analysed order.
type Request struct {
	OrderID      string            `json:"order_id"`
	Condition    Condition         `json:"product_condition"`
	Reason       string            `json:"return_reason"`
	RiskAnalysis risk.RiskAnalysis `json:"risk_analysis"`
}

// Decision is the recommendation for one return request.
type Decision struct {
	Recommendation Recommendation `json:"recommendation" dynamodbav:"recommendation"`
	Reasoning      string         `json:"reasoning" dynamodbav:"reasoning"`
	AutoApproved   bool           `json:"auto_approved" dynamodbav:"auto_approved"`
}

// exchangeReasons are functional problems an exchange can solve.
var exchangeReasons = map[string]bool{
	"defective":    true,
	"wrong_size":   true,
	"better_price": true,
}

type rule struct {
	name     string
	matches  func(Request) bool
	decision Decision
}

// table is evaluated top to bottom; the first match wins.
var table = []rule{
	{
		name:    "high_risk_history",
		matches: func(r Request) bool { return r.RiskAnalysis.RiskLabel == risk.LabelHigh },
		decision: Decision{
			Recommendation: ManualReview,
			Reasoning:      "High risk order history detected during return request.",
		},
	},
	{
		name:    "exchangeable_reason",
		matches: func(r Request) bool { return exchangeReasons[strings.ToLower(strings.TrimSpace(r.Reason))] },
		decision: Decision{
			Recommendation: SuggestExchange,
			Reasoning:      "Customer issue can be solved with exchange.",
			AutoApproved:   true,
		},
	},
	{
		name: "unopened_low_risk",
		matches: func(r Request) bool {
			return r.Condition == ConditionUnopened && r.RiskAnalysis.RiskLabel == risk.LabelModerate
		},
		decision: Decision{
			Recommendation: FastRefund,
			Reasoning:      "Moderate risk customer returning unopened item.",
			AutoApproved:   true,
		},
	},
}

var fallback = Decision{
	Recommendation: ManualReview,
	Reasoning:      "Standard return requiring merchant oversight.",
}

// Decide evaluates a return request. It is a single-shot evaluation with no
// state carried between calls.
func Decide(r Request) Decision {
	d, _ := Explain(r)
	return d
}

// Explain returns the decision and the name of the rule that produced it,
// "default" for the fallback.
func Explain(r Request) (Decision, string) {
	for _, rl := range table {
		if rl.matches(r) {
			return rl.decision, rl.name
		}
	}
	return fallback, "default"
}
