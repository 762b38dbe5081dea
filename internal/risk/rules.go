package risk

import (
	"fmt"
	"math"
	"strings"
)

// Signals is the normalised view of an Order that rules evaluate. Every
// fallback and default is resolved here so predicates stay one-liners.
type Signals struct {
	Category          string
	Price             float64
	ReturnRate        float64
	ReturnCount       int
	AccountAgeDays    int
	IsCOD             bool
	CategoryRisk      float64
	ProductReturnRate float64
}

var highRiskCategories = []string{"Electronics", "Fashion", "Jewelry"}

const (
	highRiskCategoryScore = 70
	baselineCategoryScore = 30
)

// DeriveSignals resolves the fallback chains for an order.
func DeriveSignals(o Order) Signals {
	returnCount := o.PastReturns
	if returnCount == 0 && o.ReturnHistoryCount != nil {
		returnCount = *o.ReturnHistoryCount
	}

	return Signals{
		Category:          o.ProductCategory,
		Price:             o.Price,
		ReturnRate:        returnRate(o),
		ReturnCount:       returnCount,
		AccountAgeDays:    o.AccountAgeDays,
		IsCOD:             o.IsCOD || strings.EqualFold(o.PaymentMethod, "COD"),
		CategoryRisk:      categoryRisk(o),
		ProductReturnRate: o.ProductReturnRate,
	}
}

// returnRate: explicit rate, then past_returns/past_orders, then the legacy
// customer_return_history field. A zero at any step falls through.
func returnRate(o Order) float64 {
	if o.ReturnRate > 0 {
		return o.ReturnRate
	}
	if o.PastReturns > 0 && o.PastOrders != nil && *o.PastOrders > 0 {
		return float64(o.PastReturns) / float64(*o.PastOrders) * 100
	}
	if o.CustomerReturnHistory > 0 {
		return o.CustomerReturnHistory
	}
	return 0
}

func categoryRisk(o Order) float64 {
	if o.CategoryRiskScore > 0 {
		return o.CategoryRiskScore
	}
	for _, c := range highRiskCategories {
		if strings.EqualFold(c, o.ProductCategory) {
			return highRiskCategoryScore
		}
	}
	return baselineCategoryScore
}

// Rule is one weighted factor of the scoring table.
type Rule struct {
	Name   string
	Group  string // rules in the same non-empty group are exclusive tiers
	Weight int
	When   func(Signals) bool
	// Reason returns the short code recorded in RiskAnalysis.Reasons. Nil
	// means the rule contributes weight and a factor but no reason.
	Reason func(Signals) string
	Factor func(Signals) string
}

// Applies reports whether the rule fires for s.
func (r Rule) Applies(s Signals) bool {
	return r.When != nil && r.When(s)
}

// Hit is a rule that fired during evaluation.
type Hit struct {
	Rule   string
	Weight int
	Reason string
	Factor string
}

// RuleSet is an ordered scoring table.
type RuleSet []Rule

// Evaluate runs the table in order and returns the hits. Within a group
// only the first matching rule is applied.
func (rs RuleSet) Evaluate(s Signals) []Hit {
	taken := make(map[string]bool)
	hits := make([]Hit, 0, len(rs))
	for _, r := range rs {
		if r.Group != "" && taken[r.Group] {
			continue
		}
		if !r.Applies(s) {
			continue
		}
		if r.Group != "" {
			taken[r.Group] = true
		}
		h := Hit{Rule: r.Name, Weight: r.Weight}
		if r.Reason != nil {
			h.Reason = r.Reason(s)
		}
		if r.Factor != nil {
			h.Factor = r.Factor(s)
		}
		hits = append(hits, h)
	}
	return hits
}

func text(s string) func(Signals) string {
	return func(Signals) string { return s }
}

// DefaultRuleSet returns the canonical scoring table.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		{
			Name:   "high_return_rate",
			Group:  "returns",
			Weight: 40,
			When:   func(s Signals) bool { return s.ReturnRate > 50 || s.ReturnCount >= 4 },
			Reason: text("High customer return rate"),
			Factor: func(s Signals) string {
				return fmt.Sprintf("Frequent returner (%d past returns, %d%% rate)", s.ReturnCount, int(math.Round(s.ReturnRate)))
			},
		},
		{
			Name:   "return_history",
			Group:  "returns",
			Weight: 20,
			When:   func(s Signals) bool { return s.ReturnRate > 20 || s.ReturnCount >= 2 },
			Reason: text("Previous return history"),
			Factor: func(s Signals) string {
				return fmt.Sprintf("Previous return history (%d returns)", s.ReturnCount)
			},
		},
		{
			Name:   "new_account",
			Weight: 10,
			When:   func(s Signals) bool { return s.AccountAgeDays < 30 && s.Price > 800 },
			Reason: text("New account risk"),
			Factor: text("New customer with expensive item"),
		},
		{
			Name:   "cash_on_delivery",
			Weight: 20,
			When:   func(s Signals) bool { return s.IsCOD },
			Reason: text("COD payment method"),
			Factor: text("Cash on Delivery (higher refusal risk)"),
		},
		{
			Name:   "high_value",
			Group:  "price",
			Weight: 15,
			When:   func(s Signals) bool { return s.Price > 5000 },
			Reason: text("High value item"),
			Factor: func(s Signals) string { return fmt.Sprintf("High value item ($%s)", formatAmount(s.Price)) },
		},
		{
			Name:   "premium_price",
			Group:  "price",
			Weight: 8,
			When:   func(s Signals) bool { return s.Price > 2000 },
			Factor: func(s Signals) string { return fmt.Sprintf("Premium price tier ($%s)", formatAmount(s.Price)) },
		},
		{
			Name:   "high_risk_category",
			Weight: 15,
			When:   func(s Signals) bool { return s.CategoryRisk > 60 },
			Reason: func(s Signals) string { return "High-risk category: " + s.Category },
			Factor: func(s Signals) string { return "High-risk category: " + s.Category },
		},
		{
			Name:   "product_return_rate",
			Weight: 10,
			When:   func(s Signals) bool { return s.ProductReturnRate > 30 },
			Factor: func(s Signals) string {
				return fmt.Sprintf("Product has high return rate (%d%%)", int(math.Round(s.ProductReturnRate)))
			},
		},
	}
}

// formatAmount prints whole amounts without decimals and everything else
// with two.
func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
