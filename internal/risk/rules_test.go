package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func ruleByName(t *testing.T, name string) Rule {
	t.Helper()
	for _, r := range DefaultRuleSet() {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("rule %q not in default set", name)
	return Rule{}
}

func TestDefaultRuleSet_EachRule(t *testing.T) {
	cases := []struct {
		rule   string
		hit    Signals
		miss   Signals
		reason string
	}{
		{"high_return_rate", Signals{ReturnRate: 51}, Signals{ReturnRate: 50, ReturnCount: 3}, "High customer return rate"},
		{"return_history", Signals{ReturnCount: 2}, Signals{ReturnRate: 20, ReturnCount: 1}, "Previous return history"},
		{"new_account", Signals{AccountAgeDays: 29, Price: 801}, Signals{AccountAgeDays: 30, Price: 5000}, "New account risk"},
		{"cash_on_delivery", Signals{IsCOD: true}, Signals{}, "COD payment method"},
		{"high_value", Signals{Price: 5000.01}, Signals{Price: 5000}, "High value item"},
		{"premium_price", Signals{Price: 2001}, Signals{Price: 2000}, ""},
		{"high_risk_category", Signals{CategoryRisk: 61, Category: "Jewelry"}, Signals{CategoryRisk: 60}, "High-risk category: Jewelry"},
		{"product_return_rate", Signals{ProductReturnRate: 31}, Signals{ProductReturnRate: 30}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.rule, func(t *testing.T) {
			r := ruleByName(t, tc.rule)
			assert.True(t, r.Applies(tc.hit))
			assert.False(t, r.Applies(tc.miss))
			if tc.reason == "" {
				assert.Nil(t, r.Reason)
			} else {
				assert.Equal(t, tc.reason, r.Reason(tc.hit))
			}
			assert.NotEmpty(t, r.Factor(tc.hit))
		})
	}
}

func TestRuleSet_GroupTiersAreExclusive(t *testing.T) {
	hits := DefaultRuleSet().Evaluate(Signals{ReturnCount: 6, Price: 9000, CategoryRisk: 30, AccountAgeDays: 100})

	var names []string
	total := 0
	for _, h := range hits {
		names = append(names, h.Rule)
		total += h.Weight
	}
	assert.Equal(t, []string{"high_return_rate", "high_value"}, names)
	assert.Equal(t, 55, total)
}

func TestRuleSet_CustomTable(t *testing.T) {
	rs := RuleSet{
		{Name: "always", Weight: 7, When: func(Signals) bool { return true }, Reason: text("always")},
		{Name: "never", Weight: 100, When: func(Signals) bool { return false }},
		{Name: "nil predicate", Weight: 100},
	}
	hits := rs.Evaluate(Signals{})
	assert.Len(t, hits, 1)
	assert.Equal(t, Hit{Rule: "always", Weight: 7, Reason: "always"}, hits[0])
}

func TestDeriveSignals_ReturnRateFallbackChain(t *testing.T) {
	assert.Equal(t, 12.5, DeriveSignals(Order{ReturnRate: 12.5, PastReturns: 5, PastOrders: intPtr(5)}).ReturnRate)
	assert.Equal(t, 62.5, DeriveSignals(Order{PastReturns: 5, PastOrders: intPtr(8)}).ReturnRate)
	assert.Equal(t, 33.0, DeriveSignals(Order{PastReturns: 1, CustomerReturnHistory: 33}).ReturnRate)
	assert.Equal(t, 33.0, DeriveSignals(Order{PastReturns: 1, PastOrders: intPtr(0), CustomerReturnHistory: 33}).ReturnRate)
	assert.Equal(t, 0.0, DeriveSignals(Order{}).ReturnRate)
}

func TestDeriveSignals_Defaults(t *testing.T) {
	s := DeriveSignals(Order{})
	assert.Equal(t, 30.0, s.CategoryRisk)
	assert.Equal(t, 0, s.ReturnCount)
	assert.False(t, s.IsCOD)

	assert.Equal(t, 70.0, DeriveSignals(Order{ProductCategory: "fashion"}).CategoryRisk)
	assert.Equal(t, 45.0, DeriveSignals(Order{ProductCategory: "Electronics", CategoryRiskScore: 45}).CategoryRisk)
	assert.Equal(t, 3, DeriveSignals(Order{ReturnHistoryCount: intPtr(3)}).ReturnCount)
	assert.True(t, DeriveSignals(Order{PaymentMethod: "cod"}).IsCOD)
}
