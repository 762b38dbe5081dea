package risk

import "github.com/shopspring/decimal"

// Default return cost components used when the order carries no
// avg_return_cost.
const (
	HandlingCost = 15.0
	ShippingCost = 10.0
)

// ROIEstimate is the financial justification for a recommended action.
type ROIEstimate struct {
	PreventionChance int
	RefundLoss       float64
	PotentialLoss    float64
	EstimatedSavings float64
	Breakdown        ROIBreakdown
}

// PreventionChance is the assumed probability (percent) that acting on a
// label avoids the return.
func PreventionChance(l Label) int {
	switch l {
	case LabelHigh:
		return 80
	case LabelMedium:
		return 50
	default:
		return 10
	}
}

// refundShare is the fraction of the price lost if the return happens:
// everything for HIGH, markdown for MEDIUM, a small depreciation otherwise.
func refundShare(l Label) decimal.Decimal {
	switch l {
	case LabelHigh:
		return decimal.NewFromInt(1)
	case LabelMedium:
		return decimal.RequireFromString("0.20")
	default:
		return decimal.RequireFromString("0.05")
	}
}

// EstimateROI derives loss and savings figures for an order with label l.
func EstimateROI(l Label, o Order) ROIEstimate {
	chance := PreventionChance(l)

	returnCost := decimal.NewFromFloat(HandlingCost + ShippingCost)
	if o.AvgReturnCost > 0 {
		returnCost = decimal.NewFromFloat(o.AvgReturnCost)
	}

	refundLoss := decimal.NewFromFloat(o.Price).Mul(refundShare(l))
	potentialLoss := returnCost.Add(refundLoss)

	savings := decimal.Zero
	if l != LabelModerate {
		savings = potentialLoss.Mul(decimal.NewFromInt(int64(chance))).Div(decimal.NewFromInt(100))
	}
	if savings.IsNegative() {
		savings = decimal.Zero
	}

	return ROIEstimate{
		PreventionChance: chance,
		RefundLoss:       round2(refundLoss),
		PotentialLoss:    round2(potentialLoss),
		EstimatedSavings: round2(savings),
		Breakdown: ROIBreakdown{
			HandlingCost:          round2(returnCost),
			RefundLoss:            round2(refundLoss),
			ShippingCost:          ShippingCost,
			PreventionProbability: chance,
		},
	}
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
