package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_HighRiskScenario(t *testing.T) {
	an := NewAnalyzer(nil, fixedNarrator(), nil)
	o := highRiskOrder()
	o.CustomerName = "Rahim"

	res := an.Analyze(o, StyleFactors)
	a := res.Analysis

	assert.Equal(t, 90, a.RiskScore)
	assert.Equal(t, LabelHigh, a.RiskLabel)
	assert.Equal(t, ActionConfirmation, a.RecommendedAction)
	assert.Equal(t, "AI verification required", a.ActionDescription)
	assert.Equal(t, 6000.0, a.ROIBreakdown.RefundLoss)
	assert.Equal(t, 6025.0, a.PotentialLossWithoutAction)
	assert.Equal(t, 4820.0, a.EstimatedSavings)
	assert.Equal(t, 80, a.PreventionChance)
	assert.Equal(t, []string{"Customer returned 5 of their last 8 orders."}, a.ReasoningFactors)
	assert.Equal(t, ComparisonInsight(LabelHigh, true), a.ComparisonInsight)
	require.NotNil(t, res.Message)
	assert.Contains(t, res.Message.Content, "Rahim")
	assert.Len(t, res.Hits, 4)
}

func TestAnalyze_LowRiskScenario(t *testing.T) {
	an := NewAnalyzer(nil, fixedNarrator(), nil)

	res := an.Analyze(Order{OrderID: "1002", Price: 100, ProductCategory: "Books"}, StyleFactors)
	a := res.Analysis

	assert.Equal(t, 0, a.RiskScore)
	assert.Equal(t, LabelModerate, a.RiskLabel)
	assert.Zero(t, a.EstimatedSavings)
	assert.Equal(t, ActionNone, a.RecommendedAction)
	assert.Empty(t, a.ReasoningFactors)
	assert.Nil(t, res.Message)
}

func TestAnalyze_ComposedStyle(t *testing.T) {
	an := NewAnalyzer(nil, fixedNarrator(), NewComposer(&scriptedSource{vals: []int{1, 4}}))

	res := an.Analyze(highRiskOrder(), StyleComposed)
	require.Len(t, res.Analysis.ReasoningFactors, 1)
	assert.Contains(t, res.Analysis.ReasoningFactors[0], "Risk assessment reveals that a recurring pattern of 5 previous returns")
}
