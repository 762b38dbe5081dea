package risk

// Assessment is the scoring portion of a RiskAnalysis.
type Assessment struct {
	Score      int
	Label      Label
	Confidence int
	Reasons    []string
	Factors    []string
	Hits       []Hit
}

// Engine computes risk scores from a rule table. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	rules             RuleSet
	historyConfidence bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRules replaces the default scoring table.
func WithRules(rs RuleSet) EngineOption {
	return func(e *Engine) { e.rules = rs }
}

// WithHistoryConfidence toggles the history-based confidence override. When
// enabled (the default) confidence is 90 with customer history and 70
// without, regardless of label.
func WithHistoryConfidence(enabled bool) EngineOption {
	return func(e *Engine) { e.historyConfidence = enabled }
}

// NewEngine returns an Engine using DefaultRuleSet.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		rules:             DefaultRuleSet(),
		historyConfidence: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score evaluates an order. It never fails: absent fields default to zero
// or to the baseline category risk.
func (e *Engine) Score(o Order) Assessment {
	hits := e.rules.Evaluate(DeriveSignals(o))

	total := 0
	reasons := make([]string, 0, len(hits))
	factors := make([]string, 0, len(hits))
	for _, h := range hits {
		total += h.Weight
		if h.Reason != "" {
			reasons = append(reasons, h.Reason)
		}
		if h.Factor != "" {
			factors = append(factors, h.Factor)
		}
	}
	score := clampScore(total)
	label := LabelForScore(score)

	confidence := label.DefaultConfidence()
	if e.historyConfidence {
		confidence = historyConfidence(o)
	}

	return Assessment{
		Score:      score,
		Label:      label,
		Confidence: confidence,
		Reasons:    reasons,
		Factors:    factors,
		Hits:       hits,
	}
}

func historyConfidence(o Order) int {
	if o.HasCustomerHistory() {
		return 90
	}
	return 70
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
