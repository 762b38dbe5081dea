package risk

// NarrativeStyle selects how reasoning factors are written.
type NarrativeStyle string

const (
	// StyleFactors lists history sentences or the engine's factors.
	StyleFactors NarrativeStyle = "factors"
	// StyleComposed replaces the factors with one composed paragraph.
	StyleComposed NarrativeStyle = "composed"
)

// Result is the output of one pipeline run.
type Result struct {
	Analysis RiskAnalysis
	Message  *GeneratedMessage
	Hits     []Hit
}

// Analyzer chains scoring, ROI, action policy and narration.
type Analyzer struct {
	engine   *Engine
	narrator *Narrator
	composer *Composer
}

// NewAnalyzer wires the pipeline stages. Nil stages get defaults; the
// default composer draws from entropy.
func NewAnalyzer(engine *Engine, narrator *Narrator, composer *Composer) *Analyzer {
	if engine == nil {
		engine = NewEngine()
	}
	if narrator == nil {
		narrator = NewNarrator("")
	}
	if composer == nil {
		composer = NewComposer(nil)
	}
	return &Analyzer{engine: engine, narrator: narrator, composer: composer}
}

// Analyze runs the full pipeline over one order. It has no side effects.
func (a *Analyzer) Analyze(o Order, style NarrativeStyle) Result {
	assessment := a.engine.Score(o)
	roi := EstimateROI(assessment.Label, o)
	action := DecideAction(assessment.Label)

	analysis := RiskAnalysis{
		RiskScore:                  assessment.Score,
		RiskLabel:                  assessment.Label,
		ConfidencePercent:          assessment.Confidence,
		Reasons:                    assessment.Reasons,
		EstimatedSavings:           roi.EstimatedSavings,
		PreventionChance:           roi.PreventionChance,
		PotentialLossWithoutAction: roi.PotentialLoss,
		RecommendedAction:          action.Action,
		ActionDescription:          action.Description,
		ROIBreakdown:               roi.Breakdown,
	}

	narrative := a.narrator.Narrate(o, analysis, assessment.Factors)
	analysis.ReasoningFactors = narrative.ReasoningFactors
	analysis.ComparisonInsight = narrative.ComparisonInsight
	if style == StyleComposed {
		analysis.ReasoningFactors = []string{a.composer.Compose(o, assessment.Label)}
	}

	return Result{
		Analysis: analysis,
		Message:  narrative.CustomerMessage,
		Hits:     assessment.Hits,
	}
}
