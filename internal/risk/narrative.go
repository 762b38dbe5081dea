package risk

import (
	"fmt"
	"time"
)

// DefaultChannel is the channel stamped on generated customer messages.
const DefaultChannel = "WhatsApp"

// Narrative is the explanatory text attached to an analysis.
type Narrative struct {
	ReasoningFactors  []string
	ComparisonInsight string
	CustomerMessage   *GeneratedMessage
}

// Narrator turns an analysis into merchant and customer facing text.
type Narrator struct {
	channel string
	nowFunc func() time.Time
}

// NewNarrator returns a Narrator for the given messaging channel. An empty
// channel falls back to DefaultChannel.
func NewNarrator(channel string) *Narrator {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Narrator{channel: channel, nowFunc: time.Now}
}

// Narrate builds the reasoning factors, comparison insight and optional
// customer message for an order. factors are the engine's raw factor
// sentences used when no history narrative can be built.
func (n *Narrator) Narrate(o Order, a RiskAnalysis, factors []string) Narrative {
	reasoning := HistoryFactors(o)
	if len(reasoning) == 0 {
		reasoning = append([]string(nil), factors...)
	}
	return Narrative{
		ReasoningFactors:  reasoning,
		ComparisonInsight: ComparisonInsight(a.RiskLabel, o.HasCustomerHistory()),
		CustomerMessage:   n.CustomerMessage(o, a.RiskLabel),
	}
}

// HistoryFactors returns narrative sentences built from customer history.
// It returns nil when the order carries no history.
func HistoryFactors(o Order) []string {
	if !o.HasCustomerHistory() {
		return nil
	}
	var out []string

	returns := DeriveSignals(o).ReturnCount
	if returns > 0 {
		total := returns + 2
		if o.PastOrders != nil && *o.PastOrders > 0 {
			total = *o.PastOrders
		}
		out = append(out, fmt.Sprintf("Customer returned %d of their last %d orders.", returns, total))
	}

	avg := o.CustomerAvgOrderValue
	if avg > 0 && o.Price > avg*1.5 {
		out = append(out, fmt.Sprintf("This order is %.1fx higher than their average spend.", o.Price/avg))
	}
	return out
}

// ComparisonInsight picks the one-line comparison shown next to a decision.
func ComparisonInsight(l Label, hasHistory bool) string {
	switch {
	case l == LabelHigh && hasHistory:
		return "This decision would be different for a customer with good history, even for this same product."
	case l == LabelHigh:
		return "High-value items in this category trigger stronger protection for new accounts."
	case l == LabelMedium:
		return "A slight nudge here can prevent a return without friction."
	default:
		return "ReturnGuard intervenes only when the expected savings justify the action."
	}
}

// CustomerMessage returns the message to send for an order, or nil when the
// label is below the communication threshold.
func (n *Narrator) CustomerMessage(o Order, l Label) *GeneratedMessage {
	name := o.CustomerName
	if name == "" {
		name = "Customer"
	}

	var content string
	switch l {
	case LabelHigh:
		content = fmt.Sprintf("Hello %s, thanks for your order #%s! We want to ensure everything is perfect. "+
			"Please open the package in front of the delivery person. If you need an exchange, we are here to help!", name, o.OrderID)
	case LabelMedium:
		content = fmt.Sprintf("Hi %s, your order #%s is confirmed! We have double-checked the items. "+
			"If you have any questions, feel free to reply here.", name, o.OrderID)
	default:
		return nil
	}

	return &GeneratedMessage{
		Content: content,
		Channel: n.channel,
		Metadata: MessageMetadata{
			RiskContext: l,
			Timestamp:   n.nowFunc().UTC(),
		},
	}
}
