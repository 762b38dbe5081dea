package risk

// Decision is the preventive action for a label.
type Decision struct {
	Action      Action
	Description string
}

// DecideAction maps a label to its recommended action. It depends on the
// label only.
func DecideAction(l Label) Decision {
	switch l {
	case LabelHigh:
		return Decision{Action: ActionConfirmation, Description: "AI verification required"}
	case LabelMedium:
		return Decision{Action: ActionIncentive, Description: "Suggest prepaid discount"}
	default:
		return Decision{
			Action:      ActionNone,
			Description: "Preventive action not recommended because intervention cost outweighs expected return risk.",
		}
	}
}
