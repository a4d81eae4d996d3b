package domain

import dErrors "riskgate/pkg/domain-errors"

// Action is the final disposition of an order or the outcome a rule requests.
// Invariant: the value must be one of the supported actions.
//
// Usage: construct via ParseAction at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Action string

const (
	ActionApprove Action = "approve"
	ActionHold    Action = "hold"
	ActionBlock   Action = "block"
)

// validActions is the single source of truth for valid actions.
var validActions = map[Action]bool{
	ActionApprove: true,
	ActionHold:    true,
	ActionBlock:   true,
}

// ParseAction constructs an Action from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "action cannot be empty")
	}
	a := Action(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid action")
	}
	return a, nil
}

// IsValid checks if the action is one of the supported enum values.
func (a Action) IsValid() bool {
	return validActions[a]
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}
