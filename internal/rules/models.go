package rules

import "time"

// DefaultTimeout bounds a single rule evaluation. Conditions are authored by
// tenants; a pathological expression must never stall the pipeline.
const DefaultTimeout = 50 * time.Millisecond

// Rule is a tenant-authored decision rule. Condition holds the raw expression
// as entered, possibly HTML-escaped by the authoring form.
type Rule struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Condition string `json:"condition"`
	Action    string `json:"action"`
	Priority  int    `json:"priority"`
	Enabled   bool   `json:"enabled"`
}

// EvaluationResult is the terminal outcome of one evaluation pass. Faults and
// timeouts surface here as Error with Triggered=false; they never propagate
// as Go errors.
type EvaluationResult struct {
	RuleID           string  `json:"rule_id"`
	Triggered        bool    `json:"triggered"`
	Confidence       float64 `json:"confidence"`
	Reason           string  `json:"reason,omitempty"`
	Error            string  `json:"error,omitempty"`
	EvaluationTimeMS int64   `json:"evaluation_time_ms"`
}
