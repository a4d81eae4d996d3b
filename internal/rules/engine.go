package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	id "riskgate/pkg/domain"
)

// Engine evaluates tenant-authored rules against a decision context. Every
// evaluation is stateless and terminal in one pass: a rule triggers, does not
// trigger, faults, or times out, and faults never escape as Go errors.
type Engine struct {
	timeout time.Duration
	logger  *slog.Logger

	// evalStarted is a test seam; when set it runs inside the evaluation
	// goroutine before the condition is interpreted.
	evalStarted func()
}

type EngineOption func(*Engine)

func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one rule. The evaluation races the engine timeout; a timed
// out evaluation is abandoned and reported as not triggered with an error
// marker, and its eventual result is discarded.
func (e *Engine) Evaluate(ctx context.Context, rule Rule, ec *Context) EvaluationResult {
	start := time.Now()
	result := EvaluationResult{RuleID: rule.ID}

	done := make(chan evalOutcome, 1)
	go func() {
		if e.evalStarted != nil {
			e.evalStarted()
		}
		done <- e.run(rule, ec)
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case outcome := <-done:
		result.Triggered = outcome.triggered
		result.Error = outcome.errText
		if outcome.triggered {
			result.Reason = rule.Name
		}
	case <-timer.C:
		result.Error = "Rule evaluation timeout"
		if e.logger != nil {
			e.logger.WarnContext(ctx, "rule evaluation timed out",
				"rule_id", rule.ID, "timeout", e.timeout)
		}
	case <-ctx.Done():
		result.Error = ctx.Err().Error()
	}

	result.EvaluationTimeMS = time.Since(start).Milliseconds()
	if result.Error != "" {
		result.Confidence = 0
	} else {
		result.Confidence = confidence(result.Triggered, ec)
	}
	return result
}

// EvaluateAll runs every enabled rule in priority order (highest first).
func (e *Engine) EvaluateAll(ctx context.Context, ruleset []Rule, ec *Context) []EvaluationResult {
	ordered := make([]Rule, 0, len(ruleset))
	for _, r := range ruleset {
		if r.Enabled {
			ordered = append(ordered, r)
		}
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Priority > ordered[j-1].Priority; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	results := make([]EvaluationResult, 0, len(ordered))
	for _, rule := range ordered {
		results = append(results, e.Evaluate(ctx, rule, ec))
	}
	return results
}

type evalOutcome struct {
	triggered bool
	errText   string
}

// run performs the normalize-parse-evaluate pass. Any fault, including a
// panic from a malformed tree, is converted to a quiet non-trigger.
func (e *Engine) run(rule Rule, ec *Context) (outcome evalOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = evalOutcome{errText: fmt.Sprintf("rule evaluation panic: %v", r)}
		}
	}()

	root, err := parse(Normalize(rule.Condition))
	if err != nil {
		return evalOutcome{errText: err.Error()}
	}

	value, err := newEvaluator(ec.bindings).eval(root)
	if err != nil {
		return evalOutcome{errText: err.Error()}
	}
	triggered, ok := value.(bool)
	if !ok {
		return evalOutcome{errText: fmt.Sprintf("condition yields %T, not boolean", value)}
	}
	return evalOutcome{triggered: triggered}
}

// confidence scores how much weight the triggered/not-triggered verdict
// deserves, given how complete and how risky the underlying validations are.
func confidence(triggered bool, ec *Context) float64 {
	c := 0.3
	if triggered {
		c = 0.7
	}

	var riskSum, riskCount float64
	for field, result := range ec.results {
		if !present(result) {
			continue
		}
		riskSum += float64(result.RiskScore)
		riskCount++
		switch field {
		case id.FieldEmail, id.FieldPhone, id.FieldAddress:
			if result.Valid {
				c += 0.1
			}
		}
	}

	if riskCount > 0 {
		mean := riskSum / riskCount
		switch {
		case mean > 70:
			c -= 0.15
		case mean > 50:
			c -= 0.10
		case mean < 10:
			c += 0.20
		case mean < 30:
			c += 0.10
		}
	}

	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
