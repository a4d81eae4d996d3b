package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// The evaluator is a restricted interpreter: the only visible bindings are
// the deep-copied context and the injected helper functions. There is no way
// to reach process state, perform I/O, or mutate the caller's data from a
// condition.

type helperFunc func(args []any) (any, error)

type evaluator struct {
	context map[string]any
	helpers map[string]helperFunc
}

func newEvaluator(context map[string]any) *evaluator {
	return &evaluator{
		context: deepCopy(context),
		helpers: helpers(),
	}
}

func (e *evaluator) eval(n node) (any, error) {
	switch n := n.(type) {
	case literalNode:
		return n.value, nil
	case identNode:
		return e.lookup(n.path), nil
	case listNode:
		items := make([]any, 0, len(n.items))
		for _, item := range n.items {
			v, err := e.eval(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case callNode:
		return e.call(n)
	case unaryNode:
		v, err := e.eval(n.operand)
		if err != nil {
			return nil, err
		}
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("! needs a boolean, got %T", v)
		}
		return !b, nil
	case binaryNode:
		return e.evalBinary(n)
	default:
		return nil, fmt.Errorf("unknown node %T", n)
	}
}

// lookup resolves a dotted path against the context. Missing paths resolve to
// nil rather than failing, so IS NULL checks and exists() work on absent data.
func (e *evaluator) lookup(path string) any {
	var current any = e.context
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

func (e *evaluator) call(n callNode) (any, error) {
	fn, ok := e.helpers[n.name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", n.name)
	}
	args := make([]any, 0, len(n.args))
	for _, arg := range n.args {
		v, err := e.eval(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return fn(args)
}

func (e *evaluator) evalBinary(n binaryNode) (any, error) {
	// Short-circuit logic before evaluating the right side.
	if n.op == "&&" || n.op == "||" {
		left, err := e.evalBool(n.left)
		if err != nil {
			return nil, err
		}
		if n.op == "&&" && !left {
			return false, nil
		}
		if n.op == "||" && left {
			return true, nil
		}
		return e.evalBool(n.right)
	}

	left, err := e.eval(n.left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(n.right)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	case "<", "<=", ">", ">=":
		return compareNumbers(n.op, left, right)
	case "in":
		list, ok := right.([]any)
		if !ok {
			return nil, fmt.Errorf("in needs a list, got %T", right)
		}
		for _, item := range list {
			if equal(left, item) {
				return true, nil
			}
		}
		return false, nil
	case "contains":
		return stringOp(n.op, left, right, strings.Contains)
	case "startsWith":
		return stringOp(n.op, left, right, strings.HasPrefix)
	case "endsWith":
		return stringOp(n.op, left, right, strings.HasSuffix)
	case "matches":
		return matchPattern(left, right)
	default:
		return nil, fmt.Errorf("unknown operator %q", n.op)
	}
}

func (e *evaluator) evalBool(n node) (bool, error) {
	v, err := e.eval(n)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
	return b, nil
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, aok := toNumber(a); aok {
		if nb, bok := toNumber(b); bok {
			return na == nb
		}
		return false
	}
	return a == b
}

func compareNumbers(op string, a, b any) (any, error) {
	na, aok := toNumber(a)
	nb, bok := toNumber(b)
	if !aok || !bok {
		return nil, fmt.Errorf("%s needs numbers, got %T and %T", op, a, b)
	}
	switch op {
	case "<":
		return na < nb, nil
	case "<=":
		return na <= nb, nil
	case ">":
		return na > nb, nil
	default:
		return na >= nb, nil
	}
}

func stringOp(op string, a, b any, fn func(string, string) bool) (any, error) {
	sa, aok := a.(string)
	sb, bok := b.(string)
	if !aok || !bok {
		return nil, fmt.Errorf("%s needs strings, got %T and %T", op, a, b)
	}
	return fn(sa, sb), nil
}

func matchPattern(value, pattern any) (any, error) {
	s, sok := value.(string)
	p, pok := pattern.(string)
	if !sok || !pok {
		return nil, fmt.Errorf("matches needs strings, got %T and %T", value, pattern)
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", p, err)
	}
	return re.MatchString(s), nil
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// deepCopy clones the context so a condition can never observe or be affected
// by mutation elsewhere, and vice versa.
func deepCopy(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = copyValue(val)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return deepCopy(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out
	default:
		return v
	}
}
