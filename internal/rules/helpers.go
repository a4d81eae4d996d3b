package rules

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	id "riskgate/pkg/domain"
)

// Injected helper functions. All pure: no I/O, no clock access except
// daysSince, which reads wall time but cannot set it.

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	digitsPattern = regexp.MustCompile(`^\+?\d{8,15}$`)

	postalPatterns = map[string]*regexp.Regexp{
		"US": regexp.MustCompile(`^\d{5}(-?\d{4})?$`),
		"IN": regexp.MustCompile(`^\d{6}$`),
		"GB": regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}$`),
		"DE": regexp.MustCompile(`^\d{5}$`),
	}
)

func helpers() map[string]helperFunc {
	return map[string]helperFunc{
		"exists": func(args []any) (any, error) {
			if err := arity("exists", args, 1); err != nil {
				return nil, err
			}
			return args[0] != nil, nil
		},
		"isEmpty": func(args []any) (any, error) {
			if err := arity("isEmpty", args, 1); err != nil {
				return nil, err
			}
			switch v := args[0].(type) {
			case nil:
				return true, nil
			case string:
				return strings.TrimSpace(v) == "", nil
			case []any:
				return len(v) == 0, nil
			case map[string]any:
				return len(v) == 0, nil
			default:
				return false, nil
			}
		},
		"isEmail": func(args []any) (any, error) {
			s, err := stringArg("isEmail", args, 0, 1)
			if err != nil {
				return nil, err
			}
			return emailPattern.MatchString(s), nil
		},
		"isPhone": func(args []any) (any, error) {
			s, err := stringArg("isPhone", args, 0, 1)
			if err != nil {
				return nil, err
			}
			return digitsPattern.MatchString(strings.Map(keepPhoneRune, s)), nil
		},
		"isPostalCode": func(args []any) (any, error) {
			value, err := stringArg("isPostalCode", args, 0, 2)
			if err != nil {
				return nil, err
			}
			country, err := stringArg("isPostalCode", args, 1, 2)
			if err != nil {
				return nil, err
			}
			pattern, ok := postalPatterns[strings.ToUpper(country)]
			if !ok {
				// Unknown country: any non-empty code passes.
				return strings.TrimSpace(value) != "", nil
			}
			return pattern.MatchString(strings.ToUpper(strings.TrimSpace(value))), nil
		},
		"between": func(args []any) (any, error) {
			if err := arity("between", args, 3); err != nil {
				return nil, err
			}
			v, vok := toNumber(args[0])
			lo, lok := toNumber(args[1])
			hi, hok := toNumber(args[2])
			if !vok || !lok || !hok {
				return nil, fmt.Errorf("between needs numbers")
			}
			return v >= lo && v <= hi, nil
		},
		"inList": func(args []any) (any, error) {
			if len(args) < 2 {
				return nil, fmt.Errorf("inList needs a value and candidates")
			}
			candidates := args[1:]
			if list, ok := args[1].([]any); ok && len(args) == 2 {
				candidates = list
			}
			for _, c := range candidates {
				if equal(args[0], c) {
					return true, nil
				}
			}
			return false, nil
		},
		"matches": func(args []any) (any, error) {
			if err := arity("matches", args, 2); err != nil {
				return nil, err
			}
			return matchPattern(args[0], args[1])
		},
		"daysSince": func(args []any) (any, error) {
			s, err := stringArg("daysSince", args, 0, 1)
			if err != nil {
				return nil, err
			}
			t, err := parseDate(s)
			if err != nil {
				return nil, err
			}
			return float64(int(time.Since(t).Hours() / 24)), nil
		},
		"emailFormatInvalid": func(args []any) (any, error) {
			s, err := stringArg("emailFormatInvalid", args, 0, 1)
			if err != nil {
				return nil, err
			}
			return !emailPattern.MatchString(s), nil
		},
		"emailHasFormatIssue": func(args []any) (any, error) {
			s, err := stringArg("emailHasFormatIssue", args, 0, 1)
			if err != nil {
				return nil, err
			}
			return emailHasFormatIssue(s), nil
		},
		"addressHasIssue": func(args []any) (any, error) {
			if err := arity("addressHasIssue", args, 1); err != nil {
				return nil, err
			}
			m, ok := args[0].(map[string]any)
			if !ok {
				return args[0] == nil, nil
			}
			if valid, ok := m["valid"].(bool); ok && !valid {
				return true, nil
			}
			if codes, ok := m["reason_codes"].([]any); ok && len(codes) > 0 {
				return true, nil
			}
			return false, nil
		},
		"riskLevel": func(args []any) (any, error) {
			if err := arity("riskLevel", args, 1); err != nil {
				return nil, err
			}
			score, ok := toNumber(args[0])
			if !ok {
				return nil, fmt.Errorf("riskLevel needs a number")
			}
			return string(id.LevelForScore(int(score))), nil
		},
	}
}

// emailHasFormatIssue flags structurally suspicious but parseable addresses:
// doubled dots, dot next to the @, or a one-character local part.
func emailHasFormatIssue(s string) bool {
	at := strings.Index(s, "@")
	if at < 0 {
		return true
	}
	local := s[:at]
	if len(local) <= 1 {
		return true
	}
	if strings.Contains(s, "..") {
		return true
	}
	if strings.HasSuffix(local, ".") || strings.HasPrefix(local, ".") {
		return true
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func keepPhoneRune(r rune) rune {
	if r == ' ' || r == '-' || r == '(' || r == ')' {
		return -1
	}
	return r
}

func arity(name string, args []any, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s takes %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

func stringArg(name string, args []any, idx, want int) (string, error) {
	if err := arity(name, args, want); err != nil {
		return "", err
	}
	s, ok := args[idx].(string)
	if !ok {
		return "", fmt.Errorf("%s argument %d must be a string, got %T", name, idx+1, args[idx])
	}
	return s, nil
}
