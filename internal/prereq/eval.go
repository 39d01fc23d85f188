package prereq

import (
	"fmt"

	"github.com/yigit/enrollplan/internal/app/models"
)

// Outcome is the three-valued result of an eligibility check.
type Outcome string

const (
	Satisfied   Outcome = "satisfied"
	Unsatisfied Outcome = "unsatisfied"
	Unknown     Outcome = "unknown" // depends on requirement text that could not be parsed
)

// Eligibility is the result of Evaluate.
type Eligibility struct {
	Outcome Outcome  `json:"outcome"`
	Missing []string `json:"missing,omitempty"`
}

// Evaluate checks an expression against the set of completed course codes.
// A nil expression is satisfied. Raw leaves evaluate to Unknown; a group
// that is decided regardless of them keeps its decided outcome. Missing lists
// the codes whose completion would help, in expression order.
func Evaluate(expr *models.PrereqExpr, completed map[string]bool) (Eligibility, error) {
	if expr == nil {
		return Eligibility{Outcome: Satisfied}, nil
	}
	out, missing, err := evaluate(expr, completed)
	if err != nil {
		return Eligibility{}, err
	}
	if out == Satisfied {
		missing = nil
	}
	return Eligibility{Outcome: out, Missing: dedupe(missing)}, nil
}

func evaluate(e *models.PrereqExpr, completed map[string]bool) (Outcome, []string, error) {
	switch e.Kind {
	case models.ExprCourse:
		code := models.NormalizeCourseCode(e.Code)
		if completed[code] {
			return Satisfied, nil, nil
		}
		return Unsatisfied, []string{code}, nil
	case models.ExprRaw:
		return Unknown, nil, nil
	case models.ExprAll:
		result := Satisfied
		var missing []string
		for _, t := range e.Terms {
			out, m, err := evaluate(t, completed)
			if err != nil {
				return "", nil, err
			}
			switch out {
			case Unsatisfied:
				result = Unsatisfied
				missing = append(missing, m...)
			case Unknown:
				if result == Satisfied {
					result = Unknown
				}
			}
		}
		return result, missing, nil
	case models.ExprAny, models.ExprEither:
		result := Unsatisfied
		var missing []string
		for _, t := range e.Terms {
			out, m, err := evaluate(t, completed)
			if err != nil {
				return "", nil, err
			}
			switch out {
			case Satisfied:
				return Satisfied, nil, nil
			case Unknown:
				result = Unknown
			}
			missing = append(missing, m...)
		}
		return result, missing, nil
	default:
		return "", nil, fmt.Errorf("%w: %q", models.ErrUnknownExprKind, e.Kind)
	}
}

func dedupe(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(codes))
	out := codes[:0]
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
