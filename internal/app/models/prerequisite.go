package models

import (
	"errors"
	"fmt"
)

// ExprKind tags the variant held by a PrereqExpr.
type ExprKind string

const (
	ExprCourse ExprKind = "course" // single course code leaf
	ExprAll    ExprKind = "all"    // every term required
	ExprAny    ExprKind = "any"    // at least one term required
	ExprEither ExprKind = "either" // "either X or Y" listing; satisfied like any
	ExprRaw    ExprKind = "raw"    // unparsable requirement text kept verbatim
)

// ErrUnknownExprKind is returned by consumers that meet a kind outside the closed set.
var ErrUnknownExprKind = errors.New("unknown prerequisite expression kind")

// PrereqExpr is a prerequisite requirement tree. It is a closed tagged union:
// exactly the fields belonging to Kind are populated.
type PrereqExpr struct {
	Kind  ExprKind      `json:"kind"`
	Code  string        `json:"code,omitempty"`
	Terms []*PrereqExpr `json:"terms,omitempty"`
	Text  string        `json:"text,omitempty"`
}

// CourseRef builds a course leaf.
func CourseRef(code string) *PrereqExpr {
	return &PrereqExpr{Kind: ExprCourse, Code: NormalizeCourseCode(code)}
}

// AllOf builds an AND group.
func AllOf(terms ...*PrereqExpr) *PrereqExpr {
	return &PrereqExpr{Kind: ExprAll, Terms: terms}
}

// AnyOf builds an OR group.
func AnyOf(terms ...*PrereqExpr) *PrereqExpr {
	return &PrereqExpr{Kind: ExprAny, Terms: terms}
}

// EitherOf builds an either-of group.
func EitherOf(terms ...*PrereqExpr) *PrereqExpr {
	return &PrereqExpr{Kind: ExprEither, Terms: terms}
}

// RawRequirement keeps requirement text that could not be parsed.
func RawRequirement(text string) *PrereqExpr {
	return &PrereqExpr{Kind: ExprRaw, Text: text}
}

// Validate checks the union invariants recursively.
func (e *PrereqExpr) Validate() error {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case ExprCourse:
		if e.Code == "" {
			return errors.New("course term without code")
		}
		if len(e.Terms) > 0 || e.Text != "" {
			return fmt.Errorf("course term %s carries group or raw fields", e.Code)
		}
	case ExprAll, ExprAny, ExprEither:
		if len(e.Terms) == 0 {
			return fmt.Errorf("%s group without terms", e.Kind)
		}
		for _, t := range e.Terms {
			if t == nil {
				return fmt.Errorf("%s group with nil term", e.Kind)
			}
			if err := t.Validate(); err != nil {
				return err
			}
		}
	case ExprRaw:
		if e.Code != "" || len(e.Terms) > 0 {
			return errors.New("raw term carries course or group fields")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExprKind, e.Kind)
	}
	return nil
}

// Codes returns the course codes referenced by the expression, left to right,
// without duplicates.
func (e *PrereqExpr) Codes() []string {
	var codes []string
	seen := make(map[string]bool)
	var walk func(*PrereqExpr)
	walk = func(x *PrereqExpr) {
		if x == nil {
			return
		}
		switch x.Kind {
		case ExprCourse:
			if !seen[x.Code] {
				seen[x.Code] = true
				codes = append(codes, x.Code)
			}
		case ExprAll, ExprAny, ExprEither:
			for _, t := range x.Terms {
				walk(t)
			}
		case ExprRaw:
		}
	}
	walk(e)
	return codes
}
