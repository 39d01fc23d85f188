package prereq

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/validation"
)

var codePrefix = regexp.MustCompile(`^` + validation.CourseCodePattern + `\b`)

var errSyntax = errors.New("prerequisite syntax error")

type tokenKind int

const (
	tokCode tokenKind = iota
	tokAnd
	tokOr
	tokEither
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
}

// Parse turns catalog requirement text into an expression.
//
// Accepted forms are course codes joined by "and", "or", commas and
// semicolons (both read as "and"), parentheses, and "either X or Y". "and"
// binds tighter than "or". Empty text or "none" yields nil. Text outside this
// grammar is kept as a single raw leaf.
func Parse(text string) *models.PrereqExpr {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.EqualFold(strings.Trim(trimmed, "."), "none") {
		return nil
	}
	toks, err := lex(trimmed)
	if err != nil {
		return models.RawRequirement(trimmed)
	}
	p := &parser{toks: toks}
	expr, err := p.parseOr()
	if err != nil || p.pos != len(p.toks) {
		return models.RawRequirement(trimmed)
	}
	return expr
}

func lex(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		r := rune(s[i])
		switch {
		case unicode.IsSpace(r) || r == '.':
			i++
		case r == '(':
			toks = append(toks, token{kind: tokOpen})
			i++
		case r == ')':
			toks = append(toks, token{kind: tokClose})
			i++
		case r == ',' || r == ';' || r == '&':
			toks = append(toks, token{kind: tokAnd})
			i++
		default:
			if m := codePrefix.FindString(s[i:]); m != "" {
				toks = append(toks, token{kind: tokCode, text: models.NormalizeCourseCode(m)})
				i += len(m)
				continue
			}
			j := i
			for j < len(s) && unicode.IsLetter(rune(s[j])) {
				j++
			}
			word := strings.ToLower(s[i:j])
			switch word {
			case "and":
				toks = append(toks, token{kind: tokAnd})
			case "or":
				toks = append(toks, token{kind: tokOr})
			case "either":
				toks = append(toks, token{kind: tokEither})
			default:
				return nil, fmt.Errorf("%w: unexpected %q at %d", errSyntax, s[i:max(j, i+1)], i)
			}
			i = j
		}
	}
	if len(toks) == 0 {
		return nil, errSyntax
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) accept(kind tokenKind) bool {
	if t, ok := p.peek(); ok && t.kind == kind {
		p.pos++
		return true
	}
	return false
}

func (p *parser) parseOr() (*models.PrereqExpr, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	terms := []*models.PrereqExpr{first}
	for p.accept(tokOr) {
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	return group(models.ExprAny, terms), nil
}

func (p *parser) parseAnd() (*models.PrereqExpr, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []*models.PrereqExpr{first}
	for p.accept(tokAnd) {
		// "CS101, and CS102"
		p.accept(tokAnd)
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, next)
	}
	return group(models.ExprAll, terms), nil
}

func (p *parser) parseTerm() (*models.PrereqExpr, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of text", errSyntax)
	}
	switch t.kind {
	case tokCode:
		p.pos++
		return models.CourseRef(t.text), nil
	case tokOpen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokClose) {
			return nil, fmt.Errorf("%w: missing closing parenthesis", errSyntax)
		}
		return inner, nil
	case tokEither:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if inner.Kind != models.ExprAny {
			return nil, fmt.Errorf("%w: either without alternatives", errSyntax)
		}
		inner.Kind = models.ExprEither
		return inner, nil
	default:
		return nil, fmt.Errorf("%w: unexpected token at %d", errSyntax, p.pos)
	}
}

// group builds a group of kind, flattening nested groups of the same kind.
// A single term is returned as is.
func group(kind models.ExprKind, terms []*models.PrereqExpr) *models.PrereqExpr {
	if len(terms) == 1 {
		return terms[0]
	}
	flat := make([]*models.PrereqExpr, 0, len(terms))
	for _, t := range terms {
		if t.Kind == kind {
			flat = append(flat, t.Terms...)
			continue
		}
		flat = append(flat, t)
	}
	return &models.PrereqExpr{Kind: kind, Terms: flat}
}

// Format renders an expression back into requirement text that Parse accepts.
func Format(e *models.PrereqExpr) string {
	if e == nil {
		return ""
	}
	return format(e, false)
}

func format(e *models.PrereqExpr, nested bool) string {
	switch e.Kind {
	case models.ExprCourse:
		return e.Code
	case models.ExprRaw:
		return e.Text
	case models.ExprAll, models.ExprAny, models.ExprEither:
		sep := " and "
		if e.Kind != models.ExprAll {
			sep = " or "
		}
		parts := make([]string, len(e.Terms))
		for i, t := range e.Terms {
			parts[i] = format(t, true)
		}
		s := strings.Join(parts, sep)
		if e.Kind == models.ExprEither {
			s = "either " + s
		}
		if nested {
			s = "(" + s + ")"
		}
		return s
	default:
		return ""
	}
}
