// Package transcript turns uploaded academic transcripts into reconciled
// course records.
//
// Ingestion runs four stages in order: extraction (document bytes to text),
// line parsing, reconciliation against the catalog and aggregation. Only
// extraction performs I/O.
package transcript

import (
	"bufio"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/validation"
)

// TokenKind tags a lexical token of a transcript line.
type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenCourseCode
	TokenGrade
	TokenCredits
)

func (k TokenKind) String() string {
	switch k {
	case TokenCourseCode:
		return "code"
	case TokenGrade:
		return "grade"
	case TokenCredits:
		return "credits"
	default:
		return "word"
	}
}

// Token is one classified piece of a line.
type Token struct {
	Kind    TokenKind
	Text    string
	Credits decimal.Decimal // TokenCredits only
}

// maxLineCredits bounds what a credit token may assert for one course.
var maxLineCredits = decimal.NewFromInt(12)

var creditPattern = regexp.MustCompile(`^\d{1,2}(\.\d{1,2})?$`)

// Entry is a course line recognised by the grammar.
type Entry struct {
	Raw        string
	CourseCode string
	Grade      string
	Credits    decimal.NullDecimal
}

// Tokenize classifies the tokens of a line. Every course code found in the
// line becomes a single TokenCourseCode even when written with a space.
func Tokenize(line string) []Token {
	var toks []Token
	last := 0
	for _, loc := range validation.CompiledPatterns.CourseCode.FindAllStringIndex(line, -1) {
		toks = append(toks, classifyFields(line[last:loc[0]])...)
		toks = append(toks, Token{Kind: TokenCourseCode, Text: models.NormalizeCourseCode(line[loc[0]:loc[1]])})
		last = loc[1]
	}
	return append(toks, classifyFields(line[last:])...)
}

func classifyFields(s string) []Token {
	var toks []Token
	for _, f := range fields(s) {
		toks = append(toks, classify(f))
	}
	return toks
}

func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '|' || r == ',' || r == ';'
	})
}

func classify(f string) Token {
	if _, ok := LookupGrade(f); ok {
		return Token{Kind: TokenGrade, Text: f}
	}
	if creditPattern.MatchString(f) {
		c, err := decimal.NewFromString(f)
		if err == nil && c.LessThanOrEqual(maxLineCredits) {
			return Token{Kind: TokenCredits, Text: f, Credits: c}
		}
	}
	return Token{Kind: TokenWord, Text: f}
}

// ParseLine applies the line grammar: a course code followed, in any order
// and among other words, by a grade and optionally a credit value.
//
// The grade is the last grade token that follows a code, so titles
// containing "A" do not shadow the grade column. The course is the code
// nearest before that grade, which skips term labels such as "FALL 2023".
// Credits are the first credit token after the grade, or failing that the
// first one between the code and the grade; later numeric columns such as
// quality points are ignored. Lines without a code or a grade are rejected.
func ParseLine(line string) (Entry, bool) {
	toks := Tokenize(line)

	grade := -1
	seenCode := false
	for i, t := range toks {
		switch t.Kind {
		case TokenCourseCode:
			seenCode = true
		case TokenGrade:
			if seenCode {
				grade = i
			}
		}
	}
	if grade < 0 {
		return Entry{}, false
	}
	code := grade - 1
	for toks[code].Kind != TokenCourseCode {
		code--
	}

	e := Entry{
		Raw:        strings.TrimSpace(line),
		CourseCode: toks[code].Text,
		Grade:      toks[grade].Text,
	}
	if c, ok := firstCredits(toks[grade+1:]); ok {
		e.Credits = decimal.NewNullDecimal(c)
	} else if c, ok := firstCredits(toks[code+1 : grade]); ok {
		e.Credits = decimal.NewNullDecimal(c)
	}
	return e, true
}

func firstCredits(toks []Token) (decimal.Decimal, bool) {
	for _, t := range toks {
		if t.Kind == TokenCredits {
			return t.Credits, true
		}
	}
	return decimal.Decimal{}, false
}

// ParseText splits text into lines and returns the entries in document
// order. Lines outside the grammar are discarded.
func ParseText(text string) []Entry {
	var entries []Entry
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if e, ok := ParseLine(sc.Text()); ok {
			entries = append(entries, e)
		}
	}
	return entries
}
