package transcript

import (
	"strings"

	"github.com/shopspring/decimal"
)

// GradeKind classifies grade symbols.
type GradeKind int

const (
	LetterGrade GradeKind = iota // counts toward GPA
	PassFail                     // credit without grade points
	NonCredit                    // withdrawal, incomplete
)

// Grade describes one grade symbol on the 4.0 scale.
type Grade struct {
	Symbol string
	Kind   GradeKind
	Points decimal.Decimal // LetterGrade only
	Passed bool
}

func letter(symbol string, points string) Grade {
	p := decimal.RequireFromString(points)
	return Grade{Symbol: symbol, Kind: LetterGrade, Points: p, Passed: p.IsPositive()}
}

var gradeScale = map[string]Grade{
	"A+": letter("A+", "4.0"),
	"A":  letter("A", "4.0"),
	"A-": letter("A-", "3.7"),
	"B+": letter("B+", "3.3"),
	"B":  letter("B", "3.0"),
	"B-": letter("B-", "2.7"),
	"C+": letter("C+", "2.3"),
	"C":  letter("C", "2.0"),
	"C-": letter("C-", "1.7"),
	"D+": letter("D+", "1.3"),
	"D":  letter("D", "1.0"),
	"D-": letter("D-", "0.7"),
	"F":  letter("F", "0.0"),
	"P":  {Symbol: "P", Kind: PassFail, Passed: true},
	"S":  {Symbol: "S", Kind: PassFail, Passed: true},
	"NP": {Symbol: "NP", Kind: PassFail},
	"U":  {Symbol: "U", Kind: PassFail},
	"W":  {Symbol: "W", Kind: NonCredit},
	"I":  {Symbol: "I", Kind: NonCredit},
}

// LookupGrade returns the grade for an upper-case symbol such as "B+".
func LookupGrade(symbol string) (Grade, bool) {
	g, ok := gradeScale[strings.TrimSpace(symbol)]
	return g, ok
}

// Passed reports whether a grade earns credit.
func Passed(symbol string) bool {
	g, ok := LookupGrade(symbol)
	return ok && g.Passed
}
