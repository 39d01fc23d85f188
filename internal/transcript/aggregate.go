package transcript

import (
	"github.com/shopspring/decimal"

	"github.com/yigit/enrollplan/internal/app/models"
)

// GPAPlaces is the number of decimal places GPA values are rounded to.
const GPAPlaces = 2

// Totals is the aggregate of a reconciled transcript.
type Totals struct {
	GPA          decimal.NullDecimal
	TotalCredits decimal.Decimal
}

// Aggregate computes the credit-weighted GPA and earned credits over catalog
// hits. Catalog credits are used when present. Pass/fail and non-credit
// grades do not enter the GPA; pass grades still earn credit. GPA is null
// when no line carries a letter grade with positive credits.
func Aggregate(lines []models.ParsedLine) Totals {
	points := decimal.Zero
	attempted := decimal.Zero
	earned := decimal.Zero

	for _, l := range lines {
		if l.Status == models.LineUnmatched {
			continue
		}
		credits, ok := lineCredits(l)
		if !ok {
			continue
		}
		g, ok := LookupGrade(l.Grade)
		if !ok {
			continue
		}
		if g.Kind == LetterGrade && credits.IsPositive() {
			points = points.Add(g.Points.Mul(credits))
			attempted = attempted.Add(credits)
		}
		if g.Passed {
			earned = earned.Add(credits)
		}
	}

	t := Totals{TotalCredits: earned}
	if attempted.IsPositive() {
		t.GPA = decimal.NewNullDecimal(points.DivRound(attempted, GPAPlaces))
	}
	return t
}

func lineCredits(l models.ParsedLine) (decimal.Decimal, bool) {
	if l.CatalogCredits.Valid {
		return l.CatalogCredits.Decimal, true
	}
	if l.Credits.Valid {
		return l.Credits.Decimal, true
	}
	return decimal.Decimal{}, false
}
