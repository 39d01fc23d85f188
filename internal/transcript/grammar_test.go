package transcript

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/enrollplan/internal/app/models"
)

func TestTokenize(t *testing.T) {
	toks := Tokenize("Fall term CS 301 Data Structures A- 3.0 2023")

	var kinds []TokenKind
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{
		TokenWord, TokenWord, TokenCourseCode, TokenWord, TokenWord, TokenGrade, TokenCredits, TokenWord,
	}, kinds)
	assert.Equal(t, "CS301", toks[2].Text)
	assert.True(t, toks[6].Credits.Equal(decimal.NewFromInt(3)))

	toks = Tokenize("FALL 2023 MATH 201 B 4")
	kinds = kinds[:0]
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{TokenCourseCode, TokenCourseCode, TokenGrade, TokenCredits}, kinds)
	assert.Equal(t, "FALL2023", toks[0].Text)
	assert.Equal(t, "MATH201", toks[1].Text)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		ok      bool
		code    string
		grade   string
		credits string
	}{
		{name: "compact", line: "CS301 A 3", ok: true, code: "CS301", grade: "A", credits: "3"},
		{name: "spaced code and title", line: "  MATH 1010  Calculus I  B+  4.5 ", ok: true, code: "MATH1010", grade: "B+", credits: "4.5"},
		{name: "pipe separated", line: "PHYS101|Mechanics|C|4", ok: true, code: "PHYS101", grade: "C", credits: "4"},
		{name: "no credits", line: "HIST200 P", ok: true, code: "HIST200", grade: "P"},
		{name: "last grade wins over title", line: "ENG210 A Survey of Poetry B 3", ok: true, code: "ENG210", grade: "B", credits: "3"},
		{name: "year is not credits", line: "CS101 A 3 2021", ok: true, code: "CS101", grade: "A", credits: "3"},
		{name: "credits above bound ignored", line: "CS101 A 40", ok: true, code: "CS101", grade: "A"},
		{name: "term prefix", line: "FALL 2023 CS301 A 3", ok: true, code: "CS301", grade: "A", credits: "3"},
		{name: "quality points column", line: "CS301 Data Structures A 3.00 12.00", ok: true, code: "CS301", grade: "A", credits: "3.00"},
		{name: "credits before grade", line: "CS220 Systems 3 B-", ok: true, code: "CS220", grade: "B-", credits: "3"},
		{name: "no grade", line: "CS401 In Progress 3", ok: false},
		{name: "no code", line: "Cumulative GPA 3.50", ok: false},
		{name: "lower case code is not a code", line: "cs301 A 3", ok: false},
		{name: "grade before code ignored", line: "A CS301 3", ok: false},
		{name: "blank", line: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := ParseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.code, e.CourseCode)
			assert.Equal(t, tt.grade, e.Grade)
			if tt.credits == "" {
				assert.False(t, e.Credits.Valid)
			} else {
				require.True(t, e.Credits.Valid)
				assert.True(t, e.Credits.Decimal.Equal(decimal.RequireFromString(tt.credits)), e.Credits.Decimal.String())
			}
		})
	}
}

func TestParseText(t *testing.T) {
	text := "STATE UNIVERSITY\r\nTerm: FALL\r\nCS101 Intro A 3\r\n\r\nnot a course line\r\nMATH101 Algebra B 4\r\n"
	entries := ParseText(text)
	require.Len(t, entries, 2)
	assert.Equal(t, "CS101", entries[0].CourseCode)
	assert.Equal(t, "CS101 Intro A 3", entries[0].Raw)
	assert.Equal(t, "MATH101", entries[1].CourseCode)
}

type courseMap map[string]*models.Course

func (m courseMap) GetCourse(code string) (*models.Course, bool) {
	c, ok := m[models.NormalizeCourseCode(code)]
	return c, ok
}

func testCourses() courseMap {
	return courseMap{
		"CS101":   {Code: "CS101", Title: "Intro to Programming", Credits: decimal.NewFromInt(3)},
		"CS301":   {Code: "CS301", Title: "Algorithms", Credits: decimal.NewFromInt(3)},
		"MATH101": {Code: "MATH101", Title: "Algebra", Credits: decimal.NewFromInt(4)},
		"HIST200": {Code: "HIST200", Title: "World History", Credits: decimal.NewFromInt(2)},
		"ART100":  {Code: "ART100", Title: "Drawing", Credits: decimal.NewFromInt(1)},
	}
}

func TestReconcile(t *testing.T) {
	entries := ParseText(`CS101 A 3
XX999 B 3
MATH101 C 4
CS101 A 3
MATH101 B+ 4
XX999 A 3`)

	lines := Reconcile(entries, testCourses())
	require.Len(t, lines, 3)

	cs := lines[0]
	assert.Equal(t, "CS101", cs.CourseCode)
	assert.Equal(t, models.LineMatched, cs.Status)
	assert.Equal(t, 2, cs.Occurrences)
	assert.Equal(t, "Intro to Programming", cs.CourseTitle)
	assert.True(t, cs.CatalogCredits.Decimal.Equal(decimal.NewFromInt(3)))

	xx := lines[1]
	assert.Equal(t, models.LineUnmatched, xx.Status)
	assert.Equal(t, "A", xx.Grade)
	assert.False(t, xx.CatalogCredits.Valid)
	assert.Empty(t, xx.CourseTitle)

	math := lines[2]
	assert.Equal(t, models.LineAmbiguous, math.Status)
	assert.Equal(t, "B+", math.Grade)
	assert.Equal(t, "MATH101 B+ 4", math.Raw)
	assert.Equal(t, 2, math.Occurrences)
}

func TestAggregate(t *testing.T) {
	courses := testCourses()

	t.Run("unmatched lines do not count", func(t *testing.T) {
		totals := Aggregate(Reconcile(ParseText("CS301 A 3\nXX999 B 3"), courses))
		require.True(t, totals.GPA.Valid)
		assert.True(t, totals.GPA.Decimal.Equal(decimal.RequireFromString("4.0")), totals.GPA.Decimal.String())
		assert.True(t, totals.TotalCredits.Equal(decimal.NewFromInt(3)))
	})

	t.Run("catalog credits win over document credits", func(t *testing.T) {
		// MATH101 is 4 credits in the catalog: (4*4 + 2*3) / 7
		totals := Aggregate(Reconcile(ParseText("MATH101 A 3\nCS101 C 3"), courses))
		assert.Equal(t, "3.14", totals.GPA.Decimal.StringFixed(2))
		assert.True(t, totals.TotalCredits.Equal(decimal.NewFromInt(7)))
	})

	t.Run("pass fail earns credit outside GPA", func(t *testing.T) {
		totals := Aggregate(Reconcile(ParseText("HIST200 P\nCS101 B 3\nART100 W 1\nCS301 F 3"), courses))
		// (3*3 + 0*3) / 6
		assert.Equal(t, "1.50", totals.GPA.Decimal.StringFixed(2))
		assert.True(t, totals.TotalCredits.Equal(decimal.NewFromInt(5)))
	})

	t.Run("no gradable line gives null GPA", func(t *testing.T) {
		totals := Aggregate(Reconcile(ParseText("HIST200 P\nXX999 A 3"), courses))
		assert.False(t, totals.GPA.Valid)
		assert.True(t, totals.TotalCredits.Equal(decimal.NewFromInt(2)))

		empty := Aggregate(nil)
		assert.False(t, empty.GPA.Valid)
		assert.True(t, empty.TotalCredits.IsZero())
	})

	t.Run("ambiguous line uses last grade", func(t *testing.T) {
		totals := Aggregate(Reconcile(ParseText("CS101 F 3\nCS101 A 3"), courses))
		assert.True(t, totals.GPA.Decimal.Equal(decimal.NewFromInt(4)))
		assert.True(t, totals.TotalCredits.Equal(decimal.NewFromInt(3)))
	})
}

func TestGrades(t *testing.T) {
	assert.True(t, Passed("A"))
	assert.True(t, Passed("D-"))
	assert.True(t, Passed("P"))
	assert.False(t, Passed("F"))
	assert.False(t, Passed("NP"))
	assert.False(t, Passed("W"))
	assert.False(t, Passed("Z"))

	g, ok := LookupGrade("B-")
	require.True(t, ok)
	assert.Equal(t, LetterGrade, g.Kind)
	assert.Equal(t, "2.7", g.Points.String())
}
