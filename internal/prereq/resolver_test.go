package prereq

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

type courseMap map[string]*models.Course

func (m courseMap) GetCourse(code string) (*models.Course, bool) {
	c, ok := m[models.NormalizeCourseCode(code)]
	return c, ok
}

func (m courseMap) add(code string, prereqs *models.PrereqExpr) courseMap {
	m[code] = &models.Course{Code: code, Title: code, Credits: decimal.NewFromInt(3), Prerequisites: prereqs}
	return m
}

func TestResolveChain(t *testing.T) {
	cat := courseMap{}.
		add("CS101", nil).
		add("MATH101", nil).
		add("CS201", models.CourseRef("CS101")).
		add("CS301", models.AllOf(models.CourseRef("CS201"), models.AnyOf(models.CourseRef("MATH101"), models.CourseRef("MATH102"))))

	root, err := Resolve(cat, "cs 301", 0)
	require.NoError(t, err)

	assert.Equal(t, "CS301", root.Code)
	assert.Equal(t, models.ExprAll, root.Operator)
	require.Len(t, root.Children, 2)

	cs201 := root.Children[0]
	assert.Equal(t, NodeCourse, cs201.Kind)
	assert.Equal(t, "CS201", cs201.Code)
	require.Len(t, cs201.Children, 1)
	assert.Equal(t, "CS101", cs201.Children[0].Code)
	assert.Empty(t, cs201.Children[0].Children)

	math := root.Children[1]
	assert.Equal(t, NodeGroup, math.Kind)
	assert.Equal(t, models.ExprAny, math.Operator)
	require.Len(t, math.Children, 2)
	assert.Equal(t, "MATH101", math.Children[0].Code)
	assert.False(t, math.Children[0].NotFound)
	assert.Equal(t, "MATH102", math.Children[1].Code)
	assert.True(t, math.Children[1].NotFound)
	assert.Nil(t, math.Children[1].Course)

	assert.Equal(t, []string{"CS201", "CS101", "MATH101", "MATH102"}, root.RequiredCodes())
	assert.Equal(t, Flags{NotFound: true}, root.Flags())
}

func TestResolveRootNotFound(t *testing.T) {
	_, err := Resolve(courseMap{}, "CS999", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestResolveCycle(t *testing.T) {
	cat := courseMap{}.
		add("A100", models.CourseRef("B100")).
		add("B100", models.CourseRef("A100"))

	root, err := Resolve(cat, "A100", 0)
	require.NoError(t, err)

	require.Len(t, root.Children, 1)
	b := root.Children[0]
	assert.Equal(t, "B100", b.Code)
	assert.False(t, b.Cycle)
	require.Len(t, b.Children, 1)
	a := b.Children[0]
	assert.Equal(t, "A100", a.Code)
	assert.True(t, a.Cycle)
	assert.Empty(t, a.Children)
	assert.True(t, root.Flags().Cycle)
}

func TestResolveSelfReference(t *testing.T) {
	cat := courseMap{}.add("CS400", models.AnyOf(models.CourseRef("CS400"), models.RawRequirement("permission of instructor")))

	root, err := Resolve(cat, "CS400", 0)
	require.NoError(t, err)
	require.Len(t, root.Children, 2)
	assert.True(t, root.Children[0].Cycle)
	assert.Equal(t, NodeRaw, root.Children[1].Kind)
	assert.Equal(t, "permission of instructor", root.Children[1].Text)
}

// A course reached on two sibling branches is not a cycle.
func TestResolveDiamondIsNotCycle(t *testing.T) {
	cat := courseMap{}.
		add("CS101", nil).
		add("CS201", models.CourseRef("CS101")).
		add("CS202", models.CourseRef("CS101")).
		add("CS301", models.AllOf(models.CourseRef("CS201"), models.CourseRef("CS202")))

	root, err := Resolve(cat, "CS301", 0)
	require.NoError(t, err)
	assert.False(t, root.Flags().Cycle)
	assert.Equal(t, "CS101", root.Children[0].Children[0].Code)
	assert.Equal(t, "CS101", root.Children[1].Children[0].Code)
	assert.Equal(t, []string{"CS201", "CS101", "CS202"}, root.RequiredCodes())
}

func TestResolveDepthLimit(t *testing.T) {
	cat := courseMap{}
	for i := 0; i < 60; i++ {
		var pre *models.PrereqExpr
		if i > 0 {
			pre = models.CourseRef(fmt.Sprintf("CS%d", 100+i-1))
		}
		cat.add(fmt.Sprintf("CS%d", 100+i), pre)
	}

	depthOf := func(root *Node) (int, *Node) {
		depth, n := 0, root
		for len(n.Children) > 0 {
			n = n.Children[0]
			depth++
		}
		return depth, n
	}

	root, err := Resolve(cat, "CS159", 3)
	require.NoError(t, err)
	depth, leaf := depthOf(root)
	assert.Equal(t, 3, depth)
	assert.Equal(t, "CS156", leaf.Code)
	assert.True(t, leaf.DepthLimited)

	root, err = Resolve(cat, "CS159", 0)
	require.NoError(t, err)
	depth, leaf = depthOf(root)
	assert.Equal(t, DefaultMaxDepth, depth)
	assert.True(t, leaf.DepthLimited)

	// A chain that ends before the limit is not flagged.
	root, err = Resolve(cat, "CS102", 3)
	require.NoError(t, err)
	assert.False(t, root.Flags().DepthLimited)
}

// Every course of a layer requires both courses of the next layer, so the
// unbounded tree would double in size at each level.
func TestResolveLatticeStaysBounded(t *testing.T) {
	const layers = 40
	code := func(layer, i int) string { return fmt.Sprintf("L%c%03d", 'A'+i, layer) }
	cat := courseMap{}
	for layer := 0; layer < layers; layer++ {
		for i := 0; i < 2; i++ {
			var pre *models.PrereqExpr
			if layer+1 < layers {
				pre = models.AllOf(models.CourseRef(code(layer+1, 0)), models.CourseRef(code(layer+1, 1)))
			}
			cat.add(code(layer, i), pre)
		}
	}

	root, err := Resolve(cat, code(0, 0), 0)
	require.NoError(t, err)

	count := 0
	root.Walk(func(*Node) { count++ })
	assert.LessOrEqual(t, count, 2*MaxNodes)

	flags := root.Flags()
	assert.True(t, flags.DepthLimited)
	assert.False(t, flags.Cycle)
	assert.Contains(t, root.RequiredCodes(), code(layers-1, 1))
}

func TestResolveIdempotent(t *testing.T) {
	cat := courseMap{}.
		add("A100", models.AllOf(models.CourseRef("B100"), models.CourseRef("C100"))).
		add("B100", models.CourseRef("C100")).
		add("C100", models.EitherOf(models.CourseRef("A100"), models.CourseRef("Z999")))

	first, err := Resolve(cat, "A100", 0)
	require.NoError(t, err)
	second, err := Resolve(cat, "A100", 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// randomCatalog builds courses CC000, CC100 and so on. edges[i] lists the prerequisite
// indexes of course i; indexes >= len(edges) name missing courses.
func randomCatalog(edges [][]int) courseMap {
	cat := courseMap{}
	for i, list := range edges {
		var terms []*models.PrereqExpr
		for _, j := range list {
			terms = append(terms, models.CourseRef(fmt.Sprintf("CC%d00", j)))
		}
		var pre *models.PrereqExpr
		switch {
		case len(terms) == 1:
			pre = terms[0]
		case len(terms) > 1 && i%2 == 0:
			pre = models.AllOf(terms...)
		case len(terms) > 1:
			pre = models.AnyOf(terms...)
		}
		cat.add(fmt.Sprintf("CC%d00", i), pre)
	}
	return cat
}

// checkTree verifies the path-local invariants of a resolved tree.
func checkTree(n *Node, path map[string]bool, depth, maxDepth int) bool {
	if n.Kind == NodeCourse {
		if n.Cycle {
			return path[n.Code] && len(n.Children) == 0
		}
		if path[n.Code] || depth > maxDepth {
			return false
		}
		if n.NotFound && len(n.Children) > 0 {
			return false
		}
		path[n.Code] = true
		defer delete(path, n.Code)
		depth++
	}
	for _, c := range n.Children {
		if !checkTree(c, path, depth, maxDepth) {
			return false
		}
	}
	return true
}

func TestResolveProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	edgesGen := gen.SliceOfN(6, gen.SliceOfN(3, gen.IntRange(0, 7)).Map(func(v []int) []int {
		if len(v) == 0 {
			return v
		}
		// vary fan-out between 0 and 3
		return v[:v[0]%4]
	}))

	properties.Property("resolution terminates and respects path-local invariants", prop.ForAll(
		func(edges [][]int, maxDepth int) bool {
			cat := randomCatalog(edges)
			root, err := Resolve(cat, "CC000", maxDepth)
			if err != nil {
				return false
			}
			limit := maxDepth
			if limit <= 0 {
				limit = DefaultMaxDepth
			}
			return checkTree(root, map[string]bool{}, 0, limit)
		},
		edgesGen,
		gen.IntRange(0, 5),
	))

	properties.Property("resolution is idempotent", prop.ForAll(
		func(edges [][]int, maxDepth int) bool {
			cat := randomCatalog(edges)
			first, err1 := Resolve(cat, "CC000", maxDepth)
			second, err2 := Resolve(cat, "CC000", maxDepth)
			return err1 == nil && err2 == nil && reflect.DeepEqual(first, second)
		},
		edgesGen,
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
