// Package prereq expands course prerequisite expressions into trees.
package prereq

import (
	"fmt"

	"github.com/yigit/enrollplan/internal/app/models"
	"github.com/yigit/enrollplan/internal/pkg/apperrors"
)

// DefaultMaxDepth bounds expansion when the caller passes maxDepth <= 0.
const DefaultMaxDepth = 50

// MaxNodes bounds the size of a resolved tree. Shared prerequisites are
// expanded once per path, so layered catalogs would otherwise grow the tree
// exponentially with depth.
const MaxNodes = 5000

// NodeKind tags the variant held by a Node.
type NodeKind string

const (
	NodeCourse NodeKind = "course"
	NodeGroup  NodeKind = "group"
	NodeRaw    NodeKind = "raw"
)

// CourseLookup is the part of the catalog the resolver reads.
type CourseLookup interface {
	GetCourse(code string) (*models.Course, bool)
}

// Node is one vertex of a resolved prerequisite tree.
//
// A course node's Children are the terms of its prerequisite expression and
// Operator says how they combine. Group nodes stand for nested groups. Raw
// nodes carry requirement text that could not be parsed.
type Node struct {
	Kind         NodeKind        `json:"kind"`
	Code         string          `json:"code,omitempty"`
	Course       *models.Course  `json:"course,omitempty"`
	NotFound     bool            `json:"notFound,omitempty"`
	Cycle        bool            `json:"cycle,omitempty"`
	DepthLimited bool            `json:"depthLimited,omitempty"`
	Operator     models.ExprKind `json:"operator,omitempty"`
	Children     []*Node         `json:"children,omitempty"`
	Text         string          `json:"text,omitempty"`
}

// Resolve expands the prerequisite tree of the course identified by code.
//
// Expansion is depth-first. A course that already appears on the path from
// the root is emitted with Cycle set and not expanded again; the same course
// on a sibling branch is expanded normally. Codes missing from the catalog
// become NotFound leaves. Courses at maxDepth whose prerequisites were not
// expanded carry DepthLimited, as do courses reached after the tree has
// grown to MaxNodes nodes. Only a missing root is an error.
func Resolve(catalog CourseLookup, code string, maxDepth int) (*Node, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	code = models.NormalizeCourseCode(code)
	if _, ok := catalog.GetCourse(code); !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCourseNotFound, code)
	}
	r := &resolver{
		catalog:  catalog,
		maxDepth: maxDepth,
		path:     make(map[string]bool),
	}
	return r.course(code, 0)
}

type resolver struct {
	catalog  CourseLookup
	maxDepth int
	path     map[string]bool // courses on the current root-to-node path
	nodes    int
}

func (r *resolver) course(code string, depth int) (*Node, error) {
	r.nodes++
	n := &Node{Kind: NodeCourse, Code: code}
	c, ok := r.catalog.GetCourse(code)
	if !ok {
		n.NotFound = true
		return n, nil
	}
	n.Course = c
	if r.path[code] {
		n.Cycle = true
		return n, nil
	}
	expr := c.Prerequisites
	if expr == nil {
		return n, nil
	}
	if depth >= r.maxDepth || r.nodes >= MaxNodes {
		n.DepthLimited = true
		return n, nil
	}

	r.path[code] = true
	defer delete(r.path, code)

	switch expr.Kind {
	case models.ExprAll, models.ExprAny, models.ExprEither:
		n.Operator = expr.Kind
		children, err := r.terms(expr.Terms, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = children
	case models.ExprCourse, models.ExprRaw:
		n.Operator = models.ExprAll
		child, err := r.expr(expr, depth+1)
		if err != nil {
			return nil, err
		}
		n.Children = []*Node{child}
	default:
		return nil, fmt.Errorf("course %s: %w: %q", code, models.ErrUnknownExprKind, expr.Kind)
	}
	return n, nil
}

func (r *resolver) terms(terms []*models.PrereqExpr, depth int) ([]*Node, error) {
	out := make([]*Node, 0, len(terms))
	for _, t := range terms {
		child, err := r.expr(t, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// expr translates a sub-expression. Groups do not count as a depth level.
func (r *resolver) expr(e *models.PrereqExpr, depth int) (*Node, error) {
	switch e.Kind {
	case models.ExprCourse:
		return r.course(models.NormalizeCourseCode(e.Code), depth)
	case models.ExprAll, models.ExprAny, models.ExprEither:
		r.nodes++
		children, err := r.terms(e.Terms, depth)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: NodeGroup, Operator: e.Kind, Children: children}, nil
	case models.ExprRaw:
		r.nodes++
		return &Node{Kind: NodeRaw, Text: e.Text}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownExprKind, e.Kind)
	}
}

// RequiredCodes returns the distinct course codes below n in pre-order,
// excluding n itself.
func (n *Node) RequiredCodes() []string {
	var codes []string
	seen := map[string]bool{n.Code: n.Kind == NodeCourse}
	n.Walk(func(x *Node) {
		if x == n || x.Kind != NodeCourse || seen[x.Code] {
			return
		}
		seen[x.Code] = true
		codes = append(codes, x.Code)
	})
	return codes
}

// Walk visits n and its descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Flags summarizes the markers set anywhere in the tree.
type Flags struct {
	Cycle        bool `json:"cycle"`
	DepthLimited bool `json:"depthLimited"`
	NotFound     bool `json:"notFound"`
}

// Flags reports whether any node in the tree is a cycle, truncated or
// missing from the catalog.
func (n *Node) Flags() Flags {
	var f Flags
	n.Walk(func(x *Node) {
		f.Cycle = f.Cycle || x.Cycle
		f.DepthLimited = f.DepthLimited || x.DepthLimited
		f.NotFound = f.NotFound || x.NotFound
	})
	return f
}
