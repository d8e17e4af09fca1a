// Package dispatch builds search trees that select the frame for an integer tick counter
// with a logarithmic number of range tests.
package dispatch

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

var (
	ErrDivisions = errors.New("divisions must be at least 2")
	ErrEmpty     = errors.New("no frames")
)

// Node covers the frames Lo..Hi. Leaves cover a single frame.
type Node struct {
	ID       int
	Lo, Hi   int
	Children []*Node
}

func (n *Node) Leaf() bool {
	return len(n.Children) == 0
}

// Tree is a range tree over frames 0..total-1.
type Tree struct {
	Root      *Node
	Divisions int
	// Clamp makes ticks outside the range select the first or last frame.
	Clamp bool
}

// Build builds a tree over total frames. Each branch splits its range into at most
// divisions parts. Child ids are id*divisions+i+1, the root is 0.
func Build(total, divisions int) (*Tree, error) {
	if divisions < 2 {
		return nil, ErrDivisions
	}
	if total < 1 {
		return nil, ErrEmpty
	}
	t := &Tree{Divisions: divisions}
	t.Root = t.branch(0, 0, total-1)
	return t, nil
}

func (t *Tree) branch(id, lo, hi int) *Node {
	n := &Node{ID: id, Lo: lo, Hi: hi}
	cut := cutoffs(lo, hi, t.Divisions)
	for i := 0; i < t.Divisions && i+1 < len(cut); i++ {
		l, h := cut[i], cut[i+1]-1
		childID := id*t.Divisions + i + 1
		if l == h {
			n.Children = append(n.Children, &Node{ID: childID, Lo: l, Hi: h})
		} else {
			n.Children = append(n.Children, t.branch(childID, l, h))
		}
	}
	return n
}

func cutoffs(lo, hi, divisions int) []int {
	if hi-lo >= divisions {
		section := float64(hi-lo) / float64(divisions)
		c := make([]int, 0, divisions+1)
		for i := 0; i < divisions; i++ {
			c = append(c, int(math.Ceil(float64(lo)+float64(i)*section)))
		}
		return append(c, hi+1)
	}
	c := make([]int, 0, hi-lo+2)
	for i := lo; i <= hi+1; i++ {
		c = append(c, i)
	}
	return c
}

// Find returns the leaf for tick and the number of range tests taken.
func (t *Tree) Find(tick int) (*Node, int, bool) {
	if tick < t.Root.Lo || tick > t.Root.Hi {
		if !t.Clamp {
			return nil, 0, false
		}
		tick = int(math.Max(float64(t.Root.Lo), math.Min(float64(tick), float64(t.Root.Hi))))
	}
	tests := 0
	n := t.Root
	for !n.Leaf() {
		var next *Node
		for _, c := range n.Children {
			tests++
			if c.Lo <= tick && tick <= c.Hi {
				next = c
				break
			}
		}
		if next == nil {
			return nil, tests, false
		}
		n = next
	}
	return n, tests, true
}

// Walk visits nodes in pre-order.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	var walk func(n *Node, depth int) error
	walk = func(n *Node, depth int) error {
		if err := fn(n, depth); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.Root, 0)
}

// Depth returns the number of branch levels above the deepest leaf.
func (t *Tree) Depth() int {
	depth := 0
	_ = t.Walk(func(n *Node, d int) error {
		if d > depth {
			depth = d
		}
		return nil
	})
	return depth
}

// Render writes one block per branch node. Range entries jump to a child branch,
// frame entries carry the payload returned by frame.
func (t *Tree) Render(w io.Writer, frame func(i int) (string, error)) error {
	return t.Walk(func(n *Node, _ int) error {
		if n.Leaf() {
			return nil
		}
		if _, err := fmt.Fprintf(w, "%d [%d..%d]\n", n.ID, n.Lo, n.Hi); err != nil {
			return err
		}
		for _, c := range n.Children {
			var err error
			if c.Leaf() {
				var payload string
				if payload, err = frame(c.Lo); err != nil {
					return errors.Wrapf(err, "frame %d", c.Lo)
				}
				_, err = fmt.Fprintf(w, "\t%d => %s\n", c.Lo, payload)
			} else {
				_, err = fmt.Fprintf(w, "\t%d..%d -> %d\n", c.Lo, c.Hi, c.ID)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}
