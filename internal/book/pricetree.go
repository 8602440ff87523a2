// Package book implements the order-book data structures: a red-black tree
// of active price levels, a FIFO queue of orders within a level, and a Side
// composing the two with per-level aggregates.
package book

import (
	"github.com/mvance/pairbook/internal/domain"
)

// treeNode is a node of the price index. The tree uses a shared sentinel
// in place of nil children so the delete fixup can walk through "empty"
// positions without special cases.
type treeNode struct {
	price  uint64
	parent *treeNode
	left   *treeNode
	right  *treeNode
	red    bool
}

// PriceTree is a red-black tree keyed by price. Price 0 is reserved as the
// "absent" sentinel value and is rejected by every operation. Invariants:
// the root is black, no red node has a red child, and every root-to-leaf
// path crosses the same number of black nodes; an in-order walk yields
// strictly ascending prices.
//
// A price → node map sits next to the tree so Exists, Next and Prev start
// from the node in O(1) instead of searching from the root.
type PriceTree struct {
	root  *treeNode
	nilN  *treeNode
	nodes map[uint64]*treeNode
}

// NewPriceTree creates an empty PriceTree.
func NewPriceTree() *PriceTree {
	s := &treeNode{} // shared black sentinel
	return &PriceTree{
		root:  s,
		nilN:  s,
		nodes: make(map[uint64]*treeNode),
	}
}

// Len returns the number of prices in the tree.
func (t *PriceTree) Len() int {
	return len(t.nodes)
}

// Exists reports whether price is present.
func (t *PriceTree) Exists(price uint64) bool {
	_, ok := t.nodes[price]
	return ok
}

// Insert adds price to the tree. Inserting a price that is already present
// is a no-op: level aggregates live outside the tree, so a repeated insert
// has nothing to update here.
func (t *PriceTree) Insert(price uint64) error {
	if price == 0 {
		return domain.ErrZeroPrice
	}
	if _, ok := t.nodes[price]; ok {
		return nil
	}

	z := &treeNode{price: price, red: true, parent: t.nilN, left: t.nilN, right: t.nilN}
	y := t.nilN
	x := t.root
	for x != t.nilN {
		y = x
		if price < x.price {
			x = x.left
		} else {
			x = x.right
		}
	}
	z.parent = y
	switch {
	case y == t.nilN:
		t.root = z
	case price < y.price:
		y.left = z
	default:
		y.right = z
	}
	t.nodes[price] = z
	t.insertFixup(z)
	return nil
}

// insertFixup restores the red-black invariants after inserting the red
// node z, rotating and recoloring from z toward the root until the parent
// is black or the root is reached. The root is forced black at the end.
func (t *PriceTree) insertFixup(z *treeNode) {
	for z.parent.red {
		if z.parent == z.parent.parent.left {
			u := z.parent.parent.right
			if u.red {
				z.parent.red = false
				u.red = false
				z.parent.parent.red = true
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.rotateLeft(z)
				}
				z.parent.red = false
				z.parent.parent.red = true
				t.rotateRight(z.parent.parent)
			}
		} else {
			u := z.parent.parent.left
			if u.red {
				z.parent.red = false
				u.red = false
				z.parent.parent.red = true
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rotateRight(z)
				}
				z.parent.red = false
				z.parent.parent.red = true
				t.rotateLeft(z.parent.parent)
			}
		}
	}
	t.root.red = false
}

// Remove deletes price from the tree. It returns domain.ErrZeroPrice for
// price 0 and domain.ErrPriceNotFound when the price is absent.
func (t *PriceTree) Remove(price uint64) error {
	if price == 0 {
		return domain.ErrZeroPrice
	}
	z, ok := t.nodes[price]
	if !ok {
		return domain.ErrPriceNotFound
	}
	delete(t.nodes, price)

	// Standard delete: splice out z, or its in-order successor when z has
	// two children. If the spliced node was black, rebalance from x.
	y := z
	yWasRed := y.red
	var x *treeNode
	switch {
	case z.left == t.nilN:
		x = z.right
		t.transplant(z, z.right)
	case z.right == t.nilN:
		x = z.left
		t.transplant(z, z.left)
	default:
		y = t.minimum(z.right)
		yWasRed = y.red
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.red = z.red
	}
	if !yWasRed {
		t.removeFixup(x)
	}
	return nil
}

// removeFixup walks x toward the root restoring the equal-black-height
// invariant after a black node was spliced out. Each iteration resolves one
// of the four sibling-color cases: red sibling; black sibling with two
// black children; black sibling with red near child; black sibling with
// red far child.
func (t *PriceTree) removeFixup(x *treeNode) {
	for x != t.root && !x.red {
		if x == x.parent.left {
			w := x.parent.right
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateLeft(x.parent)
				w = x.parent.right
			}
			if !w.left.red && !w.right.red {
				w.red = true
				x = x.parent
			} else {
				if !w.right.red {
					w.left.red = false
					w.red = true
					t.rotateRight(w)
					w = x.parent.right
				}
				w.red = x.parent.red
				x.parent.red = false
				w.right.red = false
				t.rotateLeft(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.red {
				w.red = false
				x.parent.red = true
				t.rotateRight(x.parent)
				w = x.parent.left
			}
			if !w.left.red && !w.right.red {
				w.red = true
				x = x.parent
			} else {
				if !w.left.red {
					w.right.red = false
					w.red = true
					t.rotateLeft(w)
					w = x.parent.left
				}
				w.red = x.parent.red
				x.parent.red = false
				w.left.red = false
				t.rotateRight(x.parent)
				x = t.root
			}
		}
	}
	x.red = false
}

// First returns the lowest price, or 0 when the tree is empty.
func (t *PriceTree) First() uint64 {
	if t.root == t.nilN {
		return 0
	}
	return t.minimum(t.root).price
}

// Last returns the highest price, or 0 when the tree is empty.
func (t *PriceTree) Last() uint64 {
	if t.root == t.nilN {
		return 0
	}
	return t.maximum(t.root).price
}

// Next returns the smallest price greater than the given one, or 0 when
// none exists. The starting price must be present.
func (t *PriceTree) Next(price uint64) (uint64, error) {
	if price == 0 {
		return 0, domain.ErrZeroPrice
	}
	n, ok := t.nodes[price]
	if !ok {
		return 0, domain.ErrPriceNotFound
	}
	if n.right != t.nilN {
		return t.minimum(n.right).price, nil
	}
	p := n.parent
	for p != t.nilN && n == p.right {
		n = p
		p = p.parent
	}
	if p == t.nilN {
		return 0, nil
	}
	return p.price, nil
}

// Prev returns the largest price smaller than the given one, or 0 when
// none exists. The starting price must be present.
func (t *PriceTree) Prev(price uint64) (uint64, error) {
	if price == 0 {
		return 0, domain.ErrZeroPrice
	}
	n, ok := t.nodes[price]
	if !ok {
		return 0, domain.ErrPriceNotFound
	}
	if n.left != t.nilN {
		return t.maximum(n.left).price, nil
	}
	p := n.parent
	for p != t.nilN && n == p.left {
		n = p
		p = p.parent
	}
	if p == t.nilN {
		return 0, nil
	}
	return p.price, nil
}

func (t *PriceTree) minimum(x *treeNode) *treeNode {
	for x.left != t.nilN {
		x = x.left
	}
	return x
}

func (t *PriceTree) maximum(x *treeNode) *treeNode {
	for x.right != t.nilN {
		x = x.right
	}
	return x
}

// transplant replaces the subtree rooted at u with the one rooted at v.
func (t *PriceTree) transplant(u, v *treeNode) {
	switch {
	case u.parent == t.nilN:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *PriceTree) rotateLeft(x *treeNode) {
	y := x.right
	x.right = y.left
	if y.left != t.nilN {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.nilN:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *PriceTree) rotateRight(x *treeNode) {
	y := x.left
	x.left = y.right
	if y.right != t.nilN {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.nilN:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}
