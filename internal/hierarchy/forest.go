// Package hierarchy turns flat self-referencing records (permission catalog, departments)
// into ordered forests.
package hierarchy

import (
	"errors"
	"fmt"
	"slices"
)

// ErrIntegrity marks parent references that cannot form a forest
var ErrIntegrity = errors.New("hierarchy integrity violation")

// Integrity violation kinds
const (
	KindCycle          = "cycle"
	KindDanglingParent = "dangling_parent"
	KindDuplicateID    = "duplicate_id"
)

// IntegrityError describes the first offending node found
type IntegrityError struct {
	Kind string
	ID   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: %s at node %s", ErrIntegrity, e.Kind, e.ID)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

// Node is one tree position. Depth is 0 for roots; Descendants counts every node below.
type Node[T any] struct {
	Value       T
	Depth       int
	Descendants int
	Children    []*Node[T]
}

// Builder describes how to read identity and parentage off T.
// Less is optional; when set, siblings are ordered by it (stable, so ties keep input order).
type Builder[T any, K comparable] struct {
	Key    func(T) K
	Parent func(T) (K, bool)
	Less   func(a, b T) bool
}

// Build returns the forest for items. Any cycle, duplicate id or reference to a missing parent
// aborts the whole build with an *IntegrityError.
func (b Builder[T, K]) Build(items []T) ([]*Node[T], error) {
	ordered := items
	if b.Less != nil {
		ordered = slices.Clone(items)
		slices.SortStableFunc(ordered, func(x, y T) int {
			switch {
			case b.Less(x, y):
				return -1
			case b.Less(y, x):
				return 1
			default:
				return 0
			}
		})
	}

	index := make(map[K]int, len(ordered))
	for i, item := range ordered {
		k := b.Key(item)
		if _, dup := index[k]; dup {
			return nil, &IntegrityError{Kind: KindDuplicateID, ID: fmt.Sprint(k)}
		}
		index[k] = i
	}

	// adjacency built once, in (sorted) input order
	children := make(map[K][]int, len(ordered))
	var roots []int
	for i, item := range ordered {
		p, ok := b.Parent(item)
		if !ok {
			roots = append(roots, i)
			continue
		}
		if _, exists := index[p]; !exists {
			return nil, &IntegrityError{Kind: KindDanglingParent, ID: fmt.Sprint(b.Key(item))}
		}
		children[p] = append(children[p], i)
	}

	visited := make([]bool, len(ordered))
	var attach func(i, depth int) (*Node[T], error)
	attach = func(i, depth int) (*Node[T], error) {
		if visited[i] {
			return nil, &IntegrityError{Kind: KindCycle, ID: fmt.Sprint(b.Key(ordered[i]))}
		}
		visited[i] = true

		node := &Node[T]{Value: ordered[i], Depth: depth}
		for _, c := range children[b.Key(ordered[i])] {
			child, err := attach(c, depth+1)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			node.Descendants += 1 + child.Descendants
		}
		return node, nil
	}

	forest := make([]*Node[T], 0, len(roots))
	for _, r := range roots {
		node, err := attach(r, 0)
		if err != nil {
			return nil, err
		}
		forest = append(forest, node)
	}

	// every node has exactly one parent, so anything not reached from a root sits on a cycle
	for i, seen := range visited {
		if !seen {
			return nil, &IntegrityError{Kind: KindCycle, ID: fmt.Sprint(b.Key(ordered[i]))}
		}
	}
	return forest, nil
}

// Walk visits nodes depth first, parents before children
func Walk[T any](forest []*Node[T], fn func(*Node[T])) {
	for _, n := range forest {
		fn(n)
		Walk(n.Children, fn)
	}
}

// Fold converts a forest bottom-up: fn receives each node together with its already-converted children
func Fold[T, U any](forest []*Node[T], fn func(n *Node[T], children []U) U) []U {
	out := make([]U, 0, len(forest))
	for _, n := range forest {
		out = append(out, fn(n, Fold(n.Children, fn)))
	}
	return out
}

// Reaches follows parent links upward from start and reports whether it meets target
// (start itself included). A cycle in the existing data is reported as ErrIntegrity.
func Reaches[K comparable](start, target K, parentOf func(K) (K, bool)) (bool, error) {
	seen := map[K]struct{}{}
	cur := start
	for {
		if cur == target {
			return true, nil
		}
		if _, loop := seen[cur]; loop {
			return false, &IntegrityError{Kind: KindCycle, ID: fmt.Sprint(cur)}
		}
		seen[cur] = struct{}{}
		next, ok := parentOf(cur)
		if !ok {
			return false, nil
		}
		cur = next
	}
}
