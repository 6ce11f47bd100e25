package model

import (
	"github.com/samber/lo"
)

// Node is a selected item that may expand into children of the same type
type Node[T any] interface {
	ChildItems() []T
	IsLeaf() bool
}

// Flatten expands items with children into their leaves. Expanded
// children come first, followed by the items that were leaves already.
func Flatten[T Node[T]](items []T) []T {
	children := lo.FlatMap(items, func(item T, _ int) []T {
		if item.IsLeaf() {
			return nil
		}
		return Flatten(item.ChildItems())
	})
	leaves := lo.Filter(items, func(item T, _ int) bool { return item.IsLeaf() })
	return append(children, leaves...)
}

// walk calls fn with a pointer to every item and descendant, stopping
// when fn returns true.
func walk[T any](items []T, children func(*T) []T, fn func(*T) bool) bool {
	for i := range items {
		if fn(&items[i]) {
			return true
		}
		if walk(children(&items[i]), children, fn) {
			return true
		}
	}
	return false
}

// Tree is a Node that can be rebuilt with a new set of children
type Tree[T any] interface {
	Node[T]
	WithChildren(children []T) T
}

// Prune removes every item drop reports true for. A parent that loses all
// of its children is removed with them.
func Prune[T Tree[T]](items []T, drop func(T) bool) []T {
	return lo.FilterMap(items, func(item T, _ int) (T, bool) {
		if drop(item) {
			return item, false
		}
		if item.IsLeaf() {
			return item, true
		}
		children := Prune(item.ChildItems(), drop)
		return item.WithChildren(children), len(children) > 0
	})
}
