package syllabus

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FlattenLeaves returns the lessons of a document in learning order.
// Nested documents yield leaves in pre-order; internal nodes are never
// emitted. Flat documents yield every chapter ordered by NaturalLess.
func FlattenLeaves(doc Document) []Node {
	if doc.IsNested() {
		var out []Node
		collectLeaves(doc.Chapters, &out)
		return out
	}

	ids := make([]string, 0, len(doc.Flat))
	for id := range doc.Flat {
		ids = append(ids, id)
	}
	SortNatural(ids)

	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, doc.Flat[id])
	}
	return out
}

func collectLeaves(nodes []Node, out *[]Node) {
	for _, n := range nodes {
		if n.IsLeaf() {
			*out = append(*out, n)
			continue
		}
		collectLeaves(n.Children, out)
	}
}

// SortNatural sorts ids so that digit runs compare by value and letters
// compare without regard to case: "ch-2" before "ch-10", "Ch-3" next to "ch-3".
// Ids that collate equal keep a deterministic byte order.
func SortNatural(ids []string) {
	c := newCollator()
	slices.SortStableFunc(ids, func(a, b string) int {
		if r := c.CompareString(a, b); r != 0 {
			return r
		}
		return strings.Compare(a, b)
	})
}

// NaturalLess reports whether a sorts before b under SortNatural.
func NaturalLess(a, b string) bool {
	if r := newCollator().CompareString(a, b); r != 0 {
		return r < 0
	}
	return a < b
}

// A Collator is not safe for concurrent use, so one is built per sort.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric, collate.Loose)
}

// FindNode returns the node with id. Nested documents are searched
// depth-first, so internal nodes can be found as well as lessons.
func FindNode(doc Document, id string) (Node, bool) {
	if id == "" {
		return Node{}, false
	}
	if doc.IsNested() {
		return findIn(doc.Chapters, id)
	}
	n, ok := doc.Flat[id]
	return n, ok
}

func findIn(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
		if found, ok := findIn(n.Children, id); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Neighbours returns the lessons before and after chapterID in
// FlattenLeaves order. Either is nil at the ends of the path or when
// chapterID is not a lesson of the document.
func Neighbours(doc Document, chapterID string) (prev, next *Node) {
	leaves := FlattenLeaves(doc)
	i := slices.IndexFunc(leaves, func(n Node) bool { return n.ID == chapterID })
	if i < 0 {
		return nil, nil
	}
	if i > 0 {
		p := leaves[i-1]
		prev = &p
	}
	if i < len(leaves)-1 {
		n := leaves[i+1]
		next = &n
	}
	return prev, next
}
