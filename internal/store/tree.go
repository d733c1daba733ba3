package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Tree is a node of the hierarchical store. Interior nodes hold named
// children, leaves hold one raw JSON document. Leaves are kept as bytes so
// a merge never re-encodes (and never rounds) a stored value.
type Tree struct {
	children map[string]*Tree
	leaf     json.RawMessage
}

// NewTree creates an empty interior node.
func NewTree() *Tree {
	return &Tree{children: make(map[string]*Tree)}
}

func newLeaf(value json.RawMessage) *Tree {
	return &Tree{leaf: append(json.RawMessage(nil), value...)}
}

// IsLeaf reports whether t holds a value.
func (t *Tree) IsLeaf() bool {
	return t.children == nil
}

// Value returns the leaf payload (nil for interior nodes).
func (t *Tree) Value() json.RawMessage {
	return t.leaf
}

// Set stores value at path, creating interior nodes on the way. It fails
// if the path runs through an existing leaf.
func (t *Tree) Set(path []string, value json.RawMessage) error {
	if len(path) == 0 {
		return fmt.Errorf("path cannot be empty")
	}
	if !json.Valid(value) {
		return fmt.Errorf("value at %s is not valid JSON", strings.Join(path, "/"))
	}

	node := t
	for i, key := range path[:len(path)-1] {
		if node.IsLeaf() {
			return fmt.Errorf("path %s runs through a leaf", strings.Join(path[:i], "/"))
		}
		next, ok := node.children[key]
		if !ok {
			next = NewTree()
			node.children[key] = next
		}
		node = next
	}
	if node.IsLeaf() {
		return fmt.Errorf("path %s runs through a leaf", strings.Join(path[:len(path)-1], "/"))
	}
	node.children[path[len(path)-1]] = newLeaf(value)
	return nil
}

// Get returns the node at path.
func (t *Tree) Get(path ...string) (*Tree, bool) {
	node := t
	for _, key := range path {
		if node.IsLeaf() {
			return nil, false
		}
		next, ok := node.children[key]
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, true
}

// Keys returns the child keys in sorted order.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.children))
	for k := range t.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of leaves below t.
func (t *Tree) Len() int {
	if t.IsLeaf() {
		return 1
	}
	n := 0
	for _, c := range t.children {
		n += c.Len()
	}
	return n
}

// Walk visits every leaf in key order.
func (t *Tree) Walk(fn func(path []string, value json.RawMessage) error) error {
	return t.walk(nil, fn)
}

func (t *Tree) walk(prefix []string, fn func([]string, json.RawMessage) error) error {
	if t.IsLeaf() {
		return fn(prefix, t.leaf)
	}
	for _, k := range t.Keys() {
		path := append(append([]string(nil), prefix...), k)
		if err := t.children[k].walk(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) clone() *Tree {
	if t.IsLeaf() {
		return newLeaf(t.leaf)
	}
	out := NewTree()
	for k, c := range t.children {
		out.children[k] = c.clone()
	}
	return out
}

// Merge unions src into t. Where both sides hold a nested level the merge
// recurses; where a key collides at leaf level (or a leaf meets a nested
// level) src wins and the path is reported and logged.
func (t *Tree) Merge(src *Tree) []string {
	var collisions []string
	t.merge(src, nil, &collisions)
	return collisions
}

func (t *Tree) merge(src *Tree, prefix []string, collisions *[]string) {
	for _, k := range src.Keys() {
		s := src.children[k]
		d, exists := t.children[k]
		path := append(append([]string(nil), prefix...), k)

		switch {
		case !exists:
			t.children[k] = s.clone()
		case !d.IsLeaf() && !s.IsLeaf():
			d.merge(s, path, collisions)
		default:
			key := strings.Join(path, "/")
			slog.Warn("Store key collision, overwriting", "key", key)
			*collisions = append(*collisions, key)
			t.children[k] = s.clone()
		}
	}
}

// MarshalJSON encodes leaves verbatim and interior nodes as objects with
// sorted keys.
func (t *Tree) MarshalJSON() ([]byte, error) {
	if t.IsLeaf() {
		return t.leaf, nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		child, err := t.children[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(child)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeTree parses raw as a tree with depth key levels above the leaves.
func decodeTree(raw json.RawMessage, depth int) (*Tree, error) {
	if depth == 0 {
		return newLeaf(raw), nil
	}

	var children map[string]json.RawMessage
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, fmt.Errorf("failed to decode tree level: %w", err)
	}

	t := NewTree()
	for k, v := range children {
		child, err := decodeTree(v, depth-1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		t.children[k] = child
	}
	return t, nil
}
