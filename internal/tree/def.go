package tree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/simtree/internal/ir"
	"github.com/roach88/simtree/internal/registry"
)

type nodeKind uint8

const (
	leafNode nodeKind = iota + 1
	atomNode
	recordNode
	listNode
	mapNode
)

// Def describes the structure of a flattened value: everything except the
// numeric leaves.
type Def struct {
	kind     nodeKind
	atom     ir.Value          // atomNode
	meta     registry.Metadata // recordNode
	keys     []string          // mapNode sorted keys; recordNode dynamic field names
	children []*Def
	leaves   int
}

// NumLeaves returns the number of array leaves the Def expects.
func (d *Def) NumLeaves() int { return d.leaves }

// Equal reports whether two Defs describe the same structure, including
// equal static metadata on every record node and equal atoms.
func (d *Def) Equal(o *Def) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.kind != o.kind || d.leaves != o.leaves || len(d.children) != len(o.children) {
		return false
	}
	switch d.kind {
	case atomNode:
		if !ir.Equal(d.atom, o.atom) {
			return false
		}
	case recordNode:
		if !d.meta.Equal(o.meta) {
			return false
		}
	}
	if !slices.Equal(d.keys, o.keys) {
		return false
	}
	for i := range d.children {
		if !d.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// LeafPaths returns a readable path for every leaf, in leaf order.
// Example: ["bodies[0].mass", "bodies[0].geoms[0].size"]
func (d *Def) LeafPaths() []string {
	out := make([]string, 0, d.leaves)
	d.appendPaths("", &out)
	return out
}

func (d *Def) appendPaths(prefix string, out *[]string) {
	switch d.kind {
	case leafNode:
		*out = append(*out, prefix)
	case recordNode:
		for i, child := range d.children {
			child.appendPaths(joinPath(prefix, d.keys[i]), out)
		}
	case listNode:
		for i, child := range d.children {
			child.appendPaths(fmt.Sprintf("%s[%d]", prefix, i), out)
		}
	case mapNode:
		for i, child := range d.children {
			child.appendPaths(fmt.Sprintf("%s[%q]", prefix, d.keys[i]), out)
		}
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// String renders the structure with leaves shown as '*'.
func (d *Def) String() string {
	var b strings.Builder
	d.write(&b)
	return b.String()
}

func (d *Def) write(b *strings.Builder) {
	switch d.kind {
	case leafNode:
		b.WriteByte('*')
	case atomNode:
		b.WriteString(ir.Describe(d.atom))
	case recordNode:
		b.WriteString(d.meta.Record().Name)
		b.WriteByte('(')
		d.writeChildren(b)
		b.WriteByte(')')
	case listNode:
		b.WriteByte('[')
		d.writeChildren(b)
		b.WriteByte(']')
	case mapNode:
		b.WriteByte('{')
		for i, child := range d.children {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%q: ", d.keys[i])
			child.write(b)
		}
		b.WriteByte('}')
	}
}

func (d *Def) writeChildren(b *strings.Builder) {
	for i, child := range d.children {
		if i > 0 {
			b.WriteString(", ")
		}
		child.write(b)
	}
}
