package resolver

import (
	"fmt"

	"github.com/tsawler/pdfthumb/core"
)

// ObjectReader interface allows the collector to work with any reader.
type ObjectReader interface {
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Option configures the collector.
type Option func(*Collector)

// WithMaxDepth sets the maximum nesting of direct dictionaries and arrays
// inside one object (default: 100).
func WithMaxDepth(depth int) Option {
	return func(c *Collector) {
		c.maxDepth = depth
	}
}

// WithSkipKeys makes the walk ignore dictionary entries with these keys.
// The entries themselves are left in place; see Rewrite.
func WithSkipKeys(keys ...string) Option {
	return func(c *Collector) {
		for _, k := range keys {
			c.skip[k] = true
		}
	}
}

// WithExclude stops the walk at these references: they are neither loaded
// nor added to the graph. Callers usually map them to replacements of their
// own before calling Rewrite.
func WithExclude(refs ...core.IndirectRef) Option {
	return func(c *Collector) {
		for _, r := range refs {
			c.exclude[r] = true
		}
	}
}

// Collector walks the object graph reachable from a set of roots.
type Collector struct {
	reader   ObjectReader
	maxDepth int
	skip     map[string]bool
	exclude  map[core.IndirectRef]bool
}

// NewCollector creates a collector over reader.
func NewCollector(reader ObjectReader, opts ...Option) *Collector {
	c := &Collector{
		reader:   reader,
		maxDepth: 100,
		skip:     map[string]bool{},
		exclude:  map[core.IndirectRef]bool{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Graph is the set of indirect objects reachable from the roots.
type Graph struct {
	// Refs lists every reachable reference in discovery order.
	Refs []core.IndirectRef
	// Objects maps each reference to its resolved value. References that
	// could not be loaded map to null.
	Objects map[core.IndirectRef]core.Object
	// Missing counts references that resolved to nothing.
	Missing int
}

// Collect visits roots and everything they reference, breadth first. Each
// indirect object is loaded once, so reference cycles terminate.
func (c *Collector) Collect(roots ...core.Object) (*Graph, error) {
	g := &Graph{Objects: map[core.IndirectRef]core.Object{}}
	var queue []core.IndirectRef
	enqueue := func(ref core.IndirectRef) {
		if _, seen := g.Objects[ref]; seen || c.exclude[ref] {
			return
		}
		g.Objects[ref] = core.Null{}
		g.Refs = append(g.Refs, ref)
		queue = append(queue, ref)
	}

	for i, root := range roots {
		if err := c.scan(root, 0, enqueue); err != nil {
			return nil, fmt.Errorf("root %d: %w", i, err)
		}
	}

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		obj, err := c.reader.ResolveReference(ref)
		if err != nil || obj == nil {
			g.Missing++
			continue
		}
		if _, isNull := obj.(core.Null); isNull {
			g.Missing++
			continue
		}
		g.Objects[ref] = obj
		if err := c.scan(obj, 0, enqueue); err != nil {
			return nil, fmt.Errorf("object %d %d R: %w", ref.Number, ref.Generation, err)
		}
	}
	return g, nil
}

// scan finds the references held directly by obj.
func (c *Collector) scan(obj core.Object, depth int, visit func(core.IndirectRef)) error {
	if depth >= c.maxDepth {
		return fmt.Errorf("maximum nesting depth (%d) exceeded", c.maxDepth)
	}
	switch v := obj.(type) {
	case core.IndirectRef:
		visit(v)
	case core.Dict:
		for _, key := range v.Keys() {
			if c.skip[key] {
				continue
			}
			if err := c.scan(v[key], depth+1, visit); err != nil {
				return err
			}
		}
	case core.Array:
		for _, elem := range v {
			if err := c.scan(elem, depth+1, visit); err != nil {
				return err
			}
		}
	case *core.Stream:
		return c.scan(v.Dict, depth, visit)
	}
	return nil
}

// Renumber assigns new object numbers, starting at first, to the graph's
// references in discovery order.
func (g *Graph) Renumber(first int) map[core.IndirectRef]core.IndirectRef {
	m := make(map[core.IndirectRef]core.IndirectRef, len(g.Refs))
	for i, ref := range g.Refs {
		m[ref] = core.IndirectRef{Number: first + i}
	}
	return m
}

// Rewrite returns a copy of obj with every reference replaced through
// mapping. References missing from mapping become null, so entries skipped
// during collection never dangle. Stream data is shared, not copied.
func Rewrite(obj core.Object, mapping map[core.IndirectRef]core.IndirectRef) core.Object {
	switch v := obj.(type) {
	case core.IndirectRef:
		if to, ok := mapping[v]; ok {
			return to
		}
		return core.Null{}
	case core.Dict:
		out := make(core.Dict, len(v))
		for key, value := range v {
			out[key] = Rewrite(value, mapping)
		}
		return out
	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			out[i] = Rewrite(elem, mapping)
		}
		return out
	case *core.Stream:
		return &core.Stream{Dict: Rewrite(v.Dict, mapping).(core.Dict), Data: v.Data}
	}
	return obj
}
