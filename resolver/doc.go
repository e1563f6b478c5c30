// Package resolver walks the PDF object graph.
//
// PDF documents use indirect references (e.g., "5 0 R") to refer to objects
// stored elsewhere in the file. A [Collector] follows those references from
// a set of roots and gathers every object they reach, loading each one once
// so that circular references terminate.
//
// # Basic Usage
//
//	c := resolver.NewCollector(reader, resolver.WithSkipKeys("Parent"))
//	graph, err := c.Collect(pageDict)
//
// # Copying a Subgraph
//
// [Graph.Renumber] assigns dense object numbers to the collected references
// and [Rewrite] copies an object with its references remapped. Together they
// move part of one document into a new one:
//
//	mapping := graph.Renumber(4)
//	for _, ref := range graph.Refs {
//	    w.Set(mapping[ref], resolver.Rewrite(graph.Objects[ref], mapping))
//	}
//
// References that were never collected, including those under skipped keys,
// are rewritten to null.
package resolver
