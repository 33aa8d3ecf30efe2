// Package registry maps block type names to block factories.
//
// Pipeline files name blocks by type ("vector_source", "throttle",
// "m17_coder", ...). A Registry turns such a type name plus a parameter
// map into a streamgraph.Block:
//
//	r := registry.New()
//	r.MustRegister("null_sink", func(name string, _ config.Config) (streamgraph.Block, error) {
//	    return blocks.NewDiscardSink(name), nil
//	})
//
//	b, err := r.Build("null_sink", "sink", nil)
//
// Block packages provide Register functions that add their types to a
// registry, so the set of known types is assembled at startup.
//
// All Registry methods are safe for concurrent use.
package registry
