// Package pipeline builds graphs from description files.
//
// A description names the graph, lists blocks by name, type and
// parameters, and connects them:
//
//	name: m17-streamer
//	blocks:
//	  - name: source
//	    type: vector_source
//	    params:
//	      vector: [0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0]
//	  - name: throttle
//	    type: throttle
//	    params: {rate: 4800}
//	  - name: sink
//	    type: null_sink
//	connections:
//	  - {from: source, to: throttle}
//	  - {from: throttle:0, to: sink:0, capacity: 1024}
//
// Endpoints are "block" or "block:index"; the index defaults to 0 and the
// capacity to streamgraph.DefaultEdgeCapacity. YAML, JSON and TOML files
// are accepted. Block types are resolved through a registry.Registry;
// DefaultRegistry knows every block shipped with streamgraph.
package pipeline
