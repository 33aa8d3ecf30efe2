// Package blocks provides the general-purpose blocks of a stream graph:
// a repeating byte source, a throttle and two sinks.
//
// Every block has one byte port per side it needs and is registered under
// a type name for pipeline files (see Register):
//
//	vector_source  RepeatingSource  params: vector, repeat
//	throttle       Throttle         params: rate, max_burst, max_lag
//	null_sink      DiscardSink
//	vector_sink    VectorSink       params: limit
package blocks
