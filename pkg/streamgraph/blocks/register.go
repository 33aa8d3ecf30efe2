package blocks

import (
	"errors"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/registry"
)

// Block type names used in pipeline files.
const (
	TypeVectorSource = "vector_source"
	TypeThrottle     = "throttle"
	TypeNullSink     = "null_sink"
	TypeVectorSink   = "vector_sink"
)

// Register adds the block types of this package to r.
func Register(r *registry.Registry) error {
	return errors.Join(
		r.Register(TypeVectorSource, newSourceFromConfig),
		r.Register(TypeThrottle, newThrottleFromConfig),
		r.Register(TypeNullSink, newDiscardSinkFromConfig),
		r.Register(TypeVectorSink, newVectorSinkFromConfig),
	)
}

func newSourceFromConfig(name string, params config.Config) (streamgraph.Block, error) {
	vector, err := config.AsBytes(params.Any("vector", nil))
	if err != nil {
		return nil, invalid(name, "vector", params.Any("vector", nil), err)
	}
	s, err := NewRepeatingSource(name, vector)
	if err != nil {
		return nil, invalid(name, "vector", vector, err)
	}
	return s, registry.Configure(s, params, "vector")
}

func newThrottleFromConfig(name string, params config.Config) (streamgraph.Block, error) {
	r, err := config.AsFloat(params.Any("rate", nil))
	if err != nil {
		return nil, invalid(name, "rate", params.Any("rate", nil), err)
	}
	t, err := NewThrottle(name, r)
	if err != nil {
		return nil, err
	}
	return t, registry.Configure(t, params, "rate")
}

func newDiscardSinkFromConfig(name string, params config.Config) (streamgraph.Block, error) {
	if keys := registry.SortedKeys(params); len(keys) > 0 {
		return nil, invalid(name, keys[0], params.Any(keys[0], nil), streamgraph.ErrUnknownParameter)
	}
	return NewDiscardSink(name), nil
}

func newVectorSinkFromConfig(name string, params config.Config) (streamgraph.Block, error) {
	s := NewVectorSink(name, DefaultSinkLimit)
	return s, registry.Configure(s, params)
}
