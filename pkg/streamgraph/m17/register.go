package m17

import (
	"errors"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/registry"
)

// Block type names used in pipeline files.
const (
	TypeEncoder = "m17_coder"
	TypeDecoder = "m17_decoder"
)

// Register adds the encoder and decoder block types to r.
func Register(r *registry.Registry) error {
	return errors.Join(
		r.Register(TypeEncoder, newEncoderFromConfig),
		r.Register(TypeDecoder, newDecoderFromConfig),
	)
}

func newEncoderFromConfig(name string, params config.Config) (streamgraph.Block, error) {
	e, err := NewEncoder(name, EncoderConfig{})
	if err != nil {
		return nil, err
	}
	return e, registry.Configure(e, params)
}

func newDecoderFromConfig(name string, params config.Config) (streamgraph.Block, error) {
	d := NewDecoder(name, DecoderConfig{})
	return d, registry.Configure(d, params)
}
