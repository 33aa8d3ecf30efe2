package blocks_test

import (
	"testing"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/blocks"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	require.NoError(t, blocks.Register(r))
	return r
}

func TestRegister(t *testing.T) {
	r := newRegistry(t)
	assert.Equal(t, []string{"null_sink", "throttle", "vector_sink", "vector_source"}, r.Types())

	// Registering twice reports every duplicate.
	err := blocks.Register(r)
	assert.ErrorIs(t, err, registry.ErrDuplicateType)
}

func TestFactories(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		name    string
		typ     string
		params  map[string]any
		check   func(t *testing.T, b streamgraph.Block)
		wantErr error
	}{
		{
			name:   "vector_source from yaml list",
			typ:    blocks.TypeVectorSource,
			params: map[string]any{"vector": []any{0, 0, 0, 0}, "repeat": true},
			check: func(t *testing.T, b streamgraph.Block) {
				src := b.(*blocks.RepeatingSource)
				assert.Equal(t, []byte{0, 0, 0, 0}, src.Parameters()["vector"])
			},
		},
		{
			name:    "vector_source without vector",
			typ:     blocks.TypeVectorSource,
			params:  map[string]any{},
			wantErr: streamgraph.ErrInvalidParameter,
		},
		{
			name:    "vector_source unknown param",
			typ:     blocks.TypeVectorSource,
			params:  map[string]any{"vector": "x", "gain": 2},
			wantErr: streamgraph.ErrUnknownParameter,
		},
		{
			name:   "throttle from json numbers",
			typ:    blocks.TypeThrottle,
			params: map[string]any{"rate": 4800.0, "max_burst": "10ms"},
			check: func(t *testing.T, b streamgraph.Block) {
				th := b.(*blocks.Throttle)
				assert.Equal(t, 4800.0, th.Rate())
				assert.Equal(t, "10ms", th.Parameters()["max_burst"])
			},
		},
		{
			name:    "throttle without rate",
			typ:     blocks.TypeThrottle,
			params:  nil,
			wantErr: streamgraph.ErrInvalidParameter,
		},
		{
			name:    "throttle bad rate",
			typ:     blocks.TypeThrottle,
			params:  map[string]any{"rate": -1},
			wantErr: streamgraph.ErrInvalidParameter,
		},
		{
			name: "null_sink",
			typ:  blocks.TypeNullSink,
			check: func(t *testing.T, b streamgraph.Block) {
				assert.IsType(t, &blocks.DiscardSink{}, b)
			},
		},
		{
			name:    "null_sink rejects params",
			typ:     blocks.TypeNullSink,
			params:  map[string]any{"limit": 1},
			wantErr: streamgraph.ErrUnknownParameter,
		},
		{
			name:   "vector_sink with limit",
			typ:    blocks.TypeVectorSink,
			params: map[string]any{"limit": int64(64)},
			check: func(t *testing.T, b streamgraph.Block) {
				assert.Equal(t, 64, b.(*blocks.VectorSink).Parameters()["limit"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.Build(tt.typ, "blk", tt.params)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "blk", b.Name())
			if tt.check != nil {
				tt.check(t, b)
			}
		})
	}
}
