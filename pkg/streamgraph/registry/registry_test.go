package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBlock struct {
	name  string
	level int
}

func (b *stubBlock) Name() string                    { return b.name }
func (b *stubBlock) Inputs() []streamgraph.PortSpec  { return nil }
func (b *stubBlock) Outputs() []streamgraph.PortSpec { return nil }
func (b *stubBlock) Process(*streamgraph.IO) streamgraph.ProcessResult {
	return streamgraph.ProcessResult{}
}

func stubFactory(name string, params config.Config) (streamgraph.Block, error) {
	level, err := config.AsInt(params.Any("level", 1))
	if err != nil {
		return nil, err
	}
	return &stubBlock{name: name, level: level}, nil
}

func TestNew(t *testing.T) {
	r := New()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Types())
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", stubFactory))

	f, ok := r.Get("stub")
	assert.True(t, ok)
	assert.NotNil(t, f)
	assert.True(t, r.Has("stub"))

	f, ok = r.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, f)
}

func TestRegister_Errors(t *testing.T) {
	r := New()
	require.NoError(t, r.Register("stub", stubFactory))

	err := r.Register("stub", stubFactory)
	assert.ErrorIs(t, err, ErrDuplicateType)

	assert.Error(t, r.Register("", stubFactory))
	assert.Error(t, r.Register("nil", nil))
	assert.Equal(t, 1, r.Len())
}

func TestMustRegister_Panics(t *testing.T) {
	r := New()
	r.MustRegister("stub", stubFactory)
	assert.Panics(t, func() {
		r.MustRegister("stub", stubFactory)
	})
}

func TestUnregister(t *testing.T) {
	r := New()
	r.MustRegister("stub", stubFactory)

	r.Unregister("stub")
	r.Unregister("never-registered")

	assert.False(t, r.Has("stub"))
	assert.Equal(t, 0, r.Len())
}

func TestTypes_Sorted(t *testing.T) {
	r := New()
	for _, typ := range []string{"throttle", "null_sink", "vector_source", "m17_coder"} {
		r.MustRegister(typ, stubFactory)
	}
	assert.Equal(t, []string{"m17_coder", "null_sink", "throttle", "vector_source"}, r.Types())
}

func TestBuild(t *testing.T) {
	r := New()
	r.MustRegister("stub", stubFactory)

	t.Run("with params", func(t *testing.T) {
		b, err := r.Build("stub", "first", map[string]any{"level": 3.0})
		require.NoError(t, err)
		assert.Equal(t, "first", b.Name())
		assert.Equal(t, 3, b.(*stubBlock).level)
	})

	t.Run("nil params", func(t *testing.T) {
		b, err := r.Build("stub", "second", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, b.(*stubBlock).level)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := r.Build("nope", "x", nil)
		assert.ErrorIs(t, err, ErrUnknownType)
	})

	t.Run("factory error is wrapped", func(t *testing.T) {
		_, err := r.Build("stub", "bad", map[string]any{"level": "high"})
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrConversion)
		assert.Contains(t, err.Error(), `"bad"`)
	})

	t.Run("nil block", func(t *testing.T) {
		r.MustRegister("nil", func(string, config.Config) (streamgraph.Block, error) { return nil, nil })
		_, err := r.Build("nil", "x", nil)
		assert.Error(t, err)
	})
}

func TestBuild_FactoryMayUseRegistry(t *testing.T) {
	r := New()
	r.MustRegister("stub", stubFactory)
	r.MustRegister("alias", func(name string, params config.Config) (streamgraph.Block, error) {
		return r.Build("stub", name, params.Raw())
	})

	b, err := r.Build("alias", "aliased", nil)
	require.NoError(t, err)
	assert.Equal(t, "aliased", b.Name())
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	r.MustRegister("stub", stubFactory)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := r.Build("stub", "b", nil); err != nil {
				errs <- err
			}
		}()
		go func(i int) {
			defer wg.Done()
			err := r.Register("extra"+string(rune('A'+i%26))+string(rune('a'+i/26)), stubFactory)
			if err != nil && !errors.Is(err, ErrDuplicateType) {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, 51, r.Len())
}

type tunableStub struct {
	applied []string
}

func (s *tunableStub) SetParameter(name string, _ any) error {
	if name == "bad" {
		return streamgraph.ErrUnknownParameter
	}
	s.applied = append(s.applied, name)
	return nil
}

func (s *tunableStub) Parameters() map[string]any { return nil }

func TestConfigure(t *testing.T) {
	params := config.New(map[string]any{"rate": 1, "alpha": 2, "vector": 3})

	t.Run("applies in key order", func(t *testing.T) {
		s := &tunableStub{}
		require.NoError(t, Configure(s, params, "vector"))
		assert.Equal(t, []string{"alpha", "rate"}, s.applied)
	})

	t.Run("stops at first rejection", func(t *testing.T) {
		s := &tunableStub{}
		err := Configure(s, config.New(map[string]any{"a": 1, "bad": 2, "c": 3}))
		assert.ErrorIs(t, err, streamgraph.ErrUnknownParameter)
		assert.Equal(t, []string{"a"}, s.applied)
	})
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(config.New(map[string]any{"c": 1, "a": 1, "b": 1})))
	assert.Empty(t, SortedKeys(config.New(nil)))
}
