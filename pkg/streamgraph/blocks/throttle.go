package blocks

import (
	"math"
	"time"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
	"golang.org/x/time/rate"
)

// DefaultMaxBurst bounds how much a throttle passes in one call.
const DefaultMaxBurst = 20 * time.Millisecond

// DefaultMaxLag is how far behind the wall clock a throttle may fall and
// still make the samples up.
const DefaultMaxLag = time.Second

// maxBurstSamples caps the bucket size for very high rates.
const maxBurstSamples = math.MaxInt32

// Throttle passes samples through at a fixed average rate.
//
// A token bucket refills at rate tokens per second of wall-clock time and
// one token lets one sample through. The bucket starts empty when the
// throttle starts, so the tokens it holds are rate*elapsed minus the
// samples already passed: the deficit. A scheduler stall leaves a deficit
// that later calls repay, at most ceil(rate*max_burst) samples per call,
// until output is back on the wall-clock schedule. The bucket holds
// ceil(rate*max_lag) tokens; a deficit beyond that is forgiven.
//
// Output up to any instant t after start never exceeds rate*t. A window of
// length T that starts without a deficit carries at most
// rate*T + rate*max_burst samples.
type Throttle struct {
	name     string
	rate     float64
	maxBurst time.Duration
	maxLag   time.Duration
	now      func() time.Time

	limiter *rate.Limiter
	buf     []byte
}

// ThrottleOption configures a Throttle.
type ThrottleOption func(*Throttle)

// WithClock replaces the wall clock. Tests use it to drive the throttle
// with a fake clock.
func WithClock(now func() time.Time) ThrottleOption {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}

// WithMaxBurst sets the catch-up window. Non-positive values are ignored.
// Default: 20ms
func WithMaxBurst(d time.Duration) ThrottleOption {
	return func(t *Throttle) {
		if d > 0 {
			t.maxBurst = d
		}
	}
}

// WithMaxLag sets how much lag is made up. Non-positive values are
// ignored. Default: 1s
func WithMaxLag(d time.Duration) ThrottleOption {
	return func(t *Throttle) {
		if d > 0 {
			t.maxLag = d
		}
	}
}

// NewThrottle creates a throttle passing samplesPerSecond samples per
// second. The rate must be positive and finite.
func NewThrottle(name string, samplesPerSecond float64, opts ...ThrottleOption) (*Throttle, error) {
	t := &Throttle{
		name:     name,
		maxBurst: DefaultMaxBurst,
		maxLag:   DefaultMaxLag,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if err := t.SetParameter("rate", samplesPerSecond); err != nil {
		return nil, err
	}
	return t, nil
}

// Name implements streamgraph.Block.
func (t *Throttle) Name() string { return t.name }

// Inputs implements streamgraph.Block.
func (t *Throttle) Inputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Outputs implements streamgraph.Block.
func (t *Throttle) Outputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Rate returns the current rate in samples per second.
func (t *Throttle) Rate() float64 { return t.rate }

// Start creates an empty bucket; pacing starts now.
func (t *Throttle) Start() error {
	now := t.now()
	bucket := t.bucket()
	t.limiter = rate.NewLimiter(rate.Limit(t.rate), bucket)
	t.limiter.AllowN(now, bucket)
	if n := min(t.burst(), streamgraph.MaxBatch); cap(t.buf) < n {
		t.buf = make([]byte, n)
	}
	return nil
}

// Stop drops the bucket.
func (t *Throttle) Stop() error {
	t.limiter = nil
	return nil
}

// Process implements streamgraph.Block.
func (t *Throttle) Process(io *streamgraph.IO) streamgraph.ProcessResult {
	if t.limiter == nil {
		return streamgraph.Progress(0, 0)
	}

	now := t.now()
	tokens := t.limiter.TokensAt(now)
	if tokens < 1 {
		return streamgraph.Progress(0, 0)
	}

	n := min(int(tokens), t.burst(), io.In[0].Available(), io.Out[0].Writable(), streamgraph.MaxBatch)
	if n <= 0 {
		return streamgraph.Progress(0, 0)
	}
	if !t.limiter.AllowN(now, n) {
		return streamgraph.Progress(0, 0)
	}

	if len(t.buf) < n {
		t.buf = make([]byte, n)
	}
	read := io.In[0].Read(t.buf[:n])
	written := io.Out[0].Write(t.buf[:read])
	return streamgraph.Progress(read, written)
}

// SetParameter implements streamgraph.Tunable.
//
// "rate" (samples per second, > 0), "max_burst" and "max_lag" (durations,
// > 0) apply from the instant of the call. Tokens earned at the old rate
// are kept; buffered samples are untouched.
func (t *Throttle) SetParameter(name string, value any) error {
	switch name {
	case "rate":
		v, err := config.AsFloat(value)
		if err != nil {
			return invalid(t.name, name, value, err)
		}
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return invalid(t.name, name, value, outOfRange("rate must be positive and finite, got %v", v))
		}
		t.rate = v
	case "max_burst":
		v, err := config.AsDuration(value)
		if err != nil {
			return invalid(t.name, name, value, err)
		}
		if v <= 0 {
			return invalid(t.name, name, value, outOfRange("max_burst must be positive, got %v", v))
		}
		t.maxBurst = v
	case "max_lag":
		v, err := config.AsDuration(value)
		if err != nil {
			return invalid(t.name, name, value, err)
		}
		if v <= 0 {
			return invalid(t.name, name, value, outOfRange("max_lag must be positive, got %v", v))
		}
		t.maxLag = v
	default:
		return invalid(t.name, name, value, streamgraph.ErrUnknownParameter)
	}

	if t.limiter != nil {
		now := t.now()
		t.limiter.SetLimitAt(now, rate.Limit(t.rate))
		t.limiter.SetBurstAt(now, t.bucket())
	}
	return nil
}

// Parameters implements streamgraph.Tunable.
func (t *Throttle) Parameters() map[string]any {
	return map[string]any{
		"rate":      t.rate,
		"max_burst": t.maxBurst.String(),
		"max_lag":   t.maxLag.String(),
	}
}

// burst is the per-call cap: ceil(rate * max_burst), at least 1.
func (t *Throttle) burst() int {
	return samples(t.rate, t.maxBurst)
}

// bucket is the bucket size: ceil(rate * max_lag), at least burst.
func (t *Throttle) bucket() int {
	return max(samples(t.rate, t.maxLag), t.burst())
}

func samples(rate float64, d time.Duration) int {
	b := math.Ceil(rate * d.Seconds())
	switch {
	case b < 1:
		return 1
	case b > maxBurstSamples:
		return maxBurstSamples
	default:
		return int(b)
	}
}
