package scene

import (
	"encoding/json"
	"math"
	"sort"
)

// Vec3 is a 3-component vector (position, rotation, scale, color).
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Lerp blends v toward o by f.
func (v Vec3) Lerp(o Vec3, f float64) Vec3 {
	return Vec3{
		v[0] + (o[0]-v[0])*f,
		v[1] + (o[1]-v[1])*f,
		v[2] + (o[2]-v[2])*f,
	}
}

// Degrees converts a rotation in radians to degrees.
func (v Vec3) Degrees() Vec3 {
	return Vec3{v[0] * 180 / math.Pi, v[1] * 180 / math.Pi, v[2] * 180 / math.Pi}
}

// Radians converts a rotation in degrees to radians.
func (v Vec3) Radians() Vec3 {
	return Vec3{v[0] * math.Pi / 180, v[1] * math.Pi / 180, v[2] * math.Pi / 180}
}

// TimeSamples maps a time code to a value. Storage order is irrelevant;
// Times returns the keys sorted.
type TimeSamples[T any] map[float64]T

// Times returns the sample times in ascending order.
func (ts TimeSamples[T]) Times() []float64 {
	times := make([]float64, 0, len(ts))
	for t := range ts {
		times = append(times, t)
	}
	sort.Float64s(times)
	return times
}

// Sample returns the value at time t. Before the first key the first value
// is held, after the last key the last value is held, and between two keys
// the values are blended linearly. ok is false when there are no samples.
func (ts TimeSamples[T]) Sample(t float64) (v T, ok bool) {
	if len(ts) == 0 {
		return v, false
	}
	times := ts.Times()
	if t <= times[0] {
		return ts[times[0]], true
	}
	last := times[len(times)-1]
	if t >= last {
		return ts[last], true
	}
	i := sort.SearchFloat64s(times, t)
	if times[i] == t {
		return ts[t], true
	}
	t0, t1 := times[i-1], times[i]
	return lerp(ts[t0], ts[t1], (t-t0)/(t1-t0)), true
}

// lerp blends the two supported sample value types. Other types hold a.
func lerp[T any](a, b T, f float64) T {
	switch av := any(a).(type) {
	case float64:
		bv := any(b).(float64)
		return any(av + (bv-av)*f).(T)
	case Vec3:
		return any(av.Lerp(any(b).(Vec3), f)).(T)
	}
	return a
}

type timeSample[T any] struct {
	Time  float64 `json:"time"`
	Value T       `json:"value"`
}

// MarshalJSON writes samples as a time-sorted array since JSON object keys
// cannot be numbers.
func (ts TimeSamples[T]) MarshalJSON() ([]byte, error) {
	if ts == nil {
		return []byte("null"), nil
	}
	out := make([]timeSample[T], 0, len(ts))
	for _, t := range ts.Times() {
		out = append(out, timeSample[T]{Time: t, Value: ts[t]})
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the array form written by MarshalJSON.
func (ts *TimeSamples[T]) UnmarshalJSON(data []byte) error {
	var in []timeSample[T]
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in == nil {
		*ts = nil
		return nil
	}
	m := make(TimeSamples[T], len(in))
	for _, s := range in {
		m[s.Time] = s.Value
	}
	*ts = m
	return nil
}

// Attribute holds either a static value, time samples, or both. When time
// samples are present they take precedence.
type Attribute[T any] struct {
	Value   *T             `json:"value,omitempty"`
	Samples TimeSamples[T] `json:"samples,omitempty"`
}

// Static returns an attribute holding a single value.
func Static[T any](v T) Attribute[T] {
	return Attribute[T]{Value: &v}
}

// Animated returns an attribute holding the given samples.
func Animated[T any](samples TimeSamples[T]) Attribute[T] {
	return Attribute[T]{Samples: samples}
}

// IsSet reports whether any value was authored.
func (a Attribute[T]) IsSet() bool {
	return a.Value != nil || len(a.Samples) > 0
}

// IsAnimated reports whether the attribute is driven by time samples.
func (a Attribute[T]) IsAnimated() bool {
	return len(a.Samples) > 0
}

// At resolves the attribute at time t.
func (a Attribute[T]) At(t float64) (T, bool) {
	if len(a.Samples) > 0 {
		return a.Samples.Sample(t)
	}
	if a.Value != nil {
		return *a.Value, true
	}
	var zero T
	return zero, false
}

// Or resolves the attribute at time t, falling back to def when unset.
func (a Attribute[T]) Or(t float64, def T) T {
	if v, ok := a.At(t); ok {
		return v
	}
	return def
}
