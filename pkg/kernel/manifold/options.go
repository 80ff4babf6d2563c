package manifold

// DefaultSegments is the number of circular segments used for spheres,
// cylinders and cones.
const DefaultSegments = 48

type settings struct {
	segments int
}

// Option configures a Manifold kernel.
type Option func(*settings)

// WithSegments sets the circular segment count. Values below 3 are raised
// to 3.
func WithSegments(n int) Option {
	return func(s *settings) {
		s.segments = max(n, 3)
	}
}

func newSettings(opts []Option) settings {
	s := settings{segments: DefaultSegments}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
