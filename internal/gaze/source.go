package gaze

import "github.com/Marzie79/vr-visual-search/internal/models"

// RaySource produces one gaze ray per query, together with a flag that is
// true only for real sensor data. Every consumer (recorder, controller)
// depends on this capability, never on a concrete device.
type RaySource interface {
	TryGetRay() (models.Ray, bool)
}

// FuncSource adapts a plain callback — a device poll, a simulated mouse
// ray, a scripted test stream — into a RaySource.
type FuncSource func() (models.Ray, bool)

func (f FuncSource) TryGetRay() (models.Ray, bool) {
	return f()
}

// NeutralRay is the synthesized forward-facing ray used when no real gaze
// data is available for a tick.
func NeutralRay() models.Ray {
	return models.Ray{
		Origin:    models.Vec3{X: 0, Y: 0, Z: 0},
		Direction: models.Vec3{X: 0, Y: 0, Z: 1},
	}
}

// fallbackSource wraps a primary source so that a tick can never be lost:
// a nil primary or a degenerate ray yields the neutral forward ray, flagged
// as non-authoritative.
type fallbackSource struct {
	primary RaySource
}

// WithFallback returns a source that always yields a usable ray. The
// returned direction is unit-length.
func WithFallback(primary RaySource) RaySource {
	return &fallbackSource{primary: primary}
}

func (s *fallbackSource) TryGetRay() (models.Ray, bool) {
	if s.primary == nil {
		return NeutralRay(), false
	}

	ray, real := s.primary.TryGetRay()
	if ray.Direction.Norm() == 0 {
		return NeutralRay(), false
	}

	ray.Direction = ray.Direction.Normalized()
	return ray, real
}
