package gaze

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

func TestWithFallback_NilPrimary(t *testing.T) {
	src := WithFallback(nil)

	ray, real := src.TryGetRay()
	assert.False(t, real)
	assert.Equal(t, NeutralRay(), ray)
}

func TestWithFallback_DegenerateRay(t *testing.T) {
	src := WithFallback(FuncSource(func() (models.Ray, bool) {
		return models.Ray{}, true // zero direction: unusable
	}))

	ray, real := src.TryGetRay()
	assert.False(t, real)
	assert.Equal(t, NeutralRay(), ray)
}

func TestWithFallback_PassesThroughAndNormalizes(t *testing.T) {
	src := WithFallback(FuncSource(func() (models.Ray, bool) {
		return models.Ray{
			Origin:    models.Vec3{X: 0, Y: 1.6, Z: 0},
			Direction: models.Vec3{X: 0, Y: 0, Z: 2},
		}, true
	}))

	ray, real := src.TryGetRay()
	assert.True(t, real)
	assert.Equal(t, models.Vec3{X: 0, Y: 1.6, Z: 0}, ray.Origin)
	assert.InDelta(t, 1.0, ray.Direction.Norm(), 1e-12)
	assert.Equal(t, models.Vec3{X: 0, Y: 0, Z: 1}, ray.Direction)
}
