package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

// testLayout is a 4x4 grid on the z=2 plane, top-left corner at (-0.4, 0.8),
// 0.2m cells, facing the origin.
func testLayout() *Layout {
	return &Layout{
		Origin:   models.Vec3{X: -0.4, Y: 0.8, Z: 2},
		Normal:   models.Vec3{X: 0, Y: 0, Z: -1},
		Right:    models.Vec3{X: 1, Y: 0, Z: 0},
		Up:       models.Vec3{X: 0, Y: 1, Z: 0},
		Rows:     4,
		Cols:     4,
		CellSize: 0.2,
	}
}

// rayAt aims from the origin at a point on the grid plane.
func rayAt(x, y float64) models.Ray {
	dir := models.Vec3{X: x, Y: y, Z: 2}.Normalized()
	return models.Ray{Origin: models.Vec3{}, Direction: dir}
}

func newTestResolver(t *testing.T) *GridResolver {
	t.Helper()
	r, err := NewGridResolver(testLayout())
	require.NoError(t, err)
	return r
}

func TestGridResolver_HitActiveCell(t *testing.T) {
	r := newTestResolver(t)

	cells := make([]string, models.GridCells)
	cells[0] = "red" // top-left cell: x in [-0.4,-0.2), y in (0.6,0.8]
	r.SetActive(cells)

	hit, ok := r.Resolve(rayAt(-0.3, 0.7))
	require.True(t, ok)
	assert.Equal(t, "cell_00", hit.AoiID)
	assert.Equal(t, 0, hit.SlotIndex)
	assert.Equal(t, "red", hit.Label)
	assert.Greater(t, hit.Distance, 0.0)
	assert.InDelta(t, 2.0, hit.Point.Z, 1e-9)
	assert.GreaterOrEqual(t, hit.ViewportX, 0.0)
	assert.Less(t, hit.ViewportX, 1.0)
}

func TestGridResolver_SlotIndexing(t *testing.T) {
	r := newTestResolver(t)

	cells := make([]string, models.GridCells)
	for i := range cells {
		cells[i] = "x"
	}
	r.SetActive(cells)

	// Row 1, column 2: slot 6. Center of that cell.
	hit, ok := r.Resolve(rayAt(-0.4+2.5*0.2, 0.8-1.5*0.2))
	require.True(t, ok)
	assert.Equal(t, 6, hit.SlotIndex)
	assert.Equal(t, "cell_06", hit.AoiID)
}

func TestGridResolver_InactiveCellMisses(t *testing.T) {
	r := newTestResolver(t)

	cells := make([]string, models.GridCells)
	cells[5] = "green"
	r.SetActive(cells)

	// The ray lands in cell 0, which holds no item this trial.
	_, ok := r.Resolve(rayAt(-0.3, 0.7))
	assert.False(t, ok)
}

func TestGridResolver_OutsideRasterMisses(t *testing.T) {
	r := newTestResolver(t)

	cells := make([]string, models.GridCells)
	for i := range cells {
		cells[i] = "x"
	}
	r.SetActive(cells)

	_, ok := r.Resolve(rayAt(-0.5, 0.7)) // left of the grid
	assert.False(t, ok)
	_, ok = r.Resolve(rayAt(-0.3, 0.9)) // above the grid
	assert.False(t, ok)
}

func TestGridResolver_ParallelAndBehindMiss(t *testing.T) {
	r := newTestResolver(t)
	cells := make([]string, models.GridCells)
	cells[0] = "x"
	r.SetActive(cells)

	// Parallel to the plane.
	_, ok := r.Resolve(models.Ray{Direction: models.Vec3{X: 1}})
	assert.False(t, ok)

	// Plane behind the viewer.
	_, ok = r.Resolve(models.Ray{Direction: models.Vec3{Z: -1}})
	assert.False(t, ok)
}

func TestGridResolver_AddRemoveClear(t *testing.T) {
	r := newTestResolver(t)
	ray := rayAt(-0.3, 0.7) // cell 0

	r.SetActive(make([]string, models.GridCells))
	_, ok := r.Resolve(ray)
	assert.False(t, ok)

	r.Add(0, "orange")
	hit, ok := r.Resolve(ray)
	require.True(t, ok)
	assert.Equal(t, "orange", hit.Label)

	r.Remove(0)
	_, ok = r.Resolve(ray)
	assert.False(t, ok)

	r.Add(0, "orange")
	r.Clear()
	_, ok = r.Resolve(ray)
	assert.False(t, ok)
	assert.Equal(t, 0, r.ActiveCount())
}

func TestLoadLayout_Validation(t *testing.T) {
	l := testLayout()
	require.NoError(t, l.validate())

	bad := testLayout()
	bad.Rows = 3 // 12 cells: cannot address a 16-cell trial
	assert.Error(t, bad.validate())

	bad = testLayout()
	bad.CellSize = 0
	assert.Error(t, bad.validate())

	bad = testLayout()
	bad.Normal = models.Vec3{}
	assert.Error(t, bad.validate())
}

func TestNewGridResolver_NilLayout(t *testing.T) {
	_, err := NewGridResolver(nil)
	assert.Error(t, err)
}
