package scene

import (
	"fmt"
	"math"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

// Hit is the result of resolving a gaze ray against the active regions.
type Hit struct {
	AoiID     string
	SlotIndex int
	Label     string
	Point     models.Vec3
	Distance  float64
	ViewportX float64 // grid-local coordinates, 0..1 across the full grid
	ViewportY float64
}

// Resolver maps a gaze ray to an area of interest. Absence means the ray
// does not currently intersect any tracked region.
type Resolver interface {
	Resolve(ray models.Ray) (Hit, bool)
}

// GridResolver resolves rays against the cells of a planar grid layout.
// Only cells in the currently active set can be hit; the phase controller
// activates and clears cells as stimuli appear and disappear.
type GridResolver struct {
	layout *Layout
	normal models.Vec3
	right  models.Vec3
	up     models.Vec3
	active map[int]string // slot index -> color label
}

// NewGridResolver builds a resolver for the given layout. The basis vectors
// are normalized once here so Resolve stays cheap.
func NewGridResolver(layout *Layout) (*GridResolver, error) {
	if layout == nil {
		return nil, fmt.Errorf("nil layout")
	}
	if err := layout.validate(); err != nil {
		return nil, err
	}
	return &GridResolver{
		layout: layout,
		normal: layout.Normal.Normalized(),
		right:  layout.Right.Normalized(),
		up:     layout.Up.Normalized(),
		active: make(map[int]string),
	}, nil
}

// AoiID returns the stable identifier of a grid cell.
func AoiID(slot int) string {
	return fmt.Sprintf("cell_%02d", slot)
}

// SetActive replaces the active cell set with the occupied cells of a trial
// layout. Empty strings mark unoccupied cells and are not activated.
func (g *GridResolver) SetActive(cells []string) {
	g.active = make(map[int]string, len(cells))
	for slot, label := range cells {
		if label != "" {
			g.active[slot] = label
		}
	}
}

// Add activates one cell, as when the test-phase distractor appears.
func (g *GridResolver) Add(slot int, label string) {
	g.active[slot] = label
}

// Remove deactivates one cell, as when the change target disappears.
func (g *GridResolver) Remove(slot int) {
	delete(g.active, slot)
}

// Clear deactivates every cell.
func (g *GridResolver) Clear() {
	g.active = make(map[int]string)
}

// ActiveCount reports how many cells are currently active.
func (g *GridResolver) ActiveCount() int {
	return len(g.active)
}

// Resolve intersects the ray with the grid plane and maps the hit point to
// a cell. Returns false when the ray is parallel to the plane, points away
// from it, lands outside the raster, or lands on an inactive cell.
func (g *GridResolver) Resolve(ray models.Ray) (Hit, bool) {
	denom := ray.Direction.Dot(g.normal)
	if math.Abs(denom) < 1e-9 {
		return Hit{}, false
	}

	t := g.layout.Origin.Sub(ray.Origin).Dot(g.normal) / denom
	if t <= 0 {
		return Hit{}, false // plane is behind the viewer
	}

	point := ray.Origin.Add(ray.Direction.Scale(t))
	local := point.Sub(g.layout.Origin)

	u := local.Dot(g.right)
	v := -local.Dot(g.up) // rows grow downward from the top-left origin

	width := float64(g.layout.Cols) * g.layout.CellSize
	height := float64(g.layout.Rows) * g.layout.CellSize
	if u < 0 || u >= width || v < 0 || v >= height {
		return Hit{}, false
	}

	col := int(u / g.layout.CellSize)
	row := int(v / g.layout.CellSize)
	slot := row*g.layout.Cols + col

	label, ok := g.active[slot]
	if !ok {
		return Hit{}, false
	}

	return Hit{
		AoiID:     AoiID(slot),
		SlotIndex: slot,
		Label:     label,
		Point:     point,
		Distance:  t,
		ViewportX: u / width,
		ViewportY: v / height,
	}, true
}
