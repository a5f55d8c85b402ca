package scene

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

// Layout describes the planar grid the stimuli are placed on: a corner
// origin, the plane basis, and the cell raster. It stands in for the scene
// geometry the renderer owns; the resolver only needs this much to turn a
// ray into a cell.
type Layout struct {
	Origin   models.Vec3 `yaml:"origin"` // top-left corner of the grid plane
	Normal   models.Vec3 `yaml:"normal"`
	Right    models.Vec3 `yaml:"right"` // direction of increasing column
	Up       models.Vec3 `yaml:"up"`    // direction of decreasing row
	Rows     int         `yaml:"rows"`
	Cols     int         `yaml:"cols"`
	CellSize float64     `yaml:"cell_size"` // meters per cell edge
}

// LoadLayout reads and parses the grid layout file. A layout that cannot
// address every trial cell is a startup error, not something to limp past.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout YAML: %w", err)
	}

	if err := layout.validate(); err != nil {
		return nil, fmt.Errorf("invalid layout %s: %w", path, err)
	}
	return &layout, nil
}

func (l *Layout) validate() error {
	if l.Rows <= 0 || l.Cols <= 0 {
		return fmt.Errorf("grid is %dx%d", l.Rows, l.Cols)
	}
	if l.Rows*l.Cols != models.GridCells {
		return fmt.Errorf("grid has %d cells, trials use %d", l.Rows*l.Cols, models.GridCells)
	}
	if l.CellSize <= 0 {
		return fmt.Errorf("cell size %v must be positive", l.CellSize)
	}
	if l.Normal.Norm() == 0 || l.Right.Norm() == 0 || l.Up.Norm() == 0 {
		return fmt.Errorf("degenerate plane basis")
	}
	return nil
}
