package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

// parseFlag accepts the boolean spellings that show up in hand-edited plan
// files.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized flag value %q", s)
}

// parseCellIndex parses a grid cell index. When allowNone is set, "none"
// (or an empty field) maps to models.NoTarget.
func parseCellIndex(s string, allowNone bool) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if allowNone && (s == "" || s == "none") {
		return models.NoTarget, nil
	}

	idx, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	if idx < 0 || idx >= models.GridCells {
		return 0, fmt.Errorf("cell index %d out of range [0,%d)", idx, models.GridCells)
	}
	return idx, nil
}

// parseRetention parses the per-trial retention interval in seconds.
func parseRetention(s string) (float64, error) {
	ret, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("retention %v must be positive", ret)
	}
	return ret, nil
}
