package plan

import (
	"encoding/csv"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

// requiredFields is the minimum number of columns a plan row must carry:
// trial id, change flag, missing index, added index, added color, and one
// color field per grid cell. The optional trailing retention column is on
// top of these.
const requiredFields = 5 + models.GridCells

// defaultRetentionSecs is used when a row has no retention column.
const defaultRetentionSecs = 4.0

// Column offsets within a plan row.
const (
	colTrialID = iota
	colChange
	colMissing
	colAddedIndex
	colAddedColor
	colFirstCell
)

// Plan is the ordered, validated trial list for one session. Loaded once,
// immutable afterwards; trials run in exactly this order.
type Plan struct {
	Trials []models.TrialSpec
}

// Load reads and validates the trial plan CSV. A header row is required.
// Individual malformed rows are skipped with a warning; an empty or fully
// unparsable plan is an error, because the session needs at least one
// usable trial to proceed.
func Load(path string, log *zap.Logger) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trial plan: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // row length is validated per row, not by the reader
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trial plan: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("trial plan %s has no data rows", path)
	}

	plan := &Plan{}
	seen := make(map[string]bool)

	// rows[0] is the header.
	for i, row := range rows[1:] {
		line := i + 2 // 1-based file line, after the header

		spec, err := parseRow(row)
		if err != nil {
			log.Warn("Skipping malformed trial plan row",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}

		if seen[spec.ID] {
			return nil, fmt.Errorf("duplicate trial id %q at line %d", spec.ID, line)
		}
		seen[spec.ID] = true

		plan.Trials = append(plan.Trials, spec)
	}

	if len(plan.Trials) == 0 {
		return nil, fmt.Errorf("trial plan %s contains no valid rows", path)
	}

	log.Info("Trial plan loaded",
		zap.String("file", path),
		zap.Int("trials", len(plan.Trials)),
		zap.Int("skipped", len(rows)-1-len(plan.Trials)))

	return plan, nil
}

// parseRow turns one CSV record into a TrialSpec, or reports why it can't.
func parseRow(row []string) (models.TrialSpec, error) {
	var spec models.TrialSpec

	if len(row) < requiredFields {
		return spec, fmt.Errorf("expected at least %d fields, got %d", requiredFields, len(row))
	}

	spec.ID = row[colTrialID]
	if spec.ID == "" {
		return spec, fmt.Errorf("empty trial id")
	}

	change, err := parseFlag(row[colChange])
	if err != nil {
		return spec, fmt.Errorf("change flag: %w", err)
	}
	spec.Change = change

	missing, err := parseCellIndex(row[colMissing], true)
	if err != nil {
		return spec, fmt.Errorf("missing index: %w", err)
	}
	spec.MissingIndex = missing

	// A change trial must name the cell that disappears; a no-change trial
	// must not.
	if spec.Change && spec.MissingIndex == models.NoTarget {
		return spec, fmt.Errorf("change trial without a missing index")
	}
	if !spec.Change && spec.MissingIndex != models.NoTarget {
		return spec, fmt.Errorf("no-change trial names missing index %d", spec.MissingIndex)
	}

	added, err := parseCellIndex(row[colAddedIndex], false)
	if err != nil {
		return spec, fmt.Errorf("added index: %w", err)
	}
	spec.AddedIndex = added

	spec.AddedColor = row[colAddedColor]
	if spec.AddedColor == "" {
		return spec, fmt.Errorf("empty added color")
	}

	spec.Cells = make([]string, models.GridCells)
	copy(spec.Cells, row[colFirstCell:colFirstCell+models.GridCells])

	if spec.Change && spec.Cells[spec.MissingIndex] == "" {
		return spec, fmt.Errorf("missing index %d points at an empty cell", spec.MissingIndex)
	}
	if spec.Cells[spec.AddedIndex] != "" {
		return spec, fmt.Errorf("added index %d points at an occupied cell", spec.AddedIndex)
	}

	spec.RetentionSecs = defaultRetentionSecs
	if len(row) > requiredFields && row[requiredFields] != "" {
		ret, err := parseRetention(row[requiredFields])
		if err != nil {
			return spec, fmt.Errorf("retention: %w", err)
		}
		spec.RetentionSecs = ret
	}

	if spec.SetSize() == 0 {
		return spec, fmt.Errorf("trial has no occupied cells")
	}

	return spec, nil
}
