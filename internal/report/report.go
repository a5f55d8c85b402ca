package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"
)

// Generate renders the post-session HTML report from the sequences and
// trials streams: total gaze dwell per AOI per phase, and reaction time
// across trials. Visualization only — nothing here interprets the data.
func Generate(sequencesPath, trialsPath, outPath string, log *zap.Logger) error {
	dwell, err := loadDwell(sequencesPath)
	if err != nil {
		return fmt.Errorf("failed to load sequence rows: %w", err)
	}

	reactions, err := loadReactions(trialsPath)
	if err != nil {
		return fmt.Errorf("failed to load trial rows: %w", err)
	}

	page := components.NewPage()
	page.AddCharts(
		generateDwellChart(dwell),
		generateReactionChart(reactions),
	)

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	log.Info("Session report written", zap.String("file", outPath))
	return nil
}

// dwellTable maps phase -> AOI id -> total dwell ms.
type dwellTable map[string]map[string]int64

type trialReaction struct {
	TrialID    string
	ReactionMS float64
}

// loadDwell sums the per-segment durations of every sequence row. The
// durations field looks like "cell_03:120;cell_07:340".
func loadDwell(path string) (dwellTable, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	dwell := make(dwellTable)
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		phase := row[1]
		if dwell[phase] == nil {
			dwell[phase] = make(map[string]int64)
		}

		for _, entry := range strings.Split(row[3], ";") {
			aoi, ms, ok := strings.Cut(entry, ":")
			if !ok {
				continue
			}
			d, err := strconv.ParseInt(ms, 10, 64)
			if err != nil {
				continue
			}
			dwell[phase][aoi] += d
		}
	}
	return dwell, nil
}

func loadReactions(path string) ([]trialReaction, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	reactions := make([]trialReaction, 0, len(rows))
	for _, row := range rows {
		if len(row) < 8 {
			continue
		}
		rt, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			continue
		}
		reactions = append(reactions, trialReaction{TrialID: row[0], ReactionMS: rt})
	}
	return reactions, nil
}

// readCSV returns the data rows of a sink file, header stripped.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func generateDwellChart(dwell dwellTable) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Gaze Dwell per AOI",
			Subtitle: "Total segment duration by phase (ms)",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	// Stable AOI order across phases.
	aoiSet := make(map[string]bool)
	for _, byAoi := range dwell {
		for aoi := range byAoi {
			aoiSet[aoi] = true
		}
	}
	aois := make([]string, 0, len(aoiSet))
	for aoi := range aoiSet {
		aois = append(aois, aoi)
	}
	sort.Strings(aois)

	phases := make([]string, 0, len(dwell))
	for phase := range dwell {
		phases = append(phases, phase)
	}
	sort.Strings(phases)

	bar.SetXAxis(aois)
	for _, phase := range phases {
		items := make([]opts.BarData, len(aois))
		for i, aoi := range aois {
			items[i] = opts.BarData{Value: dwell[phase][aoi]}
		}
		bar.AddSeries(phase, items)
	}
	return bar
}

func generateReactionChart(reactions []trialReaction) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Reaction Time Over Trials",
			Subtitle: "ms from TEST onset to response",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	trials := make([]string, len(reactions))
	items := make([]opts.LineData, len(reactions))
	for i, r := range reactions {
		trials[i] = r.TrialID
		items[i] = opts.LineData{Value: r.ReactionMS}
	}

	line.SetXAxis(trials)
	line.AddSeries("Reaction Time", items).
		SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}
