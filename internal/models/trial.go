package models

// GridCells is the fixed number of layout cells per trial. Each cell either
// holds a colored item for the trial or is empty.
const GridCells = 16

// NoTarget marks a trial with no removed item (change = false).
const NoTarget = -1

// TrialSpec is one row of the trial plan: everything needed to present a
// single trial. Parsed once at load time and never mutated afterwards.
type TrialSpec struct {
	ID             string   `json:"id"`
	Change         bool     `json:"change"`
	MissingIndex   int      `json:"missingIndex"`  // cell removed at TEST, NoTarget when Change is false
	AddedIndex     int      `json:"addedIndex"`    // cell the distractor appears in at TEST
	AddedColor     string   `json:"addedColor"`    // distractor color/label
	RetentionSecs  float64  `json:"retentionSecs"` // per-trial variable blank interval
	Cells          []string `json:"cells"`         // len == GridCells, "" means empty cell
}

// SetSize is the number of occupied cells in the study layout.
func (t *TrialSpec) SetSize() int {
	n := 0
	for _, c := range t.Cells {
		if c != "" {
			n++
		}
	}
	return n
}

// TrialResult is the per-trial outcome row.
type TrialResult struct {
	TrialID    string  `json:"trialId"`
	SetSize    int     `json:"setSize"`
	Retention  float64 `json:"retentionSecs"`
	Change     bool    `json:"change"`
	Target     int     `json:"targetIndex"`
	Response   bool    `json:"response"` // true = participant reported "something missing"
	Correct    bool    `json:"correct"`
	ReactionMS int64   `json:"reactionMs"`
	TimedOut   bool    `json:"timedOut"`
}

// TrialContext is the per-tick trial/phase context. It is written only by
// the phase controller at transition points and read by the sampling path;
// the single-goroutine tick loop guarantees it is never mutated mid-tick.
type TrialContext struct {
	TrialID       string
	Phase         Phase
	SetSize       int
	RetentionSecs float64
}

// IdleContext is the context used outside any trial.
func IdleContext() TrialContext {
	return TrialContext{TrialID: "", Phase: PhaseIdle}
}
