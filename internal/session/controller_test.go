package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Marzie79/vr-visual-search/internal/models"
	"github.com/Marzie79/vr-visual-search/internal/plan"
)

// fakeStage records stage operations in order.
type fakeStage struct {
	ops    []string
	active map[int]string
}

func newFakeStage() *fakeStage {
	return &fakeStage{active: make(map[int]string)}
}

func (f *fakeStage) SetActive(cells []string) {
	f.ops = append(f.ops, "set")
	f.active = make(map[int]string)
	for i, c := range cells {
		if c != "" {
			f.active[i] = c
		}
	}
}

func (f *fakeStage) Add(slot int, label string) {
	f.ops = append(f.ops, "add")
	f.active[slot] = label
}

func (f *fakeStage) Remove(slot int) {
	f.ops = append(f.ops, "remove")
	delete(f.active, slot)
}

func (f *fakeStage) Clear() {
	f.ops = append(f.ops, "clear")
	f.active = make(map[int]string)
}

// fakeRecorder captures flushes, trial rows and events.
type fakeRecorder struct {
	flushes []int64
	trials  []models.TrialResult
	events  []string
}

func (f *fakeRecorder) Flush(nowMS int64) { f.flushes = append(f.flushes, nowMS) }

func (f *fakeRecorder) WriteTrial(r models.TrialResult) { f.trials = append(f.trials, r) }

func (f *fakeRecorder) Event(nowMS int64, trialID, name, value string) {
	f.events = append(f.events, name)
}

func changeTrial(id string) models.TrialSpec {
	cells := make([]string, models.GridCells)
	cells[0] = "red"
	cells[5] = "green"
	cells[9] = "blue"
	return models.TrialSpec{
		ID:            id,
		Change:        true,
		MissingIndex:  5,
		AddedIndex:    3,
		AddedColor:    "orange",
		RetentionSecs: 0.5,
		Cells:         cells,
	}
}

func noChangeTrial(id string) models.TrialSpec {
	t := changeTrial(id)
	t.Change = false
	t.MissingIndex = models.NoTarget
	return t
}

var testTiming = Timing{
	StudyMS:       1000,
	TestDisplayMS: 500,
	MaxResponseMS: 2000,
	InterTrialMS:  100,
}

func newTestController(t *testing.T, trials ...models.TrialSpec) (*Controller, *fakeStage, *fakeRecorder) {
	t.Helper()
	stage := newFakeStage()
	rec := &fakeRecorder{}
	ctrl, err := NewController(&plan.Plan{Trials: trials}, stage, rec, testTiming, zap.NewNop())
	require.NoError(t, err)
	return ctrl, stage, rec
}

func TestController_MissingCollaboratorsAreFatal(t *testing.T) {
	p := &plan.Plan{Trials: []models.TrialSpec{changeTrial("t1")}}

	_, err := NewController(nil, newFakeStage(), &fakeRecorder{}, testTiming, zap.NewNop())
	assert.Error(t, err)

	_, err = NewController(&plan.Plan{}, newFakeStage(), &fakeRecorder{}, testTiming, zap.NewNop())
	assert.Error(t, err)

	_, err = NewController(p, nil, &fakeRecorder{}, testTiming, zap.NewNop())
	assert.Error(t, err)

	_, err = NewController(p, newFakeStage(), nil, testTiming, zap.NewNop())
	assert.Error(t, err)

	_, err = NewController(p, newFakeStage(), &fakeRecorder{}, Timing{}, zap.NewNop())
	assert.Error(t, err)
}

func TestController_PhaseSequence(t *testing.T) {
	ctrl, stage, _ := newTestController(t, changeTrial("t1"))

	ctrl.Start(0)
	assert.Equal(t, models.PhaseIdle, ctrl.Context().Phase)

	ctrl.Tick(50)
	assert.Equal(t, models.PhaseIdle, ctrl.Context().Phase)

	ctrl.Tick(100) // inter-trial wait over
	ctx := ctrl.Context()
	assert.Equal(t, models.PhaseStudy, ctx.Phase)
	assert.Equal(t, "t1", ctx.TrialID)
	assert.Equal(t, 3, ctx.SetSize)
	assert.Len(t, stage.active, 3)

	ctrl.Tick(1099)
	assert.Equal(t, models.PhaseStudy, ctrl.Context().Phase)

	ctrl.Tick(1100) // study over
	assert.Equal(t, models.PhaseRetention, ctrl.Context().Phase)
	assert.Empty(t, stage.active)

	ctrl.Tick(1600) // 500ms retention over
	assert.Equal(t, models.PhaseTest, ctrl.Context().Phase)

	// Change trial at TEST: target removed, distractor added.
	_, hasTarget := stage.active[5]
	assert.False(t, hasTarget)
	assert.Equal(t, "orange", stage.active[3])
}

func TestController_ChangeTrialCorrectResponse(t *testing.T) {
	// A change trial where the participant answers "yes, something is
	// missing" 150ms into the response window.
	ctrl, _, rec := newTestController(t, changeTrial("t1"))

	ctrl.Start(0)
	ctrl.Tick(100)
	ctrl.Tick(1100)
	ctrl.Tick(1600) // TEST starts

	ctrl.Respond(true, 1750)
	ctrl.Tick(1760)

	require.Len(t, rec.trials, 1)
	result := rec.trials[0]
	assert.Equal(t, "t1", result.TrialID)
	assert.True(t, result.Response)
	assert.True(t, result.Correct)
	assert.Equal(t, int64(150), result.ReactionMS)
	assert.False(t, result.TimedOut)
	assert.Contains(t, rec.events, "response")
	assert.Contains(t, rec.events, "item_removed")
	assert.Contains(t, rec.events, "item_added")
}

func TestController_SingleUseResponseLock(t *testing.T) {
	ctrl, _, rec := newTestController(t, noChangeTrial("t1"))

	ctrl.Start(0)
	ctrl.Tick(100)
	ctrl.Tick(1100)
	ctrl.Tick(1600)

	ctrl.Respond(false, 1700)
	ctrl.Respond(true, 1800) // ignored: response already locked
	ctrl.Tick(1810)

	require.Len(t, rec.trials, 1)
	result := rec.trials[0]
	assert.False(t, result.Response)
	assert.True(t, result.Correct) // no-change trial, "no" is right
	assert.Equal(t, int64(100), result.ReactionMS)
}

func TestController_ResponseOutsideTestIgnored(t *testing.T) {
	ctrl, _, rec := newTestController(t, changeTrial("t1"))

	ctrl.Start(0)
	ctrl.Respond(true, 10) // still IDLE
	ctrl.Tick(100)
	ctrl.Respond(true, 200) // STUDY
	ctrl.Tick(1100)
	ctrl.Respond(true, 1200) // RETENTION

	assert.Empty(t, rec.trials)
	assert.NotContains(t, rec.events, "response")
}

func TestController_TimeoutSynthesizesNo(t *testing.T) {
	ctrl, _, rec := newTestController(t, changeTrial("t1"))

	ctrl.Start(0)
	ctrl.Tick(100)
	ctrl.Tick(1100)
	ctrl.Tick(1600)

	ctrl.Tick(3600) // max response window elapsed, no answer

	require.Len(t, rec.trials, 1)
	result := rec.trials[0]
	assert.False(t, result.Response)
	assert.False(t, result.Correct) // it was a change trial
	assert.True(t, result.TimedOut)
	assert.Contains(t, rec.events, "timeout")
}

func TestController_StimulusHiddenResponseWindowOpen(t *testing.T) {
	ctrl, stage, rec := newTestController(t, changeTrial("t1"))

	ctrl.Start(0)
	ctrl.Tick(100)
	ctrl.Tick(1100)
	ctrl.Tick(1600)

	ctrl.Tick(2100) // display duration over
	assert.Empty(t, stage.active)
	assert.Contains(t, rec.events, "stimulus_hidden")
	assert.Equal(t, models.PhaseTest, ctrl.Context().Phase)

	// The response still lands after the stimulus is gone.
	ctrl.Respond(true, 2500)
	ctrl.Tick(2510)
	require.Len(t, rec.trials, 1)
	assert.Equal(t, int64(900), rec.trials[0].ReactionMS)
}

func TestController_FlushAtEveryPhaseBoundary(t *testing.T) {
	ctrl, _, rec := newTestController(t, changeTrial("t1"))

	ctrl.Start(0)
	ctrl.Tick(100)  // -> STUDY (no flush: nothing recorded yet)
	ctrl.Tick(1100) // -> RETENTION
	ctrl.Tick(1600) // -> TEST
	ctrl.Respond(true, 1700)
	ctrl.Tick(1710) // -> trial end

	// study end, test entry, trial end.
	assert.Equal(t, []int64{1100, 1600, 1710}, rec.flushes)
}

func TestController_PlanOrderAndSessionEnd(t *testing.T) {
	ctrl, _, rec := newTestController(t, changeTrial("t1"), noChangeTrial("t2"))

	ctrl.Start(0)
	now := int64(0)
	step := func(ms int64) { now += ms; ctrl.Tick(now) }

	// Trial 1.
	step(100)  // STUDY
	step(1000) // RETENTION
	step(500)  // TEST
	ctrl.Respond(true, now+50)
	step(100) // trial end, back to IDLE
	assert.Equal(t, models.PhaseIdle, ctrl.Context().Phase)
	assert.False(t, ctrl.Done())

	// Trial 2.
	step(100)  // STUDY
	step(1000) // RETENTION
	step(500)  // TEST
	ctrl.Respond(false, now+50)
	step(100)

	require.Len(t, rec.trials, 2)
	assert.Equal(t, "t1", rec.trials[0].TrialID)
	assert.Equal(t, "t2", rec.trials[1].TrialID)
	assert.True(t, ctrl.Done())
	assert.Contains(t, rec.events, "session_end")

	// Ticking a finished session does nothing.
	ctrl.Tick(now + 1000)
	assert.Len(t, rec.trials, 2)
}
