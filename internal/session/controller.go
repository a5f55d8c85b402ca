package session

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/Marzie79/vr-visual-search/internal/models"
	"github.com/Marzie79/vr-visual-search/internal/plan"
)

// Recorder is the slice of the sample recorder the controller drives:
// forced flushes at phase boundaries, trial outcome rows, and event rows.
type Recorder interface {
	Flush(nowMS int64)
	WriteTrial(result models.TrialResult)
	Event(nowMS int64, trialID, name, value string)
}

// Stage is the slice of the scene the controller manipulates: which AOI
// cells are currently spawned. The renderer proper lives outside this
// module; activating a cell here is what makes it hittable for gaze.
type Stage interface {
	SetActive(cells []string)
	Add(slot int, label string)
	Remove(slot int)
	Clear()
}

// Timing holds the fixed phase durations of the session. The retention
// interval is per-trial and comes from the plan instead.
type Timing struct {
	StudyMS       int64
	TestDisplayMS int64
	MaxResponseMS int64
	InterTrialMS  int64
}

// Controller sequences IDLE → STUDY → RETENTION → TEST → (response or
// timeout) → IDLE for every trial of the plan, in order, and ends the
// session after the last one. All waits are elapsed-time checks inside
// Tick, never OS-level blocking, so the tick scheduler can interleave gaze
// sampling during every wait.
type Controller struct {
	log    *zap.Logger
	plan   *plan.Plan
	stage  Stage
	rec    Recorder
	timing Timing

	trialIndex   int
	ctx          models.TrialContext
	phaseStartMS int64
	started      bool
	done         bool

	// TEST phase bookkeeping.
	testStartMS     int64
	stimulusVisible bool
	responded       bool // single-use response lock
	response        bool
	responseAtMS    int64
	timedOut        bool
}

// NewController validates the collaborators and builds the state machine.
// A missing collaborator or an empty plan is a startup error: the session
// must not begin at all rather than run partially.
func NewController(p *plan.Plan, stage Stage, rec Recorder, timing Timing, log *zap.Logger) (*Controller, error) {
	if p == nil || len(p.Trials) == 0 {
		return nil, fmt.Errorf("no usable trial plan")
	}
	if stage == nil {
		return nil, fmt.Errorf("no stage to spawn stimuli on")
	}
	if rec == nil {
		return nil, fmt.Errorf("no recorder")
	}
	if timing.StudyMS <= 0 || timing.TestDisplayMS <= 0 || timing.MaxResponseMS <= 0 {
		return nil, fmt.Errorf("non-positive phase duration in timing %+v", timing)
	}

	return &Controller{
		log:    log,
		plan:   p,
		stage:  stage,
		rec:    rec,
		timing: timing,
		ctx:    models.IdleContext(),
	}, nil
}

// Start logs session start and enters the pre-trial idle wait.
func (c *Controller) Start(nowMS int64) {
	c.started = true
	c.phaseStartMS = nowMS
	c.rec.Event(nowMS, "", "session_start", strconv.Itoa(len(c.plan.Trials)))
}

// Context returns the trial/phase context for the current tick. The engine
// reads it after Tick and before resolving the gaze sample, so a sample is
// never attributed to a stale phase.
func (c *Controller) Context() models.TrialContext {
	return c.ctx
}

// Done reports whether the last planned trial has finished.
func (c *Controller) Done() bool {
	return c.done
}

// Tick advances the elapsed-time accumulators and fires the transition
// that is due, if any. It must run before the tick's gaze sample is taken.
func (c *Controller) Tick(nowMS int64) {
	if !c.started || c.done {
		return
	}

	switch c.ctx.Phase {
	case models.PhaseIdle:
		if nowMS-c.phaseStartMS >= c.timing.InterTrialMS {
			c.enterStudy(nowMS)
		}

	case models.PhaseStudy:
		if nowMS-c.phaseStartMS >= c.timing.StudyMS {
			c.enterRetention(nowMS)
		}

	case models.PhaseRetention:
		retentionMS := int64(c.trial().RetentionSecs * 1000)
		if nowMS-c.phaseStartMS >= retentionMS {
			c.enterTest(nowMS)
		}

	case models.PhaseTest:
		// The stimulus hides after a fixed display duration whether or not
		// a response has arrived; the response window stays open.
		if c.stimulusVisible && nowMS-c.testStartMS >= c.timing.TestDisplayMS {
			c.stage.Clear()
			c.stimulusVisible = false
			c.rec.Event(nowMS, c.ctx.TrialID, "stimulus_hidden", "")
		}

		if c.responded {
			c.finishTrial(nowMS)
		} else if nowMS-c.testStartMS >= c.timing.MaxResponseMS {
			// No answer within the window: synthesize a definite "no"
			// rather than leaving the trial unresolved.
			c.responded = true
			c.response = false
			c.responseAtMS = nowMS
			c.timedOut = true
			c.rec.Event(nowMS, c.ctx.TrialID, "timeout", "")
			c.finishTrial(nowMS)
		}
	}
}

// Respond registers the participant's answer: sawChange reports whether
// they judged that something disappeared. Only the first response of a
// trial counts; later attempts and responses outside TEST are ignored.
func (c *Controller) Respond(sawChange bool, nowMS int64) {
	if c.ctx.Phase != models.PhaseTest || c.responded {
		return
	}
	c.responded = true
	c.response = sawChange
	c.responseAtMS = nowMS
	c.rec.Event(nowMS, c.ctx.TrialID, "response", strconv.FormatBool(sawChange))
}

func (c *Controller) trial() *models.TrialSpec {
	return &c.plan.Trials[c.trialIndex]
}

func (c *Controller) enterStudy(nowMS int64) {
	t := c.trial()

	c.ctx = models.TrialContext{
		TrialID:       t.ID,
		Phase:         models.PhaseStudy,
		SetSize:       t.SetSize(),
		RetentionSecs: t.RetentionSecs,
	}
	c.phaseStartMS = nowMS

	c.stage.SetActive(t.Cells)

	c.rec.Event(nowMS, t.ID, "trial_start", strconv.Itoa(c.trialIndex))
	c.rec.Event(nowMS, t.ID, "phase", models.PhaseStudy.String())
	c.rec.Event(nowMS, t.ID, "set_size", strconv.Itoa(c.ctx.SetSize))
	c.log.Info("Trial started",
		zap.String("trial", t.ID),
		zap.Int("index", c.trialIndex),
		zap.Int("setSize", c.ctx.SetSize))
}

func (c *Controller) enterRetention(nowMS int64) {
	// STUDY aggregates flush before the phase label changes, so the rows
	// carry the phase they were observed in.
	c.rec.Flush(nowMS)

	c.stage.Clear()
	c.ctx.Phase = models.PhaseRetention
	c.phaseStartMS = nowMS
	c.rec.Event(nowMS, c.ctx.TrialID, "phase", models.PhaseRetention.String())
}

func (c *Controller) enterTest(nowMS int64) {
	c.rec.Flush(nowMS)

	t := c.trial()
	c.ctx.Phase = models.PhaseTest
	c.phaseStartMS = nowMS
	c.testStartMS = nowMS
	c.stimulusVisible = true
	c.responded = false
	c.timedOut = false

	// Re-spawn the study layout, take out the change target if this is a
	// change trial, and always add the designated distractor.
	c.stage.SetActive(t.Cells)
	if t.Change {
		c.stage.Remove(t.MissingIndex)
		c.rec.Event(nowMS, t.ID, "item_removed", strconv.Itoa(t.MissingIndex))
	}
	c.stage.Add(t.AddedIndex, t.AddedColor)
	c.rec.Event(nowMS, t.ID, "item_added",
		fmt.Sprintf("%d:%s", t.AddedIndex, t.AddedColor))

	c.rec.Event(nowMS, t.ID, "phase", models.PhaseTest.String())
}

func (c *Controller) finishTrial(nowMS int64) {
	c.rec.Flush(nowMS)
	c.stage.Clear()
	c.stimulusVisible = false

	t := c.trial()
	result := models.TrialResult{
		TrialID:    t.ID,
		SetSize:    c.ctx.SetSize,
		Retention:  t.RetentionSecs,
		Change:     t.Change,
		Target:     t.MissingIndex,
		Response:   c.response,
		Correct:    c.response == t.Change,
		ReactionMS: c.responseAtMS - c.testStartMS,
		TimedOut:   c.timedOut,
	}
	c.rec.WriteTrial(result)
	c.rec.Event(nowMS, t.ID, "trial_end", strconv.FormatBool(result.Correct))
	c.log.Info("Trial finished",
		zap.String("trial", t.ID),
		zap.Bool("correct", result.Correct),
		zap.Int64("reactionMs", result.ReactionMS),
		zap.Bool("timedOut", result.TimedOut))

	c.trialIndex++
	if c.trialIndex >= len(c.plan.Trials) {
		c.done = true
		c.ctx = models.IdleContext()
		c.rec.Event(nowMS, "", "session_end", strconv.Itoa(len(c.plan.Trials)))
		return
	}

	// Inter-trial interval: idle context, nothing on stage.
	c.ctx = models.IdleContext()
	c.phaseStartMS = nowMS
}
