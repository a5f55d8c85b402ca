package recorder

import (
	"go.uber.org/zap"

	"github.com/Marzie79/vr-visual-search/internal/gaze"
	"github.com/Marzie79/vr-visual-search/internal/models"
)

// SampleRecorder is the per-tick sink: it writes every raw gaze sample and
// drives the fixation detector and sequence aggregator in lockstep from the
// same AOI resolution, so the three outputs can never disagree about what
// was looked at on a given tick.
type SampleRecorder struct {
	log   *zap.Logger
	sinks *Sinks
	fix   *gaze.FixationDetector
	seq   *gaze.SequenceAggregator

	// context the most recent sample was recorded under, used to tag
	// fixation records on emission.
	ctx models.TrialContext
}

// NewSampleRecorder wires the aggregators to the session sinks.
func NewSampleRecorder(sinks *Sinks, fixationThresholdMS int64, log *zap.Logger) *SampleRecorder {
	r := &SampleRecorder{
		log:   log,
		sinks: sinks,
		fix:   gaze.NewFixationDetector(fixationThresholdMS),
		ctx:   models.IdleContext(),
	}
	// Rows produced by the aggregator's implicit phase-change flush land in
	// the sequences sink like any explicitly flushed row.
	r.seq = gaze.NewSequenceAggregator(sinks.WriteSequence)
	return r
}

// Record consumes one tick: writes the raw sample row, then updates the
// fixation detector and sequence aggregator with the sample's AOI. The
// caller guarantees the context was updated before the sample was resolved.
func (r *SampleRecorder) Record(ctx models.TrialContext, sample models.GazeSample) {
	r.ctx = ctx

	r.sinks.WriteSample(sample)

	if rec := r.fix.Update(sample.AoiID, sample.TimestampMS); rec != nil {
		r.writeFixation(rec)
	}

	r.seq.Update(ctx.TrialID, ctx.Phase, sample.AoiID, sample.TimestampMS)
}

// Flush force-closes the active fixation and the open sequence segment at a
// phase boundary. Idempotent: a second call with no intervening Record
// writes nothing.
func (r *SampleRecorder) Flush(nowMS int64) {
	if rec := r.fix.ForceClose(nowMS); rec != nil {
		r.writeFixation(rec)
	}
	if row := r.seq.ForceFlush(nowMS); row != nil {
		r.sinks.WriteSequence(*row)
	}
}

// CloseSession flushes anything still pending — a partially observed
// fixation or segment must appear in the output, truncated but closed —
// and then closes the sinks.
func (r *SampleRecorder) CloseSession(nowMS int64) error {
	r.Flush(nowMS)
	return r.sinks.Close()
}

// Event appends a row to the event stream.
func (r *SampleRecorder) Event(nowMS int64, trialID, name, value string) {
	r.sinks.Event(nowMS, trialID, name, value)
}

// WriteTrial appends a trial outcome row.
func (r *SampleRecorder) WriteTrial(result models.TrialResult) {
	r.sinks.WriteTrial(result)
}

func (r *SampleRecorder) writeFixation(rec *models.FixationRecord) {
	rec.TrialID = r.ctx.TrialID
	rec.Phase = r.ctx.Phase
	r.sinks.WriteFixation(*rec)
}
