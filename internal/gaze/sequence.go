package gaze

import (
	"fmt"
	"strings"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

// SequenceAggregator accumulates the ordered AOI visit segments of one
// (trial, phase) and renders them into a compact summary row at each flush.
// Consecutive segments never share an AOI (segments only close on AOI
// change) and empty-AOI gaps produce no segment at all, which keeps the
// path string compact for transition analysis.
type SequenceAggregator struct {
	segments []models.SequenceSegment

	currentAoi     string
	currentStartMS int64

	trialID string
	phase   models.Phase
	bound   bool // context captured from the first update after a flush

	// onFlush receives rows produced by the implicit phase-change flush,
	// where there is no caller to hand the row back to.
	onFlush func(models.SummaryRow)
}

// NewSequenceAggregator creates an aggregator. onFlush may be nil if the
// caller guarantees an explicit ForceFlush at every phase boundary.
func NewSequenceAggregator(onFlush func(models.SummaryRow)) *SequenceAggregator {
	return &SequenceAggregator{onFlush: onFlush}
}

// Update consumes one tick's resolved AOI under the given trial/phase
// context. If the context differs from the one the current segments were
// recorded under, the previous phase is flushed implicitly first — a guard
// against a caller that changed phase without calling ForceFlush.
func (a *SequenceAggregator) Update(trialID string, phase models.Phase, aoiID string, nowMS int64) {
	if a.bound && (trialID != a.trialID || phase != a.phase) {
		if row := a.ForceFlush(nowMS); row != nil && a.onFlush != nil {
			a.onFlush(*row)
		}
	}
	if !a.bound {
		a.trialID = trialID
		a.phase = phase
		a.bound = true
	}

	if aoiID == a.currentAoi {
		return
	}

	// AOI changed: close the open segment, open a new one only for a
	// non-empty AOI.
	if a.currentAoi != "" {
		a.segments = append(a.segments, models.SequenceSegment{
			AoiID:   a.currentAoi,
			StartMS: a.currentStartMS,
			EndMS:   nowMS,
		})
	}
	a.currentAoi = aoiID
	a.currentStartMS = nowMS
}

// ForceFlush closes any open segment at nowMS and returns the summary row
// for the accumulated segments, or nil if none were recorded. All buffers
// bound to the current phase are cleared, so segments are emitted exactly
// once and never split across two rows.
func (a *SequenceAggregator) ForceFlush(nowMS int64) *models.SummaryRow {
	if a.currentAoi != "" {
		a.segments = append(a.segments, models.SequenceSegment{
			AoiID:   a.currentAoi,
			StartMS: a.currentStartMS,
			EndMS:   nowMS,
		})
		a.currentAoi = ""
	}

	segments := a.segments
	trialID, phase := a.trialID, a.phase

	a.segments = nil
	a.bound = false
	a.trialID = ""
	a.phase = ""

	if len(segments) == 0 {
		return nil
	}

	path := make([]string, len(segments))
	durations := make([]string, len(segments))
	for i, seg := range segments {
		path[i] = seg.AoiID
		durations[i] = fmt.Sprintf("%s:%d", seg.AoiID, seg.EndMS-seg.StartMS)
	}

	return &models.SummaryRow{
		TrialID:   trialID,
		Phase:     phase,
		Path:      strings.Join(path, ">"),
		Durations: strings.Join(durations, ";"),
		Segments:  len(segments),
	}
}
