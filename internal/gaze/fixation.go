package gaze

import "github.com/Marzie79/vr-visual-search/internal/models"

// FixationDetector turns the per-tick AOI stream into completed fixations:
// continuous dwell on one non-empty AOI lasting at least the minimum-dwell
// threshold. It holds only the start of the current dwell run and the one
// possibly-active fixation, so state stays O(1) regardless of session
// length — there is no look-back buffer.
//
// The reported start time is the true onset of the dwell run, not the tick
// the threshold happened to be crossed on.
type FixationDetector struct {
	thresholdMS int64

	lastAoi        string
	lastAoiStartMS int64

	fixationActive  bool
	fixationAoi     string
	fixationStartMS int64
}

// NewFixationDetector creates a detector with the given minimum-dwell
// threshold. The threshold is inclusive: dwell == threshold qualifies.
func NewFixationDetector(thresholdMS int64) *FixationDetector {
	return &FixationDetector{thresholdMS: thresholdMS}
}

// Update feeds one tick's resolved AOI (empty string for "no region") and
// returns a completed FixationRecord when a dwell on the previous AOI just
// ended, nil otherwise. TrialID and Phase are left for the caller to tag.
func (d *FixationDetector) Update(aoiID string, nowMS int64) *models.FixationRecord {
	if aoiID == d.lastAoi {
		// Unchanged AOI: mark the fixation as soon as the dwell run
		// qualifies, but emit only when it later ends.
		if !d.fixationActive && aoiID != "" && nowMS-d.lastAoiStartMS >= d.thresholdMS {
			d.fixationActive = true
			d.fixationAoi = aoiID
			d.fixationStartMS = d.lastAoiStartMS
		}
		return nil
	}

	record := d.closeDwell(nowMS)

	d.lastAoi = aoiID
	d.lastAoiStartMS = nowMS
	return record
}

// ForceClose emits the fixation in flight, if any, closed at nowMS, and
// resets the dwell run so nothing backdates across the boundary. Calling it
// again without an intervening update returns nil.
func (d *FixationDetector) ForceClose(nowMS int64) *models.FixationRecord {
	record := d.closeDwell(nowMS)

	d.lastAoi = ""
	d.lastAoiStartMS = nowMS
	return record
}

// closeDwell ends the current dwell run at nowMS and returns its fixation
// record if the run qualified. A dwell that reached the threshold without
// an intervening Update is still honored, backdated to its true onset.
func (d *FixationDetector) closeDwell(nowMS int64) *models.FixationRecord {
	var record *models.FixationRecord

	switch {
	case d.fixationActive:
		record = newRecord(d.fixationAoi, d.fixationStartMS, nowMS)
	case d.lastAoi != "" && nowMS-d.lastAoiStartMS >= d.thresholdMS:
		record = newRecord(d.lastAoi, d.lastAoiStartMS, nowMS)
	}

	d.fixationActive = false
	d.fixationAoi = ""
	return record
}

// newRecord builds a fixation record with its duration clamped to >= 0 to
// guard against clock irregularities.
func newRecord(aoiID string, startMS, endMS int64) *models.FixationRecord {
	if endMS < startMS {
		endMS = startMS
	}
	return &models.FixationRecord{
		AoiID:      aoiID,
		StartMS:    startMS,
		EndMS:      endMS,
		DurationMS: endMS - startMS,
	}
}
