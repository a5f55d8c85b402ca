package models

import "math"

// Vec3 is a point or direction in tracker space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns a unit-length copy of v. The zero vector is returned
// unchanged.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Ray is one gaze ray: an origin and a unit-length direction.
type Ray struct {
	Origin    Vec3 `json:"origin"`
	Direction Vec3 `json:"direction"`
}

// GazeSample is the raw per-tick record. One sample is written per tick,
// in arrival order, with non-decreasing timestamps. Immutable once written.
type GazeSample struct {
	TimestampMS int64   `json:"timestampMs"`
	TrialID     string  `json:"trialId"`
	Phase       Phase   `json:"phase"`
	AoiID       string  `json:"aoiId,omitempty"`     // empty when no region was hit
	SlotIndex   int     `json:"slotIndex"`           // -1 when no region was hit
	Ray         Ray     `json:"ray"`
	HitPoint    *Vec3   `json:"hitPoint,omitempty"`  // nil when no region was hit
	Distance    float64 `json:"distance"`            // 0 when no region was hit
	ViewportX   float64 `json:"viewportX"`
	ViewportY   float64 `json:"viewportY"`
	RealData    bool    `json:"realData"` // false for the synthesized fallback ray
}

// FixationRecord is a completed fixation: continuous dwell on one non-empty
// AOI that met the minimum-dwell threshold. StartMS is the true dwell onset,
// not the tick the threshold was crossed on.
type FixationRecord struct {
	TrialID    string `json:"trialId"`
	Phase      Phase  `json:"phase"`
	AoiID      string `json:"aoiId"`
	StartMS    int64  `json:"startMs"`
	EndMS      int64  `json:"endMs"`
	DurationMS int64  `json:"durationMs"`
}

// SequenceSegment is one uninterrupted run of gaze on a single AOI.
// Segments for one (trial, phase) never overlap; empty-AOI gaps between
// them are not represented.
type SequenceSegment struct {
	AoiID   string `json:"aoiId"`
	StartMS int64  `json:"startMs"`
	EndMS   int64  `json:"endMs"`
}

// SummaryRow is the flushed sequence summary for one (trial, phase): the
// ordered AOI path ("A>B>C") and the parallel per-segment duration list
// ("A:120;B:340;C:75"). Path token count always equals duration entry count.
type SummaryRow struct {
	TrialID   string `json:"trialId"`
	Phase     Phase  `json:"phase"`
	Path      string `json:"path"`
	Durations string `json:"durations"`
	Segments  int    `json:"segments"`
}
