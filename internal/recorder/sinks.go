package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Marzie79/vr-visual-search/internal/models"
)

// sink is one append-only delimited output stream. It batches writes and
// flushes every flushEvery rows; flushEvery of 1 flushes every row.
type sink struct {
	file       *os.File
	w          *csv.Writer
	flushEvery int
	pending    int
}

func newSink(path, name string, header []string, flushEvery int) (*sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s sink: %w", name, err)
	}

	s := &sink{file: f, w: csv.NewWriter(f), flushEvery: flushEvery}
	if err := s.write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write %s header: %w", name, err)
	}
	s.w.Flush()
	s.pending = 0
	return s, nil
}

func (s *sink) write(record []string) error {
	if err := s.w.Write(record); err != nil {
		return err
	}
	s.pending++
	if s.pending >= s.flushEvery {
		s.w.Flush()
		s.pending = 0
	}
	return s.w.Error()
}

func (s *sink) close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// Sinks owns the five output streams of one session. Filenames are scoped
// by session id and start timestamp so sessions never interleave. Raw
// samples are batched; trial, fixation and sequence rows are rare and high
// value, so they flush immediately.
type Sinks struct {
	log *zap.Logger

	samples   *sink
	events    *sink
	trials    *sink
	fixations *sink
	sequences *sink

	paths map[string]string
}

// NewSinks opens the five session streams under dir.
func NewSinks(dir, sessionID string, samplesFlushEvery int, log *zap.Logger) (*Sinks, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	if samplesFlushEvery < 1 {
		samplesFlushEvery = 1
	}

	suffix := fmt.Sprintf("%s_%s", sessionID, time.Now().Format("20060102-150405"))

	s := Sinks{log: log, paths: make(map[string]string)}

	open := func(name string, header []string, flushEvery int) (*sink, error) {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", name, suffix))
		s.paths[name] = path
		return newSink(path, name, header, flushEvery)
	}

	var err error

	s.samples, err = open("samples", []string{
		"timestamp_ms", "trial_id", "phase", "aoi_id", "slot_index",
		"origin_x", "origin_y", "origin_z",
		"dir_x", "dir_y", "dir_z",
		"hit_x", "hit_y", "hit_z", "distance",
		"viewport_x", "viewport_y", "real_data",
	}, samplesFlushEvery)
	if err != nil {
		return nil, err
	}

	s.events, err = open("events",
		[]string{"timestamp_ms", "trial_id", "event", "value"}, 1)
	if err != nil {
		return nil, err
	}

	s.trials, err = open("trials", []string{
		"trial_id", "set_size", "retention_s", "change", "target_index",
		"response", "correct", "reaction_ms", "timed_out",
	}, 1)
	if err != nil {
		return nil, err
	}

	s.fixations, err = open("fixations",
		[]string{"trial_id", "phase", "aoi_id", "start_ms", "end_ms", "duration_ms"}, 1)
	if err != nil {
		return nil, err
	}

	s.sequences, err = open("sequences",
		[]string{"trial_id", "phase", "aoi_path", "durations"}, 1)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// Path returns the file path of one named stream ("samples", "events",
// "trials", "fixations", "sequences").
func (s *Sinks) Path(name string) string {
	return s.paths[name]
}

// WriteSample appends one raw gaze sample row.
func (s *Sinks) WriteSample(sample models.GazeSample) {
	hitX, hitY, hitZ := "", "", ""
	if sample.HitPoint != nil {
		hitX = ftoa(sample.HitPoint.X)
		hitY = ftoa(sample.HitPoint.Y)
		hitZ = ftoa(sample.HitPoint.Z)
	}

	s.must("samples", s.samples.write([]string{
		strconv.FormatInt(sample.TimestampMS, 10),
		sample.TrialID,
		sample.Phase.String(),
		sample.AoiID,
		strconv.Itoa(sample.SlotIndex),
		ftoa(sample.Ray.Origin.X), ftoa(sample.Ray.Origin.Y), ftoa(sample.Ray.Origin.Z),
		ftoa(sample.Ray.Direction.X), ftoa(sample.Ray.Direction.Y), ftoa(sample.Ray.Direction.Z),
		hitX, hitY, hitZ, ftoa(sample.Distance),
		ftoa(sample.ViewportX), ftoa(sample.ViewportY),
		strconv.FormatBool(sample.RealData),
	}))
}

// Event appends one free-form event row: phase boundaries, item removal and
// addition, responses, timeouts, session start/end.
func (s *Sinks) Event(nowMS int64, trialID, name, value string) {
	s.must("events", s.events.write([]string{
		strconv.FormatInt(nowMS, 10), trialID, name, value,
	}))
}

// WriteTrial appends the outcome row of one trial.
func (s *Sinks) WriteTrial(r models.TrialResult) {
	s.must("trials", s.trials.write([]string{
		r.TrialID,
		strconv.Itoa(r.SetSize),
		ftoa(r.Retention),
		strconv.FormatBool(r.Change),
		strconv.Itoa(r.Target),
		strconv.FormatBool(r.Response),
		strconv.FormatBool(r.Correct),
		strconv.FormatInt(r.ReactionMS, 10),
		strconv.FormatBool(r.TimedOut),
	}))
}

// WriteFixation appends one completed fixation row.
func (s *Sinks) WriteFixation(r models.FixationRecord) {
	s.must("fixations", s.fixations.write([]string{
		r.TrialID,
		r.Phase.String(),
		r.AoiID,
		strconv.FormatInt(r.StartMS, 10),
		strconv.FormatInt(r.EndMS, 10),
		strconv.FormatInt(r.DurationMS, 10),
	}))
}

// WriteSequence appends one sequence summary row.
func (s *Sinks) WriteSequence(r models.SummaryRow) {
	s.must("sequences", s.sequences.write([]string{
		r.TrialID,
		r.Phase.String(),
		r.Path,
		r.Durations,
	}))
}

// Close flushes and closes every stream.
func (s *Sinks) Close() error {
	var firstErr error
	for name, snk := range map[string]*sink{
		"samples": s.samples, "events": s.events, "trials": s.trials,
		"fixations": s.fixations, "sequences": s.sequences,
	} {
		if err := snk.close(); err != nil {
			s.log.Error("Failed to close output sink", zap.String("sink", name), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// must logs a sink write failure. Output I/O errors must not abort the tick
// loop, but they are never silently swallowed either.
func (s *Sinks) must(name string, err error) {
	if err != nil {
		s.log.Error("Failed to write output row", zap.String("sink", name), zap.Error(err))
	}
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
