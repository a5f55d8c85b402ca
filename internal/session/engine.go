package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Marzie79/vr-visual-search/internal/gaze"
	"github.com/Marzie79/vr-visual-search/internal/models"
	"github.com/Marzie79/vr-visual-search/internal/recorder"
	"github.com/Marzie79/vr-visual-search/internal/scene"
)

// response carries a participant answer from the input glue into the tick
// loop, stamped at arrival.
type response struct {
	sawChange bool
	at        time.Time
}

// Engine runs the cooperative tick loop: every tick advances the phase
// controller first, then takes exactly one gaze sample and feeds it to the
// recorder under the freshly updated context. Nothing else mutates shared
// state, so no sample can see a torn or stale trial/phase pair.
type Engine struct {
	log      *zap.Logger
	ctrl     *Controller
	source   gaze.RaySource
	resolver scene.Resolver
	rec      *recorder.SampleRecorder
	rateHz   int

	epoch     time.Time
	responses chan response
}

// NewEngine wires the tick loop. The ray source is wrapped with the
// neutral-ray fallback so a sensor failure can never abort a tick.
func NewEngine(ctrl *Controller, source gaze.RaySource, resolver scene.Resolver, rec *recorder.SampleRecorder, rateHz int, log *zap.Logger) (*Engine, error) {
	if ctrl == nil {
		return nil, fmt.Errorf("no controller")
	}
	if resolver == nil {
		return nil, fmt.Errorf("no AOI resolver")
	}
	if rec == nil {
		return nil, fmt.Errorf("no sample recorder")
	}
	if rateHz <= 0 {
		return nil, fmt.Errorf("sample rate %d must be positive", rateHz)
	}

	return &Engine{
		log:       log,
		ctrl:      ctrl,
		source:    gaze.WithFallback(source),
		resolver:  resolver,
		rec:       rec,
		rateHz:    rateHz,
		responses: make(chan response, 8),
	}, nil
}

// Respond queues a participant answer for the next tick. Safe to call from
// the input goroutine; the tick loop is the only consumer.
func (e *Engine) Respond(sawChange bool) {
	select {
	case e.responses <- response{sawChange: sawChange, at: time.Now()}:
	default:
		// A full queue means responses are arriving faster than ticks;
		// the single-use lock would ignore the extras anyway.
	}
}

// Run executes the session until the plan is exhausted or ctx is canceled.
// Either way, pending fixation/sequence state is force-flushed and the
// sinks are closed before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	e.epoch = time.Now()
	e.ctrl.Start(0)
	e.log.Info("Session started", zap.Int("sampleRateHz", e.rateHz))

	ticker := time.NewTicker(time.Second / time.Duration(e.rateHz))
	defer ticker.Stop()

	for !e.ctrl.Done() {
		select {
		case <-ctx.Done():
			nowMS := e.nowMS()
			e.rec.Event(nowMS, e.ctrl.Context().TrialID, "session_abort", ctx.Err().Error())
			e.log.Warn("Session canceled", zap.Error(ctx.Err()))
			return e.shutdown(nowMS)

		case <-ticker.C:
			e.tick()
		}
	}

	return e.shutdown(e.nowMS())
}

// tick is one scheduler step: responses, then phase transitions, then the
// gaze sample — strictly in that order.
func (e *Engine) tick() {
	// Apply queued responses at their arrival time.
	for {
		select {
		case r := <-e.responses:
			e.ctrl.Respond(r.sawChange, r.at.Sub(e.epoch).Milliseconds())
			continue
		default:
		}
		break
	}

	nowMS := e.nowMS()
	e.ctrl.Tick(nowMS)

	tctx := e.ctrl.Context()
	ray, real := e.source.TryGetRay()

	sample := models.GazeSample{
		TimestampMS: nowMS,
		TrialID:     tctx.TrialID,
		Phase:       tctx.Phase,
		SlotIndex:   -1,
		Ray:         ray,
		ViewportX:   ray.Direction.X,
		ViewportY:   ray.Direction.Y,
		RealData:    real,
	}

	if hit, ok := e.resolver.Resolve(ray); ok {
		point := hit.Point
		sample.AoiID = hit.AoiID
		sample.SlotIndex = hit.SlotIndex
		sample.HitPoint = &point
		sample.Distance = hit.Distance
		sample.ViewportX = hit.ViewportX
		sample.ViewportY = hit.ViewportY
	}

	e.rec.Record(tctx, sample)
}

func (e *Engine) shutdown(nowMS int64) error {
	if err := e.rec.CloseSession(nowMS); err != nil {
		return fmt.Errorf("failed to close session outputs: %w", err)
	}
	e.log.Info("Session outputs closed", zap.Int64("elapsedMs", nowMS))
	return nil
}

func (e *Engine) nowMS() int64 {
	return time.Since(e.epoch).Milliseconds()
}
