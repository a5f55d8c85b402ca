package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Marzie79/vr-visual-search/internal/config"
	"github.com/Marzie79/vr-visual-search/internal/gaze"
	"github.com/Marzie79/vr-visual-search/internal/logging"
	"github.com/Marzie79/vr-visual-search/internal/plan"
	"github.com/Marzie79/vr-visual-search/internal/recorder"
	"github.com/Marzie79/vr-visual-search/internal/report"
	"github.com/Marzie79/vr-visual-search/internal/scene"
	"github.com/Marzie79/vr-visual-search/internal/session"
)

func main() {
	// Configuration comes first; the session logger needs its log dir and
	// rotation settings. Bootstrap messages go to a plain console logger.
	boot := zap.Must(zap.NewDevelopment())
	if err := config.Init(".", boot); err != nil {
		boot.Fatal("Failed to load configuration", zap.Error(err))
	}
	cfg := config.Conf

	// Initialize Logger
	log, err := logging.Init(cfg.Paths.LogDir, cfg.Logging)
	if err != nil {
		boot.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	// Load the trial plan and the AOI grid layout at startup. Either one
	// being unusable is fatal: no partial sessions.
	trialPlan, err := plan.Load(cfg.Paths.PlanFile, log)
	if err != nil {
		log.Fatal("Failed to load trial plan", zap.Error(err))
	}

	layout, err := scene.LoadLayout(cfg.Paths.LayoutFile)
	if err != nil {
		log.Fatal("Failed to load AOI layout", zap.Error(err))
	}
	resolver, err := scene.NewGridResolver(layout)
	if err != nil {
		log.Fatal("Failed to build AOI resolver", zap.Error(err))
	}

	// Open the five session output streams.
	sessionID := uuid.New().String()[:8]
	sinks, err := recorder.NewSinks(cfg.Paths.OutputDir, sessionID, cfg.Gaze.SamplesFlushEvery, log)
	if err != nil {
		log.Fatal("Failed to open output sinks", zap.Error(err))
	}

	rec := recorder.NewSampleRecorder(sinks, cfg.Gaze.FixationThresholdMS, log)

	ctrl, err := session.NewController(trialPlan, resolver, rec, session.Timing{
		StudyMS:       cfg.Timing.StudyMS,
		TestDisplayMS: cfg.Timing.TestDisplayMS,
		MaxResponseMS: cfg.Timing.MaxResponseMS,
		InterTrialMS:  cfg.Timing.InterTrialMS,
	}, log)
	if err != nil {
		log.Fatal("Failed to build trial controller", zap.Error(err))
	}

	// The eye tracker integration is platform glue; until it is plugged in
	// the engine runs on the neutral-ray fallback, which it would also use
	// for any tick the device fails on.
	var source gaze.RaySource

	engine, err := session.NewEngine(ctrl, source, resolver, rec, cfg.Timing.SampleRateHz, log)
	if err != nil {
		log.Fatal("Failed to build session engine", zap.Error(err))
	}

	// Minimal response glue: 'y' = something disappeared, 'n' = no change.
	go readResponses(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		log.Fatal("Session failed", zap.Error(err))
	}

	if cfg.Report.Enabled {
		err := report.Generate(
			sinks.Path("sequences"),
			sinks.Path("trials"),
			cfg.Report.File,
			log,
		)
		if err != nil {
			log.Error("Failed to generate session report", zap.Error(err))
		}
	}

	log.Info("Session complete", zap.String("session", sessionID))
}

// readResponses forwards y/n lines from stdin into the engine.
func readResponses(engine *session.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			engine.Respond(true)
		case "n", "no":
			engine.Respond(false)
		}
	}
}
