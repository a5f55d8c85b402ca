package models

// Phase identifies the stage of the trial the session is currently in.
// Every gaze sample and aggregate record is tagged with the phase that was
// active when it was observed.
type Phase string

const (
	PhaseIdle      Phase = "IDLE"
	PhaseStudy     Phase = "STUDY"
	PhaseRetention Phase = "RETENTION"
	PhaseTest      Phase = "TEST"
)

// String returns the phase label used in output rows.
func (p Phase) String() string {
	return string(p)
}
