package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the session configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Timing  TimingConfig  `mapstructure:"timing"`
	Gaze    GazeConfig    `mapstructure:"gaze"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TimingConfig holds the phase durations of a trial. Retention is not here:
// it is a per-trial value from the plan, not a session constant.
type TimingConfig struct {
	SampleRateHz  int   `mapstructure:"sample_rate_hz"`
	StudyMS       int64 `mapstructure:"study_ms"`
	TestDisplayMS int64 `mapstructure:"test_display_ms"`
	MaxResponseMS int64 `mapstructure:"max_response_ms"`
	InterTrialMS  int64 `mapstructure:"inter_trial_ms"`
}

// GazeConfig holds gaze pipeline settings.
type GazeConfig struct {
	FixationThresholdMS int64 `mapstructure:"fixation_threshold_ms"`
	SamplesFlushEvery   int   `mapstructure:"samples_flush_every"`
}

// PathsConfig holds the input and output locations for a session.
type PathsConfig struct {
	PlanFile   string `mapstructure:"plan_file"`
	LayoutFile string `mapstructure:"layout_file"`
	OutputDir  string `mapstructure:"output_dir"`
	LogDir     string `mapstructure:"log_dir"`
}

// ReportConfig controls the optional post-session HTML report.
type ReportConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	File    string `mapstructure:"file"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Timing defaults: 5 s study, 1 s visible test stimulus, 10 s to
	// respond, 2 s between trials, 90 Hz sampling.
	v.SetDefault("timing.sample_rate_hz", 90)
	v.SetDefault("timing.study_ms", 5000)
	v.SetDefault("timing.test_display_ms", 1000)
	v.SetDefault("timing.max_response_ms", 10000)
	v.SetDefault("timing.inter_trial_ms", 2000)

	// Gaze defaults
	v.SetDefault("gaze.fixation_threshold_ms", 100)
	v.SetDefault("gaze.samples_flush_every", 30)

	// Paths defaults
	v.SetDefault("paths.plan_file", "config/trials.csv")
	v.SetDefault("paths.layout_file", "config/layout.yaml")
	v.SetDefault("paths.output_dir", "data")
	v.SetDefault("paths.log_dir", "logs")

	// Report defaults
	v.SetDefault("report.enabled", false)
	v.SetDefault("report.file", "report.html")

	// Logging defaults
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs
}

// Init initializes the configuration with Viper.
func Init(projectRoot string, log *zap.Logger) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("VSTM") // e.g., VSTM_TIMING_STUDY_MS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Reload timing/gaze knobs when the file changes between sessions.
	// Paths and the layout are read once at startup and are not re-resolved.
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})

	log.Info("Configuration loaded successfully")
	return nil
}
