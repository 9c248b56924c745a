package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"endurance-coach/internal/analysis"
)

// Config represents the application configuration
type Config struct {
	Model     analysis.LoadConfig      `json:"model" yaml:"model"`
	Scoring   analysis.ScoringConfig   `json:"scoring" yaml:"scoring"`
	Intensity analysis.IntensityConfig `json:"intensity" yaml:"intensity"`
	Optimizer analysis.OptimizerConfig `json:"optimizer" yaml:"optimizer"`
	Forecast  ForecastConfig           `json:"forecast" yaml:"forecast"`
	Athlete   AthleteConfig            `json:"athlete" yaml:"athlete"`
	Strava    StravaConfig             `json:"strava" yaml:"strava"`
	Ledger    LedgerConfig             `json:"ledger" yaml:"ledger"`
	Server    ServerConfig             `json:"server" yaml:"server"`
	Log       LogConfig                `json:"log" yaml:"log"`
	Display   DisplayConfig            `json:"display" yaml:"display"`
}

// ForecastConfig controls the forecast horizon and snapshot locking
type ForecastConfig struct {
	Horizon          int    `json:"horizon" yaml:"horizon"`
	SnapshotLockWait string `json:"snapshot_lock_wait" yaml:"snapshot_lock_wait"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	RestingHR   float64 `json:"resting_hr" yaml:"resting_hr"`
	MaxHR       float64 `json:"max_hr" yaml:"max_hr"`
	ThresholdHR float64 `json:"threshold_hr" yaml:"threshold_hr"`
}

// LedgerConfig locates the database and the workbook sheets
type LedgerConfig struct {
	DBPath        string `json:"db_path" yaml:"db_path"`
	TimelineSheet string `json:"timeline_sheet" yaml:"timeline_sheet"`
	PlanSheet     string `json:"plan_sheet" yaml:"plan_sheet"`
	// Workbook imported by the nightly job. Empty disables the job.
	NightlyImport string `json:"nightly_import,omitempty" yaml:"nightly_import,omitempty"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// LogConfig controls log level and output format
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format string `json:"format" yaml:"format"` // console | json
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	ChartHeight int `json:"chart_height" yaml:"chart_height"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration. Model coefficients and
// sleep defaults are never defaulted.
func DefaultConfig() Config {
	return Config{
		Intensity: analysis.DefaultIntensityConfig(),
		Optimizer: analysis.DefaultOptimizerConfig(),
		Forecast: ForecastConfig{
			Horizon:          analysis.DefaultHorizon,
			SnapshotLockWait: analysis.DefaultLockWait.String(),
		},
		Athlete: AthleteConfig{
			RestingHR:   50,
			MaxHR:       185,
			ThresholdHR: 165,
		},
		Ledger: LedgerConfig{
			TimelineSheet: "timeline",
			PlanSheet:     "plan",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Display: DisplayConfig{
			ChartHeight: 10,
		},
	}
}

// Load reads ~/.coach/config.yaml, falling back to ~/.coach/config.json.
// A .env file in the working directory and the environment override file values.
func Load() (*Config, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(dir, "config.json")
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	// missing .env is fine
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides replaces file values with environment variables when set
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"COACH_LOG_LEVEL", &cfg.Log.Level},
		{"COACH_LOG_FORMAT", &cfg.Log.Format},
		{"COACH_DB_PATH", &cfg.Ledger.DBPath},
		{"COACH_SERVER_ADDR", &cfg.Server.Addr},
		{"STRAVA_CLIENT_ID", &cfg.Strava.ClientID},
		{"STRAVA_CLIENT_SECRET", &cfg.Strava.ClientSecret},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// setDefaults fills optional sections only
func setDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Intensity.Window <= 0 {
		cfg.Intensity.Window = defaults.Intensity.Window
	}
	if cfg.Intensity.AnaerobicThreshold <= 0 {
		cfg.Intensity.AnaerobicThreshold = defaults.Intensity.AnaerobicThreshold
	}
	if cfg.Intensity.AerobicHighThreshold <= 0 {
		cfg.Intensity.AerobicHighThreshold = defaults.Intensity.AerobicHighThreshold
	}

	if cfg.Optimizer == (analysis.OptimizerConfig{}) {
		cfg.Optimizer = defaults.Optimizer
	}
	if cfg.Optimizer.StepSize <= 0 {
		cfg.Optimizer.StepSize = defaults.Optimizer.StepSize
	}
	if cfg.Optimizer.MaxLoad <= 0 {
		cfg.Optimizer.MaxLoad = defaults.Optimizer.MaxLoad
	}
	if cfg.Optimizer.CapFloor <= 0 {
		cfg.Optimizer.CapFloor = defaults.Optimizer.CapFloor
	}
	if cfg.Optimizer.CapFraction <= 0 {
		cfg.Optimizer.CapFraction = defaults.Optimizer.CapFraction
	}
	if cfg.Optimizer.BuildCeiling <= 0 {
		cfg.Optimizer.BuildCeiling = defaults.Optimizer.BuildCeiling
	}
	if cfg.Optimizer.DeloadCeiling <= 0 {
		cfg.Optimizer.DeloadCeiling = defaults.Optimizer.DeloadCeiling
	}

	if cfg.Forecast.Horizon <= 0 {
		cfg.Forecast.Horizon = defaults.Forecast.Horizon
	}
	if cfg.Forecast.SnapshotLockWait == "" {
		cfg.Forecast.SnapshotLockWait = defaults.Forecast.SnapshotLockWait
	}

	if cfg.Athlete.RestingHR == 0 {
		cfg.Athlete.RestingHR = defaults.Athlete.RestingHR
	}
	if cfg.Athlete.MaxHR == 0 {
		cfg.Athlete.MaxHR = defaults.Athlete.MaxHR
	}
	if cfg.Athlete.ThresholdHR == 0 {
		cfg.Athlete.ThresholdHR = defaults.Athlete.ThresholdHR
	}

	if cfg.Ledger.TimelineSheet == "" {
		cfg.Ledger.TimelineSheet = defaults.Ledger.TimelineSheet
	}
	if cfg.Ledger.PlanSheet == "" {
		cfg.Ledger.PlanSheet = defaults.Ledger.PlanSheet
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
	if cfg.Display.ChartHeight <= 0 {
		cfg.Display.ChartHeight = defaults.Display.ChartHeight
	}
}

// Save writes the configuration to ~/.coach/config.json
func Save(cfg *Config) error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return SaveFile(filepath.Join(dir, "config.json"), cfg)
}

// SaveFile writes cfg to path as JSON or YAML, following the extension
func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Example returns a config with plausible coefficients for a first run
func Example() Config {
	f := func(v float64) *float64 { return &v }

	cfg := DefaultConfig()
	cfg.Model = analysis.LoadConfig{
		ScaleAcute:    f(1),
		BiasAcute:     f(0),
		ScaleChronic:  f(1),
		BiasChronic:   f(0),
		SmoothUp:      f(0.25),
		SmoothDown:    f(0.2),
		SmoothChronic: f(2.0 / 43.0),
	}
	cfg.Scoring = analysis.ScoringConfig{
		SleepHoursDefault: f(7),
		SleepScoreDefault: f(70),
		BodyWeightKg:      70,
		BaselineDays:      7,
	}
	cfg.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	return cfg
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "config.json")

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := Example()
	return SaveFile(path, &example)
}

// Validate checks the required model coefficients and the optional sections.
// Missing coefficients wrap analysis.ErrMissingConfiguration.
func (c *Config) Validate() error {
	if _, err := analysis.NewLoadModel(c.Model); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}

	if _, err := c.LockWait(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be \"console\" or \"json\", got %q", c.Log.Format)
	}

	// Validate threshold_hr < max_hr when both are set
	if c.Athlete.ThresholdHR > 0 && c.Athlete.MaxHR > 0 && c.Athlete.ThresholdHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.threshold_hr (%v) must be less than athlete.max_hr (%v)", c.Athlete.ThresholdHR, c.Athlete.MaxHR)
	}

	return nil
}

// ValidateStrava checks the credentials needed for syncing
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// LockWait parses forecast.snapshot_lock_wait
func (c *Config) LockWait() (time.Duration, error) {
	if c.Forecast.SnapshotLockWait == "" {
		return analysis.DefaultLockWait, nil
	}
	d, err := time.ParseDuration(c.Forecast.SnapshotLockWait)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("forecast.snapshot_lock_wait must be a positive duration, got %q", c.Forecast.SnapshotLockWait)
	}
	return d, nil
}

// Pipeline assembles the forecast pipeline settings
func (c *Config) Pipeline() analysis.PipelineConfig {
	wait, err := c.LockWait()
	if err != nil {
		wait = analysis.DefaultLockWait
	}
	return analysis.PipelineConfig{
		Load:      c.Model,
		Scoring:   c.Scoring,
		Intensity: c.Intensity,
		Optimizer: c.Optimizer,
		Horizon:   c.Forecast.Horizon,
		LockWait:  wait,
	}
}

// Zones returns the heart rate zones used for imported sessions
func (c *Config) Zones() analysis.HRZones {
	return analysis.HRZones{RestingHR: c.Athlete.RestingHR, MaxHR: c.Athlete.MaxHR}
}

// DBPath returns the configured database path, defaulting to ~/.coach/data.db
func (c *Config) DBPath() (string, error) {
	if c.Ledger.DBPath != "" {
		return c.Ledger.DBPath, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data.db"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".coach"), nil
}
