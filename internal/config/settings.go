package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	generation "smartmeter-synth/internal/generation/domain"
)

// Settings is the process configuration.
type Settings struct {
	Server     ServerSettings          `yaml:"server"`
	Generation MeterGenerationSettings `yaml:"generation"`
	Limits     LimitSettings           `yaml:"limits"`
}

// ServerSettings configures the HTTP server and its backing services.
type ServerSettings struct {
	HTTPAddr        string        `yaml:"http_addr"`
	DatabaseURL     string        `yaml:"database_url"`
	JWTSecret       string        `yaml:"jwt_secret"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MeterGenerationSettings are the defaults requests are overlaid on.
type MeterGenerationSettings struct {
	StartDate        string   `yaml:"start_date"`
	EndDate          string   `yaml:"end_date"`
	Period           int      `yaml:"period"`
	BusinessType     string   `yaml:"business_type"`
	MeasurementClass string   `yaml:"measurement_class"`
	MeterCount       int      `yaml:"meter_count"`
	MeterIDs         []string `yaml:"meter_ids"`
	SiteName         string   `yaml:"site_name"`
	Deterministic    bool     `yaml:"deterministic"`
	Seed             *int64   `yaml:"seed"`
	EstimatedRate    *float64 `yaml:"estimated_rate"`
	MissingRate      *float64 `yaml:"missing_rate"`
}

// LimitSettings bounds single runs.
type LimitSettings struct {
	MaxMeters       int `yaml:"max_meters"`
	MaxDays         int `yaml:"max_days"`
	MaxPeriodValues int `yaml:"max_period_values"`
	MaxMpanAttempts int `yaml:"max_mpan_attempts"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	estimated := generation.DefaultEstimatedRate
	missing := generation.DefaultMissingRate
	return Settings{
		Server: ServerSettings{
			HTTPAddr:        ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Generation: MeterGenerationSettings{
			StartDate:        "2024-01-01",
			EndDate:          "2024-12-31",
			Period:           30,
			BusinessType:     string(generation.BusinessOffice),
			MeasurementClass: "C",
			MeterCount:       1,
			SiteName:         "Synthetic Site",
			EstimatedRate:    &estimated,
			MissingRate:      &missing,
		},
		Limits: LimitSettings{
			MaxMeters:       10000,
			MaxDays:         3660,
			MaxPeriodValues: 5_000_000,
			MaxMpanAttempts: generation.DefaultMaxMpanAttempts,
		},
	}
}

// Load builds settings from defaults, the YAML file at path (or SYNTH_CONFIG
// when path is empty) and environment overrides, in that order.
func Load(path string) (Settings, error) {
	cfg := Defaults()

	if path == "" {
		path = os.Getenv("SYNTH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the generation defaults form a valid configuration.
func (s Settings) Validate() error {
	if s.Limits.MaxMeters <= 0 || s.Limits.MaxDays <= 0 || s.Limits.MaxPeriodValues <= 0 || s.Limits.MaxMpanAttempts <= 0 {
		return errors.New("config: limits must be positive")
	}
	if _, err := s.Generation.Configuration(); err != nil {
		return fmt.Errorf("config: generation defaults: %w", err)
	}
	return nil
}

// Configuration converts the settings into an engine configuration.
func (g MeterGenerationSettings) Configuration() (generation.Configuration, error) {
	start, err := generation.ParseDate(g.StartDate)
	if err != nil {
		return generation.Configuration{}, err
	}
	end, err := generation.ParseDate(g.EndDate)
	if err != nil {
		return generation.Configuration{}, err
	}
	ids := make([]uuid.UUID, 0, len(g.MeterIDs))
	for _, raw := range g.MeterIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return generation.Configuration{}, fmt.Errorf("%w: meter id %q", generation.ErrInvalidArgument, raw)
		}
		ids = append(ids, id)
	}

	cfg := generation.Configuration{
		StartDate:        start,
		EndDate:          end,
		Period:           g.Period,
		BusinessType:     generation.NormalizeBusinessType(g.BusinessType),
		MeasurementClass: g.MeasurementClass,
		MeterCount:       g.MeterCount,
		MeterIDs:         ids,
		SiteName:         g.SiteName,
		Deterministic:    g.Deterministic,
		EstimatedRate:    generation.DefaultEstimatedRate,
		MissingRate:      generation.DefaultMissingRate,
	}
	if g.Seed != nil {
		seed := *g.Seed
		cfg.Seed = &seed
	}
	if g.EstimatedRate != nil {
		cfg.EstimatedRate = *g.EstimatedRate
	}
	if g.MissingRate != nil {
		cfg.MissingRate = *g.MissingRate
	}
	if err := cfg.Validate(); err != nil {
		return generation.Configuration{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Settings) {
	cfg.Server.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.Server.HTTPAddr)
	cfg.Server.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.Server.DatabaseURL))
	cfg.Server.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.Server.JWTSecret))
	cfg.Server.ShutdownTimeout = getenvDuration("SYNTH_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	gen := &cfg.Generation
	gen.StartDate = getenvDefault("SYNTH_START_DATE", gen.StartDate)
	gen.EndDate = getenvDefault("SYNTH_END_DATE", gen.EndDate)
	gen.Period = getenvIntDefault("SYNTH_PERIOD", gen.Period)
	gen.BusinessType = getenvDefault("SYNTH_BUSINESS_TYPE", gen.BusinessType)
	gen.MeasurementClass = getenvDefault("SYNTH_MEASUREMENT_CLASS", gen.MeasurementClass)
	gen.MeterCount = getenvIntDefault("SYNTH_METER_COUNT", gen.MeterCount)
	if ids := splitCSV(os.Getenv("SYNTH_METER_IDS")); len(ids) > 0 {
		gen.MeterIDs = ids
	}
	gen.SiteName = getenvDefault("SYNTH_SITE_NAME", gen.SiteName)
	gen.Deterministic = getenvBoolDefault("SYNTH_DETERMINISTIC", gen.Deterministic)
	if value := os.Getenv("SYNTH_SEED"); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			gen.Seed = &parsed
		}
	}
	if value := os.Getenv("SYNTH_ESTIMATED_RATE"); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			gen.EstimatedRate = &parsed
		}
	}
	if value := os.Getenv("SYNTH_MISSING_RATE"); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			gen.MissingRate = &parsed
		}
	}

	cfg.Limits.MaxMeters = getenvIntDefault("SYNTH_MAX_METERS", cfg.Limits.MaxMeters)
	cfg.Limits.MaxDays = getenvIntDefault("SYNTH_MAX_DAYS", cfg.Limits.MaxDays)
	cfg.Limits.MaxPeriodValues = getenvIntDefault("SYNTH_MAX_PERIOD_VALUES", cfg.Limits.MaxPeriodValues)
	cfg.Limits.MaxMpanAttempts = getenvIntDefault("SYNTH_MAX_MPAN_ATTEMPTS", cfg.Limits.MaxMpanAttempts)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
