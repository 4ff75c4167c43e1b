package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/crimson-sun/trendwatch/internal/engine/entity"
	"github.com/crimson-sun/trendwatch/internal/engine/series"
	"github.com/crimson-sun/trendwatch/internal/model"
)

// Config holds all trendwatch configuration.
type Config struct {
	Annex      AnnexConfig      `yaml:"annex"`
	Columns    ColumnsConfig    `yaml:"columns"`
	Engine     EngineConfig     `yaml:"engine"`
	Capability CapabilityConfig `yaml:"capability"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
}

// AnnexConfig locates the classification table.
type AnnexConfig struct {
	Path string `yaml:"path"` // .xlsx or .csv; empty runs prefix-only
}

// ColumnsConfig maps column roles to dataset column names.
type ColumnsConfig struct {
	Code                  string   `yaml:"code"`
	ManufacturerPrimary   string   `yaml:"manufacturer"`
	ManufacturerSecondary string   `yaml:"manufacturer_secondary"`
	Date                  []string `yaml:"date"` // first present wins
	Problem               string   `yaml:"problem"`
	Mapped                string   `yaml:"mapped"`
}

// EngineConfig holds resolution and analysis settings.
type EngineConfig struct {
	Separator        string        `yaml:"separator"`
	ProblemSeparator string        `yaml:"problem_separator"`
	DatePatterns     []string      `yaml:"date_patterns"` // Go time layouts
	Grain            string        `yaml:"grain"`         // "daily", "weekly", "monthly"
	WeekStart        string        `yaml:"week_start"`
	Sensitivity      float64       `yaml:"sensitivity"`
	MinConfidence    float64       `yaml:"min_confidence"`
	TopN             int           `yaml:"top_n"`
	Workers          int           `yaml:"workers"`
	FallbackTimeout  time.Duration `yaml:"fallback_timeout"`
	VerifyLimit      int           `yaml:"verify_limit"`
	Suffixes         []string      `yaml:"suffixes"`
}

// CapabilityConfig selects the external fallback provider.
type CapabilityConfig struct {
	Provider string            `yaml:"provider"` // "", "none", "semantic", "remote"
	APIKey   string            `yaml:"api_key"`
	Model    string            `yaml:"model"`
	Endpoint string            `yaml:"endpoint"`
	Extra    map[string]string `yaml:"extra"`
}

// OutputConfig holds output destination settings.
type OutputConfig struct {
	Format string `yaml:"format"` // "stdout", "file", "xlsx"; comma-separated for several
	Path   string `yaml:"path"`
	Pretty bool   `yaml:"pretty"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Columns: ColumnsConfig{
			Code:                  "IMDRF Code",
			ManufacturerPrimary:   "Manufacturer",
			ManufacturerSecondary: "Manufacturer Name",
			Date:                  []string{"Event Date", "Date Received"},
			Problem:               "Device Problem",
			Mapped:                "IMDRF Code",
		},
		Engine: EngineConfig{
			Separator:        "|",
			ProblemSeparator: ";",
			DatePatterns:     []string{"02-01-2006"},
			Grain:            "weekly",
			WeekStart:        "monday",
			Sensitivity:      2.0,
			MinConfidence:    0.6,
			TopN:             5,
			Workers:          8,
			FallbackTimeout:  10 * time.Second,
			VerifyLimit:      20,
			Suffixes:         append([]string(nil), entity.DefaultSuffixes...),
		},
		Output: OutputConfig{Format: "stdout"},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads configuration from environment variables over the defaults.
func Load() Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML file over the defaults, then applies environment
// overrides. A missing file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	if _, err := model.ParseGrain(c.Engine.Grain); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, ok := series.ParseWeekday(c.Engine.WeekStart); !ok {
		return fmt.Errorf("config: unknown week start %q", c.Engine.WeekStart)
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("config: min confidence %v outside [0, 1]", c.Engine.MinConfidence)
	}
	if len(c.Engine.DatePatterns) == 0 {
		return fmt.Errorf("config: no date patterns")
	}
	if c.Columns.Code == "" || c.Columns.ManufacturerPrimary == "" || len(c.Columns.Date) == 0 {
		return fmt.Errorf("config: code, manufacturer and date columns are required")
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Annex.Path, "TRENDWATCH_ANNEX")

	setString(&c.Columns.Code, "TRENDWATCH_CODE_COLUMN")
	setString(&c.Columns.ManufacturerPrimary, "TRENDWATCH_MANUFACTURER_COLUMN")
	setString(&c.Columns.ManufacturerSecondary, "TRENDWATCH_MANUFACTURER_SECONDARY_COLUMN")
	setList(&c.Columns.Date, "TRENDWATCH_DATE_COLUMNS")
	setString(&c.Columns.Problem, "TRENDWATCH_PROBLEM_COLUMN")
	setString(&c.Columns.Mapped, "TRENDWATCH_MAPPED_COLUMN")

	setString(&c.Engine.Separator, "TRENDWATCH_SEPARATOR")
	setString(&c.Engine.ProblemSeparator, "TRENDWATCH_PROBLEM_SEPARATOR")
	setList(&c.Engine.DatePatterns, "TRENDWATCH_DATE_PATTERNS")
	setString(&c.Engine.Grain, "TRENDWATCH_GRAIN")
	setString(&c.Engine.WeekStart, "TRENDWATCH_WEEK_START")
	c.Engine.Sensitivity = getenvFloat("TRENDWATCH_SENSITIVITY", c.Engine.Sensitivity)
	c.Engine.MinConfidence = getenvFloat("TRENDWATCH_MIN_CONFIDENCE", c.Engine.MinConfidence)
	c.Engine.TopN = getenvInt("TRENDWATCH_TOP_N", c.Engine.TopN)
	c.Engine.Workers = getenvInt("TRENDWATCH_WORKERS", c.Engine.Workers)
	c.Engine.FallbackTimeout = getenvDuration("TRENDWATCH_FALLBACK_TIMEOUT", c.Engine.FallbackTimeout)
	c.Engine.VerifyLimit = getenvInt("TRENDWATCH_VERIFY_LIMIT", c.Engine.VerifyLimit)
	setList(&c.Engine.Suffixes, "TRENDWATCH_SUFFIXES")

	setString(&c.Capability.Provider, "TRENDWATCH_CAPABILITY")
	setString(&c.Capability.APIKey, "TRENDWATCH_API_KEY")
	setString(&c.Capability.Model, "TRENDWATCH_MODEL")
	setString(&c.Capability.Endpoint, "TRENDWATCH_ENDPOINT")
	if v := os.Getenv("TRENDWATCH_GENERATE_MODEL"); v != "" {
		if c.Capability.Extra == nil {
			c.Capability.Extra = make(map[string]string)
		}
		c.Capability.Extra["generate_model"] = v
	}

	setString(&c.Output.Format, "TRENDWATCH_OUTPUT")
	setString(&c.Output.Path, "TRENDWATCH_OUTPUT_PATH")
	c.Output.Pretty = getenvBool("TRENDWATCH_OUTPUT_PRETTY", c.Output.Pretty)

	setString(&c.Log.Level, "TRENDWATCH_LOG_LEVEL")
	setString(&c.Log.Format, "TRENDWATCH_LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setList reads a comma-separated list. Empty entries are dropped.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
