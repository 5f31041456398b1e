package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/incidentops/itsm-kpi-pipeline/internal/domain/values"
)

// DefaultPath is where Load looks when no config file is given.
const DefaultPath = "configs/config.yaml"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn error"`

	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int           `koanf:"max_conns" validate:"min=1"`
	MinConns        int           `koanf:"min_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db" validate:"min=0"`
	KeyPrefix    string        `koanf:"key_prefix"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

type PipelineConfig struct {
	Source                   string  `koanf:"source" validate:"oneof=postgres csv"`
	CSVPath                  string  `koanf:"csv_path"`
	RawTable                 string  `koanf:"raw_table" validate:"required"`
	Workers                  int     `koanf:"workers" validate:"min=1"`
	FCRThresholdHours        float64 `koanf:"fcr_threshold_hours" validate:"gt=0"`
	OutlierThresholdHours    float64 `koanf:"outlier_threshold_hours" validate:"gt=0"`
	MinGroupVolume           int     `koanf:"min_group_volume" validate:"min=0"`
	NegativeResolutionPolicy string  `koanf:"negative_resolution_policy" validate:"oneof=exclude clamp"`

	SLA           SLAConfig           `koanf:"sla"`
	BusinessHours BusinessHoursConfig `koanf:"business_hours"`
	Sinks         SinksConfig         `koanf:"sinks"`
}

type SLAConfig struct {
	CriticalHours float64 `koanf:"critical_hours" validate:"gt=0"`
	HighHours     float64 `koanf:"high_hours" validate:"gt=0"`
	ModerateHours float64 `koanf:"moderate_hours" validate:"gt=0"`
	LowHours      float64 `koanf:"low_hours" validate:"gt=0"`
}

type BusinessHoursConfig struct {
	StartHour int      `koanf:"start_hour" validate:"min=0,max=23"`
	EndHour   int      `koanf:"end_hour" validate:"min=1,max=24"`
	Weekdays  []string `koanf:"weekdays" validate:"min=1"`
}

type SinksConfig struct {
	Postgres PostgresSinkConfig `koanf:"postgres"`
	Redis    RedisSinkConfig    `koanf:"redis"`
}

type PostgresSinkConfig struct {
	Enabled               bool   `koanf:"enabled"`
	IncidentSummaryTable  string `koanf:"incident_summary_table"`
	DailyKPIsTable        string `koanf:"daily_kpis_table"`
	GroupPerformanceTable string `koanf:"group_performance_table"`
}

type RedisSinkConfig struct {
	Enabled bool `koanf:"enabled"`
}

// Load builds the configuration from defaults, an optional YAML file and
// ITSM_-prefixed environment variables, in that precedence order. An empty
// path falls back to DefaultPath and tolerates its absence; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	} else if !optional {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	// Nested keys use a double underscore: ITSM_DATABASE__URL -> database.url.
	if err := k.Load(env.Provider("ITSM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "ITSM_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate applies the struct tags plus the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	bh := c.Pipeline.BusinessHours
	if bh.StartHour >= bh.EndHour {
		return fmt.Errorf("business_hours: start_hour %d must be before end_hour %d", bh.StartHour, bh.EndHour)
	}
	if c.Pipeline.Source == "csv" && c.Pipeline.CSVPath == "" {
		return fmt.Errorf("pipeline: csv source requires csv_path")
	}
	if _, err := c.Pipeline.BusinessWindow(); err != nil {
		return err
	}
	return nil
}

// SLAPolicy converts the configured thresholds into the domain policy.
func (p PipelineConfig) SLAPolicy() (values.SLAPolicy, error) {
	return values.NewSLAPolicy(p.SLA.CriticalHours, p.SLA.HighHours, p.SLA.ModerateHours, p.SLA.LowHours)
}

// BusinessWindow converts the configured window into the domain value.
func (p PipelineConfig) BusinessWindow() (values.BusinessWindow, error) {
	days := make([]time.Weekday, 0, len(p.BusinessHours.Weekdays))
	for _, name := range p.BusinessHours.Weekdays {
		day, err := parseWeekday(name)
		if err != nil {
			return values.BusinessWindow{}, err
		}
		days = append(days, day)
	}
	return values.NewBusinessWindow(p.BusinessHours.StartHour, p.BusinessHours.EndHour, days)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(name string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("business_hours: unknown weekday %q", name)
	}
	return day, nil
}

func defaultConfig() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			MaxConns:        25,
			MinConns:        5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			KeyPrefix:    "itsm",
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			SamplingRate: 1.0,
		},
		Pipeline: PipelineConfig{
			Source:                   "postgres",
			RawTable:                 "itsm_raw_tickets",
			Workers:                  4,
			FCRThresholdHours:        1,
			OutlierThresholdHours:    720,
			MinGroupVolume:           5,
			NegativeResolutionPolicy: "exclude",
			SLA: SLAConfig{
				CriticalHours: 4,
				HighHours:     24,
				ModerateHours: 72,
				LowHours:      168,
			},
			BusinessHours: BusinessHoursConfig{
				StartHour: 8,
				EndHour:   18,
				Weekdays:  []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
			},
			Sinks: SinksConfig{
				Postgres: PostgresSinkConfig{
					Enabled:               true,
					IncidentSummaryTable:  "incident_summary",
					DailyKPIsTable:        "daily_kpis",
					GroupPerformanceTable: "group_performance",
				},
				Redis: RedisSinkConfig{Enabled: false},
			},
		},
	}
}
