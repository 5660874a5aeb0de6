package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Regions     RegionsConfig     `yaml:"regions" mapstructure:"regions"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	Attribution AttributionConfig `yaml:"attribution" mapstructure:"attribution"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RegionsConfig points at the canonical region reference list.
type RegionsConfig struct {
	ReferencePath string `yaml:"reference_path" mapstructure:"reference_path"`
}

// IngestConfig configures workbook ingestion.
type IngestConfig struct {
	Workers          int    `yaml:"workers" mapstructure:"workers"`
	CoordinatorSheet string `yaml:"coordinator_sheet" mapstructure:"coordinator_sheet"`
	SubLeaderSheet   string `yaml:"subleader_sheet" mapstructure:"subleader_sheet"`
	MemberSheet      string `yaml:"member_sheet" mapstructure:"member_sheet"`
}

// AttributionConfig configures the attendance and visit log inputs.
type AttributionConfig struct {
	AttendancePath string `yaml:"attendance_path" mapstructure:"attendance_path"`
	VisitsPath     string `yaml:"visits_path" mapstructure:"visits_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the settings a command mode depends on. Modes: "ingest"
// needs the region reference and a store; "attribute" additionally needs
// the attendance and visit inputs.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Store.DatabaseURL != "", "store.database_url is required")
	if c.Store.Driver != "" && c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "ingest":
		check(c.Regions.ReferencePath != "", "regions.reference_path is required")
		check(c.Ingest.Workers >= 1 && c.Ingest.Workers <= 64, "ingest.workers must be between 1 and 64")
	case "attribute":
		check(c.Attribution.AttendancePath != "", "attribution.attendance_path is required")
		check(c.Attribution.VisitsPath != "", "attribution.visits_path is required")
	case "store":
		// store-only commands need nothing beyond the shared checks
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FIELDOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "fieldops.db")
	v.SetDefault("regions.reference_path", "regions.yaml")
	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.coordinator_sheet", "")
	v.SetDefault("ingest.subleader_sheet", "")
	v.SetDefault("ingest.member_sheet", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
