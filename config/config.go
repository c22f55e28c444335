package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vinodismyname/floodreport/pkg/validation"
)

// EnvPrefix namespaces environment overrides, e.g. FLOODREPORT_WINDOW_FROM=2022.
const EnvPrefix = "FLOODREPORT"

// Config is the resolved runtime configuration for the CLI and server.
type Config struct {
	Input       string           `mapstructure:"input" validate:"required,dataset_ext"`
	Sheet       string           `mapstructure:"sheet"`
	OutDir      string           `mapstructure:"out" validate:"required"`
	Reports     string           `mapstructure:"reports" validate:"report_list"`
	Window      WindowConfig     `mapstructure:"window"`
	Efficiency  EfficiencyConfig `mapstructure:"efficiency"`
	Contractors ContractorConfig `mapstructure:"contractors"`
	Export      ExportConfig     `mapstructure:"export"`
	Server      ServerConfig     `mapstructure:"server"`
	Logging     LoggingConfig    `mapstructure:"logging"`
}

// WindowConfig selects the inclusive year range applied at load time.
type WindowConfig struct {
	DateColumn string `mapstructure:"date_column" validate:"required"`
	From       int    `mapstructure:"from" validate:"min=1900,max=9999"`
	To         int    `mapstructure:"to" validate:"gtefield=From,max=9999"`
}

// EfficiencyConfig tunes the regional efficiency report.
type EfficiencyConfig struct {
	ZeroDelayPolicy string  `mapstructure:"zero_delay_policy" validate:"oneof=zero savings"`
	HighDelayDays   float64 `mapstructure:"high_delay_days" validate:"gt=0"`
}

// ContractorConfig tunes the contractor ranking report.
type ContractorConfig struct {
	MinProjects        int     `mapstructure:"min_projects" validate:"min=1"`
	Top                int     `mapstructure:"top" validate:"min=1"`
	ReliabilityHorizon float64 `mapstructure:"reliability_horizon" validate:"gt=0"`
	HighRiskBelow      float64 `mapstructure:"high_risk_below" validate:"gt=0,lte=100"`
}

// ExportConfig toggles optional export sinks.
type ExportConfig struct {
	Workbook bool `mapstructure:"workbook"`
}

// ServerConfig bounds the MCP server.
type ServerConfig struct {
	AllowedDirs           []string      `mapstructure:"allowed_dirs"`
	MaxConcurrentRequests int           `mapstructure:"max_concurrent_requests" validate:"min=1"`
	MaxCachedDatasets     int           `mapstructure:"max_cached_datasets" validate:"min=1"`
	DatasetIdleTTL        time.Duration `mapstructure:"dataset_idle_ttl"`
	OperationTimeout      time.Duration `mapstructure:"operation_timeout"`
	AcquireRequestTimeout time.Duration `mapstructure:"acquire_request_timeout"`
}

// LoggingConfig controls the zerolog root logger.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

// New returns a viper instance with defaults registered and environment
// overrides enabled. Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("input", DefaultInputPath)
	v.SetDefault("sheet", "")
	v.SetDefault("out", DefaultOutputDir)
	v.SetDefault("reports", "")
	v.SetDefault("window.date_column", DefaultDateColumn)
	v.SetDefault("window.from", DefaultFromYear)
	v.SetDefault("window.to", DefaultToYear)
	v.SetDefault("efficiency.zero_delay_policy", "zero")
	v.SetDefault("efficiency.high_delay_days", DefaultHighDelayDays)
	v.SetDefault("contractors.min_projects", DefaultMinContractorRows)
	v.SetDefault("contractors.top", DefaultTopContractors)
	v.SetDefault("contractors.reliability_horizon", DefaultReliabilityHorizon)
	v.SetDefault("contractors.high_risk_below", DefaultHighRiskBelow)
	v.SetDefault("export.workbook", false)
	v.SetDefault("server.allowed_dirs", []string{})
	v.SetDefault("server.max_concurrent_requests", DefaultMaxConcurrentRequests)
	v.SetDefault("server.max_cached_datasets", DefaultMaxCachedDatasets)
	v.SetDefault("server.dataset_idle_ttl", DefaultDatasetIdleTTL)
	v.SetDefault("server.operation_timeout", DefaultOperationTimeout)
	v.SetDefault("server.acquire_request_timeout", DefaultAcquireRequestTimeout)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v, unmarshals the merged
// view (defaults < file < env < flags) and validates it.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if msg := validation.ValidateStruct(cfg); msg != "" {
		return nil, errors.New(msg)
	}
	return &cfg, nil
}

// SelectedReports returns the normalized report names, or nil when all reports
// are selected.
func (c *Config) SelectedReports() []string {
	s := strings.TrimSpace(c.Reports)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
