package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jackdeye/UCLA-Housing-Analysis/internal/tabular"
)

// Config holds the full application configuration.
type Config struct {
	Input    InputConfig    `yaml:"input" mapstructure:"input"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// InputConfig controls how snapshot and covariate files are read.
type InputConfig struct {
	Delimiter  string `yaml:"delimiter" mapstructure:"delimiter"`
	Charset    string `yaml:"charset" mapstructure:"charset"`
	Sheet      string `yaml:"sheet" mapstructure:"sheet"`
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	TrimSpace  bool   `yaml:"trim_space" mapstructure:"trim_space"`
}

// AnalysisConfig holds defaults for analysis runs. Plan files override them
// per run.
type AnalysisConfig struct {
	ThresholdPct    float64       `yaml:"threshold_pct" mapstructure:"threshold_pct"`
	Aggregation     string        `yaml:"aggregation" mapstructure:"aggregation"`
	CensorPolicy    string        `yaml:"censor_policy" mapstructure:"censor_policy"`
	CensorOffset    time.Duration `yaml:"censor_offset" mapstructure:"censor_offset"`
	JoinMode        string        `yaml:"join_mode" mapstructure:"join_mode"`
	Method          string        `yaml:"method" mapstructure:"method"`
	LeadingPolicy   string        `yaml:"leading_policy" mapstructure:"leading_policy"`
	DuplicatePolicy string        `yaml:"duplicate_policy" mapstructure:"duplicate_policy"`
	ReferenceYear   int           `yaml:"reference_year" mapstructure:"reference_year"`
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("HOUSING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("input.trim_space", true)
	v.SetDefault("analysis.threshold_pct", 80.0)
	v.SetDefault("analysis.aggregation", "building")
	v.SetDefault("analysis.censor_policy", "penalty")
	v.SetDefault("analysis.censor_offset", "24h")
	v.SetDefault("analysis.join_mode", "inner")
	v.SetDefault("analysis.method", "spearman")
	v.SetDefault("analysis.leading_policy", "exclude")
	v.SetDefault("analysis.duplicate_policy", "last")
	v.SetDefault("analysis.reference_year", 0)
	v.SetDefault("output.dir", "out")

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

// Validate checks the analysis defaults.
func (c *Config) Validate() error {
	var missing []string
	if !(c.Analysis.ThresholdPct > 0 && c.Analysis.ThresholdPct <= 100) {
		missing = append(missing, "analysis.threshold_pct in (0, 100]")
	}
	if c.Analysis.CensorOffset <= 0 {
		missing = append(missing, "analysis.censor_offset > 0")
	}
	if c.Analysis.ReferenceYear < 0 {
		missing = append(missing, "analysis.reference_year >= 0")
	}
	if len([]rune(c.Input.Delimiter)) > 1 {
		missing = append(missing, "input.delimiter of one character")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: invalid settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DelimiterRune returns the configured delimiter, or 0 for the default.
func (c InputConfig) DelimiterRune() rune {
	r := []rune(c.Delimiter)
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

// TabularOptions converts the input settings for the tabular readers.
func (c InputConfig) TabularOptions() tabular.Options {
	return tabular.Options{
		CSV: tabular.CSVOptions{
			Delimiter: c.DelimiterRune(),
			Charset:   c.Charset,
			TrimSpace: c.TrimSpace,
		},
		XLSX: tabular.XLSXOptions{SheetIndex: c.SheetIndex, SheetName: c.Sheet},
	}
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
