package filesink

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config defines the sink and logger configuration parameters.
// All fields can be provided via YAML configuration files.
type Config struct {
	Directory       string `yaml:"directory" json:"directory"`                 // Directory for the dated log files
	Extension       string `yaml:"extension" json:"extension"`                 // File extension without the leading dot
	Format          string `yaml:"format" json:"format"`                       // Line encoding: text, ndjson
	Level           int64  `yaml:"level" json:"level"`                         // LevelDebug, LevelInfo, LevelWarn, LevelError
	HighWaterMark   int64  `yaml:"high_water_mark" json:"high_water_mark"`     // Buffered bytes that force an immediate flush
	FlushIntervalMS int64  `yaml:"flush_interval_ms" json:"flush_interval_ms"` // Periodic flush interval in milliseconds
	FileMode        int64  `yaml:"file_mode" json:"file_mode"`                 // Permission bits for created log files
	RetentionDays   int64  `yaml:"retention_days" json:"retention_days"`       // Days to keep dated files, 0 disables retention
}

// defaultConfig values are used for any field the user leaves at its zero value.
func defaultConfig() *Config {
	return &Config{
		Directory:       "",
		Extension:       "log",
		Format:          "text",
		Level:           LevelInfo,
		HighWaterMark:   64 * 1024,
		FlushIntervalMS: 500,
		FileMode:        0o640,
		RetentionDays:   0,
	}
}

// mergeConfig fills the zero-valued fields of cfg from the defaults.
// Directory and RetentionDays keep their zero values: an empty directory
// defers setup to SetupDirectory and zero retention disables the cleanup pass.
func mergeConfig(cfg *Config) *Config {
	def := defaultConfig()
	if cfg == nil {
		return def
	}
	merged := &Config{
		Directory:       cfg.Directory,
		Extension:       getConfigValue(def.Extension, cfg.Extension),
		Format:          getConfigValue(def.Format, cfg.Format),
		Level:           getConfigValue(def.Level, cfg.Level),
		HighWaterMark:   getConfigValue(def.HighWaterMark, cfg.HighWaterMark),
		FlushIntervalMS: getConfigValue(def.FlushIntervalMS, cfg.FlushIntervalMS),
		FileMode:        getConfigValue(def.FileMode, cfg.FileMode),
		RetentionDays:   cfg.RetentionDays,
	}
	// Negative values would panic time.NewTicker or force a flush on every
	// append.
	if merged.FlushIntervalMS < 1 {
		merged.FlushIntervalMS = def.FlushIntervalMS
	}
	if merged.HighWaterMark < 1 {
		merged.HighWaterMark = def.HighWaterMark
	}
	return merged
}

// getConfigValue returns defaultVal if cfgVal equals the zero value for type T,
// otherwise returns cfgVal. Type T must satisfy the comparable constraint.
func getConfigValue[T comparable](defaultVal, cfgVal T) T {
	var zero T
	if cfgVal == zero {
		return defaultVal
	}
	return cfgVal
}

// LoadConfig reads a YAML configuration file. Missing fields fall back to the
// defaults when the resulting Config is handed to New.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return &cfg, nil
}
