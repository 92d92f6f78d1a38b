// Package config manages converter configuration from files, flags and environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/klytics/scadaflat/internal/scada"
)

// FileName is the config file name searched for in . and ~/.scadaflat.
const FileName = "scadaflat.yaml"

const envPrefix = "SCADAFLAT"

// ZoneConfig pairs a zone's input folder with its output folder.
type ZoneConfig struct {
	Input  string `mapstructure:"input" yaml:"input" json:"input" validate:"required"`
	Output string `mapstructure:"output" yaml:"output" json:"output" validate:"required"`
}

// WatchConfig configures "scadaflat watch".
type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms" yaml:"debounce_ms" json:"debounceMs" validate:"min=0"`
}

// Config holds the application configuration.
type Config struct {
	BatchSize   int          `mapstructure:"batch_size" yaml:"batch_size" json:"batchSize" validate:"gt=0"`
	OnFileError string       `mapstructure:"on_file_error" yaml:"on_file_error" json:"onFileError"`
	Workers     int          `mapstructure:"workers" yaml:"workers" json:"workers" validate:"min=1"`
	Layout      scada.Layout `mapstructure:"layout" yaml:"layout" json:"layout"`
	Zones       []ZoneConfig `mapstructure:"zones" yaml:"zones" json:"zones" validate:"dive"`
	Watch       WatchConfig  `mapstructure:"watch" yaml:"watch" json:"watch"`
}

// Default returns the built-in configuration with the two sample zones.
func Default() Config {
	return Config{
		BatchSize:   scada.DefaultBatchSize,
		OnFileError: string(scada.PolicyAbort),
		Workers:     1,
		Layout:      scada.DefaultLayout(),
		Zones: []ZoneConfig{
			{Input: "./BGM_testing", Output: "./output_BGM"},
			{Input: "./BGK_testing", Output: "./output_BGK"},
		},
		Watch: WatchConfig{DebounceMs: 500},
	}
}

func setDefaults() {
	d := Default()
	viper.SetDefault("batch_size", d.BatchSize)
	viper.SetDefault("on_file_error", d.OnFileError)
	viper.SetDefault("workers", d.Workers)
	viper.SetDefault("layout.station_cell", d.Layout.StationCell)
	viper.SetDefault("layout.date_cell", d.Layout.DateCell)
	viper.SetDefault("layout.header_row", d.Layout.HeaderRow)
	viper.SetDefault("layout.data_start_row", d.Layout.DataStartRow)
	viper.SetDefault("layout.rows", d.Layout.Rows)
	viper.SetDefault("layout.exclude", d.Layout.Exclude)
	viper.SetDefault("watch.debounce_ms", d.Watch.DebounceMs)
}

// Load reads the configuration. If file is empty, scadaflat.yaml is looked
// up in the working directory and then ~/.scadaflat; a missing file is not an
// error. SCADAFLAT_* environment variables override file values.
func Load(file string) (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config %s: %w", file, err)
		}
	} else {
		viper.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(configDir())
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("could not read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ScadaZones converts the configured folder pairs into zones.
func (c *Config) ScadaZones() []scada.Zone {
	zones := make([]scada.Zone, len(c.Zones))
	for i, z := range c.Zones {
		zones[i] = scada.NewZone(z.Input, z.Output)
	}
	return zones
}

// Policy returns the parsed file error policy.
func (c *Config) Policy() (scada.Policy, error) {
	return scada.ParsePolicy(c.OnFileError)
}

// Converter builds the transformer and converter described by c. onFile may
// be nil.
func (c *Config) Converter(logger *slog.Logger, onFile func(zone string, done, total int, path string)) (*scada.Converter, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	tf, err := scada.NewTransformer(c.Layout, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	return scada.NewConverter(tf, scada.Options{
		BatchSize:   c.BatchSize,
		OnFileError: policy,
		Workers:     c.Workers,
		Logger:      logger,
		OnFile:      onFile,
	})
}

// ConfigPath returns the config file in use, or the default location.
func ConfigPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(configDir(), FileName)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not encode config: %w", err)
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, pass --force to overwrite", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create config directory: %w", err)
		}
	}

	cfg := Default()
	data, err := Marshal(&cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}
	return nil
}

// Set stores a value and persists the config file.
func Set(key, value string) error {
	viper.Set(key, value)
	return SaveConfig()
}

// Get returns a config value as a string.
func Get(key string) string {
	return viper.GetString(key)
}

// SaveConfig writes the current settings to ConfigPath.
func SaveConfig() error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}
	return nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scadaflat"
	}
	return filepath.Join(home, ".scadaflat")
}
