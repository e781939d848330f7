package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scholarslab/nlfeatures/internal/model"
)

// Config is the root configuration for nlfeatures.
type Config struct {
	Database          string
	CoverageElementID int64 // Dublin Core "Coverage" element id
	ItemRecordTypeID  int64
	Server            ServerConfig
	Defaults          model.Defaults
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	defaultDatabase         = "nlfeatures.db"
	defaultAddr             = ":8080"
	defaultItemRecordTypeID = 2
	defaultTimeout          = 10 * time.Second
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Database          string            `yaml:"database"`
	CoverageElementID int64             `yaml:"coverage_element_id"`
	ItemRecordTypeID  int64             `yaml:"item_record_type_id"`
	Server            rawServerConfig   `yaml:"server"`
	Defaults          rawDefaultsConfig `yaml:"defaults"`
}

type rawServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

// Pointers distinguish "unset" from an explicit zero.
type rawDefaultsConfig struct {
	Zoom      *int     `yaml:"zoom"`
	CenterLon *float64 `yaml:"center_lon"`
	CenterLat *float64 `yaml:"center_lat"`
	BaseLayer *string  `yaml:"base_layer"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes. Environment variables are expanded first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	readTimeout, err := parseDuration("server.read_timeout", raw.Server.ReadTimeout, defaultTimeout)
	if err != nil {
		return nil, err
	}
	writeTimeout, err := parseDuration("server.write_timeout", raw.Server.WriteTimeout, defaultTimeout)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database:          raw.Database,
		CoverageElementID: raw.CoverageElementID,
		ItemRecordTypeID:  raw.ItemRecordTypeID,
		Server: ServerConfig{
			Addr:         raw.Server.Addr,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		Defaults: model.DefaultDefaults,
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.ItemRecordTypeID == 0 {
		cfg.ItemRecordTypeID = defaultItemRecordTypeID
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	if raw.Defaults.Zoom != nil {
		cfg.Defaults.Zoom = *raw.Defaults.Zoom
	}
	if raw.Defaults.CenterLon != nil {
		cfg.Defaults.CenterLon = *raw.Defaults.CenterLon
	}
	if raw.Defaults.CenterLat != nil {
		cfg.Defaults.CenterLat = *raw.Defaults.CenterLat
	}
	if raw.Defaults.BaseLayer != nil {
		cfg.Defaults.BaseLayer = *raw.Defaults.BaseLayer
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.CoverageElementID <= 0 {
		return fmt.Errorf("coverage_element_id must be positive, got %d", cfg.CoverageElementID)
	}
	if cfg.ItemRecordTypeID < 0 {
		return fmt.Errorf("item_record_type_id must not be negative, got %d", cfg.ItemRecordTypeID)
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive, got read=%v write=%v",
			cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	}

	d := cfg.Defaults
	if d.Zoom < 0 || d.Zoom > model.MaxZoom {
		return fmt.Errorf("defaults.zoom must be between 0 and %d, got %d", model.MaxZoom, d.Zoom)
	}
	if d.CenterLon < -180 || d.CenterLon > 180 {
		return fmt.Errorf("defaults.center_lon must be between -180 and 180, got %v", d.CenterLon)
	}
	if d.CenterLat < -90 || d.CenterLat > 90 {
		return fmt.Errorf("defaults.center_lat must be between -90 and 90, got %v", d.CenterLat)
	}
	if d.BaseLayer == "" {
		return fmt.Errorf("defaults.base_layer must not be empty")
	}

	return nil
}
