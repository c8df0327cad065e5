package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML overlays. Nil fields keep the current value.
type fileConfig struct {
	Logging struct {
		Level  *string `yaml:"level"`
		File   *string `yaml:"file"`
		Pretty *bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Layout struct {
		JPEGQuality  *int    `yaml:"jpeg_quality"`
		InlinePrefix *string `yaml:"inline_break_prefix"`
		PagePrefix   *string `yaml:"page_break_prefix"`
	} `yaml:"layout"`
	Output struct {
		Dir        *string `yaml:"dir"`
		OnExists   *string `yaml:"on_exists"`
		TempMaxAge *string `yaml:"temp_max_age"`
	} `yaml:"output"`
	Server struct {
		Port      *string `yaml:"port"`
		RedisURL  *string `yaml:"redis_url"`
		QueueSize *int    `yaml:"queue_size"`
		InputRoot *string `yaml:"input_root"`
	} `yaml:"server"`
	Storage struct {
		S3Enabled *bool   `yaml:"s3_enabled"`
		S3Region  *string `yaml:"s3_region"`
	} `yaml:"storage"`
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.Logging.Level, fc.Logging.Level)
	setString(&cfg.Logging.File, fc.Logging.File)
	if fc.Logging.Pretty != nil {
		cfg.Logging.Pretty = *fc.Logging.Pretty
	}

	if fc.Layout.JPEGQuality != nil {
		cfg.Layout.JPEGQuality = *fc.Layout.JPEGQuality
	}
	setString(&cfg.Layout.InlinePrefix, fc.Layout.InlinePrefix)
	setString(&cfg.Layout.PagePrefix, fc.Layout.PagePrefix)

	setString(&cfg.Output.Dir, fc.Output.Dir)
	setString(&cfg.Output.OnExists, fc.Output.OnExists)
	if fc.Output.TempMaxAge != nil {
		d, err := time.ParseDuration(*fc.Output.TempMaxAge)
		if err != nil {
			return fmt.Errorf("output.temp_max_age: %w", err)
		}
		cfg.Output.TempMaxAge = d
	}

	setString(&cfg.Server.Port, fc.Server.Port)
	setString(&cfg.Server.RedisURL, fc.Server.RedisURL)
	setString(&cfg.Server.InputRoot, fc.Server.InputRoot)
	if fc.Server.QueueSize != nil {
		cfg.Server.QueueSize = *fc.Server.QueueSize
	}

	if fc.Storage.S3Enabled != nil {
		cfg.Storage.S3Enabled = *fc.Storage.S3Enabled
	}
	setString(&cfg.Storage.S3Region, fc.Storage.S3Region)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Layout.JPEGQuality < 1 || c.Layout.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality %d out of range 1..100", c.Layout.JPEGQuality))
	}
	if c.Layout.InlinePrefix == "" || c.Layout.PagePrefix == "" {
		errs = append(errs, errors.New("break prefixes must not be empty"))
	}
	if c.Layout.InlinePrefix == c.Layout.PagePrefix {
		errs = append(errs, fmt.Errorf("inline and page break prefixes are both %q", c.Layout.InlinePrefix))
	}
	switch c.Output.OnExists {
	case "fail", "overwrite", "rename":
	default:
		errs = append(errs, fmt.Errorf("on_exists %q must be fail, overwrite or rename", c.Output.OnExists))
	}
	if c.Server.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("job queue size %d must be positive", c.Server.QueueSize))
	}
	return errors.Join(errs...)
}
