// Package config loads the gopool command's file configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gperrors "github.com/vnykmshr/gopool/pkg/common/errors"
	"github.com/vnykmshr/gopool/pkg/common/validation"
	"github.com/vnykmshr/gopool/pkg/logger"
	"github.com/vnykmshr/gopool/pkg/scheduler"
	"github.com/vnykmshr/gopool/pkg/threadpool"
)

// FileConfig is the layout of a configuration file.
type FileConfig struct {
	Pool    PoolConfig    `yaml:"pool" json:"pool"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Jobs    []JobConfig   `yaml:"jobs" json:"jobs"`
}

// PoolConfig configures the thread pool.
type PoolConfig struct {
	Name        string `yaml:"name" json:"name"`
	Workers     int    `yaml:"workers" json:"workers"`
	FatalPanics bool   `yaml:"fatal_panics" json:"fatal_panics"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// JobConfig describes a scheduled job. Exactly one of Cron and Every is set.
// The job logs Message and then occupies its worker for Duration.
type JobConfig struct {
	ID       string `yaml:"id" json:"id"`
	Cron     string `yaml:"cron" json:"cron"`
	Every    string `yaml:"every" json:"every"`
	Message  string `yaml:"message" json:"message"`
	Duration string `yaml:"duration" json:"duration"`
}

// Default returns the configuration used when no file is given.
func Default() *FileConfig {
	return &FileConfig{
		Pool: PoolConfig{
			Name:    threadpool.DefaultName,
			Workers: 4,
		},
		Log: LogConfig{
			Level: logger.LevelInfo.String(),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}

// LoadFile reads a .yaml, .yml or .json file. Fields missing from the file
// keep their Default values.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return config, nil
}

// Validate checks the whole configuration and returns the first problem.
func (f *FileConfig) Validate() error {
	if err := validation.ValidatePositive("config", "pool.workers", f.Pool.Workers); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("config", "pool.name", f.Pool.Name); err != nil {
		return err
	}
	if _, err := f.LogLevel(); err != nil {
		return err
	}
	if f.Metrics.Enabled {
		if err := validation.ValidateNotEmpty("config", "metrics.addr", f.Metrics.Addr); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(f.Jobs))
	for i, job := range f.Jobs {
		if err := job.validate(); err != nil {
			return fmt.Errorf("jobs[%d]: %w", i, err)
		}
		if seen[job.ID] {
			return gperrors.NewValidationError("config", "jobs.id", job.ID, "duplicate").
				WithHint("job ids must be unique")
		}
		seen[job.ID] = true
	}
	return nil
}

// LogLevel parses Log.Level.
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

// ThreadPool returns the pool configuration, logging through log.
func (f *FileConfig) ThreadPool(log *logger.Logger) threadpool.Config {
	return threadpool.Config{
		WorkerCount: f.Pool.Workers,
		Name:        f.Pool.Name,
		Logger:      log,
		FatalPanics: f.Pool.FatalPanics,
	}
}

func (j JobConfig) validate() error {
	if err := validation.ValidateNotEmpty("config", "jobs.id", j.ID); err != nil {
		return err
	}
	if (j.Cron == "") == (j.Every == "") {
		return gperrors.NewValidationError("config", "jobs."+j.ID, j.Cron+j.Every, "needs exactly one schedule").
			WithHint("set either cron or every")
	}
	if j.Cron != "" {
		if _, err := scheduler.NewParser().Parse(j.Cron); err != nil {
			return gperrors.NewValidationError("config", "jobs."+j.ID+".cron", j.Cron, err.Error())
		}
	}
	if j.Every != "" {
		d, err := j.Interval()
		if err != nil {
			return err
		}
		if d <= 0 {
			return gperrors.NewValidationError("config", "jobs."+j.ID+".every", j.Every, "must be positive")
		}
	}
	if _, err := j.Work(); err != nil {
		return err
	}
	return nil
}

// Interval parses Every.
func (j JobConfig) Interval() (time.Duration, error) {
	return parseDuration("jobs."+j.ID+".every", j.Every)
}

// Work parses Duration, the time the job keeps its worker busy. Empty means zero.
func (j JobConfig) Work() (time.Duration, error) {
	d, err := parseDuration("jobs."+j.ID+".duration", j.Duration)
	if err != nil {
		return 0, err
	}
	if err := validation.ValidateDuration("config", "jobs."+j.ID+".duration", d); err != nil {
		return 0, err
	}
	return d, nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, gperrors.NewValidationError("config", field, s, "invalid duration").
			WithHint("use a Go duration such as 500ms or 2s")
	}
	return d, nil
}
