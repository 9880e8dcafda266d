package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete storage configuration.
type Config struct {
	// DataDir is the root directory for all datasets.
	DataDir string `yaml:"data_dir"`

	// Partitioning configures how datasets are split into directories.
	Partitioning PartitioningConfig `yaml:"partitioning"`

	// Compression configures Parquet compression.
	Compression CompressionConfig `yaml:"compression"`

	// Files configures part file layout.
	Files FilesConfig `yaml:"files"`

	// Append configures the append path.
	Append AppendConfig `yaml:"append"`

	// Query configures the query engine.
	Query QueryConfig `yaml:"query"`
}

// PartitioningConfig configures how datasets are split into directories.
type PartitioningConfig struct {
	// Scheme is the partition granularity: yearly, monthly, daily.
	// New datasets use it; existing datasets keep the scheme they were
	// written with.
	Scheme string `yaml:"scheme"`
}

// CompressionConfig configures Parquet compression.
type CompressionConfig struct {
	// Algorithm is the compression algorithm: snappy, zstd, lz4, gzip, none.
	Algorithm string `yaml:"algorithm"`

	// Level is the compression level (for zstd: 1-22).
	Level int `yaml:"level"`
}

// FilesConfig configures part file layout.
type FilesConfig struct {
	// MaxRowsPerFile caps rows per part file; larger partitions are
	// chunked into several files.
	MaxRowsPerFile int `yaml:"max_rows_per_file"`
}

// AppendConfig configures the append path.
type AppendConfig struct {
	// Workers is the number of partitions rewritten in parallel.
	Workers int `yaml:"workers"`
}

// QueryConfig configures the query engine.
type QueryConfig struct {
	// MemoryLimit is the DuckDB memory limit.
	MemoryLimit string `yaml:"memory_limit"`

	// Timeout is the per-query timeout.
	Timeout Duration `yaml:"timeout"`
}

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int (seconds)
		var i int
		if err := unmarshal(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "/var/lib/candlestore/data",
		Partitioning: PartitioningConfig{
			Scheme: "monthly",
		},
		Compression: CompressionConfig{
			Algorithm: "zstd",
			Level:     3,
		},
		Files: FilesConfig{
			MaxRowsPerFile: 1000000,
		},
		Append: AppendConfig{
			Workers: 4,
		},
		Query: QueryConfig{
			MemoryLimit: "2GB",
			Timeout:     Duration(30 * time.Second),
		},
	}
}
