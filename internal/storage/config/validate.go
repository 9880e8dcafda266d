package config

import (
	"errors"
	"fmt"
	"os"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	// DataDir
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	// Partitioning
	if err := c.Partitioning.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("partitioning: %w", err))
	}

	// Compression
	if err := c.Compression.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("compression: %w", err))
	}

	// Files
	if err := c.Files.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("files: %w", err))
	}

	// Append
	if err := c.Append.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("append: %w", err))
	}

	// Query
	if err := c.Query.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("query: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the partitioning configuration.
func (c *PartitioningConfig) Validate() error {
	validSchemes := map[string]bool{
		"yearly":  true,
		"monthly": true,
		"daily":   true,
		"":        true, // Empty defaults to monthly
	}
	if !validSchemes[c.Scheme] {
		return errors.New("scheme must be one of: yearly, monthly, daily")
	}
	return nil
}

// Validate checks the compression configuration.
func (c *CompressionConfig) Validate() error {
	var errs []error

	validAlgorithms := map[string]bool{
		"snappy": true,
		"zstd":   true,
		"lz4":    true,
		"gzip":   true,
		"none":   true,
		"":       true, // Empty defaults to zstd
	}
	if !validAlgorithms[c.Algorithm] {
		errs = append(errs, errors.New("algorithm must be one of: snappy, zstd, lz4, gzip, none"))
	}

	if c.Algorithm == "zstd" && (c.Level < 0 || c.Level > 22) {
		errs = append(errs, errors.New("level for zstd must be between 0 and 22"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the files configuration.
func (c *FilesConfig) Validate() error {
	if c.MaxRowsPerFile <= 0 {
		return errors.New("max_rows_per_file must be positive")
	}
	return nil
}

// Validate checks the append configuration.
func (c *AppendConfig) Validate() error {
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	return nil
}

// Validate checks the query configuration.
func (c *QueryConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", c.DataDir, err)
	}
	return nil
}

// Scheme returns the configured partition scheme, defaulting to monthly.
func (c *Config) Scheme() string {
	if c.Partitioning.Scheme == "" {
		return "monthly"
	}
	return c.Partitioning.Scheme
}
