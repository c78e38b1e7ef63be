package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath is the path to the canonical conversion defaults file.
const DefaultConfigPath = "config/convert.defaults.json"

// Default values used when a field is absent from the loaded config.
const (
	DefaultChunkSize       = 64 * 1024
	DefaultReadBufferBytes = 10 * 1024 * 1024
	DefaultHistogramBins   = 64
)

// ConvertConfig holds the tunables of a PLY to SPLAT conversion. Fields
// are pointers so a partial JSON file only overrides what it names.
type ConvertConfig struct {
	Sort            *bool `json:"sort,omitempty"`
	Workers         *int  `json:"workers,omitempty"` // 0 means one per CPU
	ChunkSize       *int  `json:"chunk_size,omitempty"`
	ReadBufferBytes *int  `json:"read_buffer_bytes,omitempty"`
	HistogramBins   *int  `json:"histogram_bins,omitempty"`

	// History database; empty disables run recording.
	HistoryDB *string `json:"history_db,omitempty"`
}

// EmptyConvertConfig returns a ConvertConfig with every field unset.
func EmptyConvertConfig() *ConvertConfig {
	return &ConvertConfig{}
}

// LoadConvertConfig loads a ConvertConfig from a JSON file. The file must
// have a .json extension and be at most 1MB.
func LoadConvertConfig(path string) (*ConvertConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConvertConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the set values are usable.
func (c *ConvertConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.ChunkSize != nil && *c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", *c.ChunkSize)
	}
	if c.ReadBufferBytes != nil && *c.ReadBufferBytes < 4096 {
		return fmt.Errorf("read_buffer_bytes must be at least 4096, got %d", *c.ReadBufferBytes)
	}
	if c.HistogramBins != nil && (*c.HistogramBins < 1 || *c.HistogramBins > 4096) {
		return fmt.Errorf("histogram_bins must be between 1 and 4096, got %d", *c.HistogramBins)
	}
	return nil
}

// GetSort reports whether records are importance-sorted. Default true.
func (c *ConvertConfig) GetSort() bool {
	if c.Sort == nil {
		return true
	}
	return *c.Sort
}

// GetWorkers returns the worker pool size, resolving 0 to runtime.NumCPU.
func (c *ConvertConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetChunkSize returns the chunk_size value or the default.
func (c *ConvertConfig) GetChunkSize() int {
	if c.ChunkSize == nil {
		return DefaultChunkSize
	}
	return *c.ChunkSize
}

// GetReadBufferBytes returns the read_buffer_bytes value or the default.
func (c *ConvertConfig) GetReadBufferBytes() int {
	if c.ReadBufferBytes == nil {
		return DefaultReadBufferBytes
	}
	return *c.ReadBufferBytes
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *ConvertConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return DefaultHistogramBins
	}
	return *c.HistogramBins
}

// GetHistoryDB returns the history database path, or "" when unset.
func (c *ConvertConfig) GetHistoryDB() string {
	if c.HistoryDB == nil {
		return ""
	}
	return *c.HistoryDB
}
