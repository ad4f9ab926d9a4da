package storage

import (
	"path/filepath"
)

// PathConfig holds configuration for storage path generation.
type PathConfig struct {
	// BasePath is the root directory for blob storage.
	BasePath string

	// ShardLevels is the number of directory levels for sharding.
	// Default: 2 (e.g., /ab/cd/abcdef...)
	ShardLevels int

	// ShardWidth is the number of characters per shard level.
	// Default: 2 (e.g., ab, cd)
	ShardWidth int
}

// DefaultPathConfig returns the default path configuration.
func DefaultPathConfig(basePath string) PathConfig {
	return PathConfig{
		BasePath:    basePath,
		ShardLevels: 2,
		ShardWidth:  2,
	}
}

// ComputePath generates the storage path for a blob reference.
// Uses directory sharding on the leading hash characters so no single
// directory grows too large.
//
// Example with default config (2 levels, 2 chars each):
//
//	ref: "abcdef1234567890....png"
//	basePath: "/data"
//	result: "/data/ab/cd/abcdef1234567890....png"
func ComputePath(config PathConfig, ref string) string {
	return filepath.Join(GetShardPath(config, ref), ref)
}

// GetShardPath returns the directory path for a reference (without the filename).
//
// Example:
//
//	ref: "abcdef..."
//	basePath: "/data"
//	result: "/data/ab/cd"
func GetShardPath(config PathConfig, ref string) string {
	minLength := config.ShardLevels * config.ShardWidth
	if len(ref) < minLength {
		return config.BasePath
	}

	components := make([]string, 0, config.ShardLevels+1)
	components = append(components, config.BasePath)

	offset := 0
	for i := 0; i < config.ShardLevels; i++ {
		components = append(components, ref[offset:offset+config.ShardWidth])
		offset += config.ShardWidth
	}

	return filepath.Join(components...)
}
