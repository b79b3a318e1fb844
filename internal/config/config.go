// Package config loads icecore's standalone configuration, modelled on the
// teacher's server/config package but narrowed to what the core engine
// needs when it is not embedded behind a server.
package config

import (
	"fmt"
	"os"

	"github.com/TFMV/icecore/internal/telemetry"
	"gopkg.in/yaml.v3"
)

// CatalogBackend selects a catalog.Catalog implementation.
type CatalogBackend string

const (
	CatalogMemory CatalogBackend = "memory"
	CatalogSQLite CatalogBackend = "sqlite"
)

// ObjectStoreBackend selects an objstore.Store implementation.
type ObjectStoreBackend string

const (
	ObjectStoreMemory ObjectStoreBackend = "memory"
	ObjectStoreMinio  ObjectStoreBackend = "minio"
)

type CatalogConfig struct {
	Backend CatalogBackend `yaml:"backend"`
	SQLite  SQLiteConfig   `yaml:"sqlite"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type ObjectStoreConfig struct {
	Backend ObjectStoreBackend `yaml:"backend"`
	Minio   MinioConfig        `yaml:"minio"`
}

// PlannerConfig tunes the Manifest Tree Manager.
type PlannerConfig struct {
	MinDataFilesPerManifest int `yaml:"min_data_files_per_manifest"`
}

type Config struct {
	Version     string            `yaml:"version"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Planner     PlannerConfig     `yaml:"planner"`
	Logging     telemetry.Config  `yaml:"logging"`
}

func DefaultConfig() *Config {
	return &Config{
		Version:     "1",
		Catalog:     CatalogConfig{Backend: CatalogMemory},
		ObjectStore: ObjectStoreConfig{Backend: ObjectStoreMemory},
		Planner:     PlannerConfig{MinDataFilesPerManifest: 4},
		Logging:     telemetry.DefaultConfig(),
	}
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch c.Catalog.Backend {
	case CatalogMemory, CatalogSQLite:
	default:
		return fmt.Errorf("config: unknown catalog backend %q", c.Catalog.Backend)
	}
	if c.Catalog.Backend == CatalogSQLite && c.Catalog.SQLite.Path == "" {
		return fmt.Errorf("config: catalog.sqlite.path is required for the sqlite backend")
	}
	switch c.ObjectStore.Backend {
	case ObjectStoreMemory, ObjectStoreMinio:
	default:
		return fmt.Errorf("config: unknown object store backend %q", c.ObjectStore.Backend)
	}
	if c.ObjectStore.Backend == ObjectStoreMinio && c.ObjectStore.Minio.Bucket == "" {
		return fmt.Errorf("config: object_store.minio.bucket is required for the minio backend")
	}
	if c.Planner.MinDataFilesPerManifest <= 0 {
		return fmt.Errorf("config: planner.min_data_files_per_manifest must be positive")
	}
	return nil
}
