package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wkalt/outline/storage"
	"gopkg.in/yaml.v3"
)

/*
Config is the YAML form of the service options, for deployments that prefer a
file to flags. Example:

	port: 8089
	log_level: info
	database:
	  driver: postgres
	  dsn: postgres://outline@localhost/outline?sslmode=disable
	verify_invariants: true
	snapshots:
	  s3:
	    endpoint: localhost:9000
	    bucket: outline
	    access_key_id: minioadmin
	    secret_key: minioadmin
*/

////////////////////////////////////////////////////////////////////////////////

// Config is the service configuration file.
type Config struct {
	Port             int             `yaml:"port"`
	LogLevel         string          `yaml:"log_level"`
	LogFormat        string          `yaml:"log_format"`
	Database         DatabaseConfig  `yaml:"database"`
	AllowedOrigins   []string        `yaml:"allowed_origins"`
	SharedKey        string          `yaml:"shared_key"`
	VerifyInvariants bool            `yaml:"verify_invariants"`
	CacheSize        int             `yaml:"cache_size"`
	Snapshots        SnapshotsConfig `yaml:"snapshots"`
}

// DatabaseConfig selects the division store database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SnapshotsConfig selects where snapshots are stored. At most one of Dir and
// S3 may be set; with neither, snapshots are disabled.
type SnapshotsConfig struct {
	Dir string    `yaml:"dir"`
	S3  *S3Config `yaml:"s3"`
}

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Endpoint    string `yaml:"endpoint"`
	AccessKeyID string `yaml:"access_key_id"`
	SecretKey   string `yaml:"secret_key"`
	Bucket      string `yaml:"bucket"`
	Region      string `yaml:"region"`
	TLS         bool   `yaml:"tls"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Port:      8089,
		LogLevel:  "info",
		LogFormat: "text",
		Database:  DatabaseConfig{Driver: "sqlite3"},
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8080",
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults. Unknown keys
// are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	conf := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return conf, nil
}

// SnapshotProvider builds the configured snapshot provider, or nil if
// snapshots are disabled.
func (c *Config) SnapshotProvider() (storage.Provider, error) {
	switch {
	case c.Snapshots.Dir != "" && c.Snapshots.S3 != nil:
		return nil, errors.New("cannot configure both a snapshot directory and S3")
	case c.Snapshots.Dir != "":
		if err := os.MkdirAll(c.Snapshots.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		return storage.NewDirectoryStore(c.Snapshots.Dir), nil
	case c.Snapshots.S3 != nil:
		s3 := c.Snapshots.S3
		if s3.Endpoint == "" || s3.Bucket == "" {
			return nil, errors.New("S3 snapshots require an endpoint and a bucket")
		}
		mc, err := minio.New(s3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s3.AccessKeyID, s3.SecretKey, ""),
			Secure: s3.TLS,
			Region: s3.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return storage.NewS3Store(mc, s3.Bucket), nil
	default:
		return nil, nil
	}
}

// Options converts the configuration to service options.
func (c *Config) Options() ([]Option, error) {
	provider, err := c.SnapshotProvider()
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithPort(c.Port),
		WithDatabase(c.Database.Driver, c.Database.DSN),
		WithAllowedOrigins(c.AllowedOrigins),
		WithSharedKey(c.SharedKey),
		WithInvariantChecks(c.VerifyInvariants),
		WithListingCache(c.CacheSize),
	}
	if provider != nil {
		opts = append(opts, WithSnapshotProvider(provider))
	}
	return opts, nil
}
