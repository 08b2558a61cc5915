package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the codesearch tool.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Replace   ReplaceConfig   `yaml:"replace"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// IndexConfig holds ingestion and ranking configuration.
type IndexConfig struct {
	Includes      []string `yaml:"includes"`
	Excludes      []string `yaml:"excludes"`
	ChunkLines    int      `yaml:"chunk_lines"`
	BatchSize     int      `yaml:"batch_size"`
	ProgressEvery int      `yaml:"progress_every"`
	K1            float64  `yaml:"k1"`
	B             float64  `yaml:"b"`
}

// SearchConfig holds search orchestration configuration.
type SearchConfig struct {
	MaxResults   int `yaml:"max_results"`
	CacheSize    int `yaml:"cache_size"`
	CacheTTLSecs int `yaml:"cache_ttl_seconds"`
}

// ReplaceConfig holds batch replace configuration.
type ReplaceConfig struct {
	MaxFileSizeBytes int64  `yaml:"max_file_size_bytes"`
	Backup           bool   `yaml:"backup"`
	BackupSuffix     string `yaml:"backup_suffix"`
	Parallelism      int    `yaml:"parallelism"`
}

// BenchmarkConfig holds retrieval benchmark configuration.
type BenchmarkConfig struct {
	DefaultK int `yaml:"default_k"`
}

// TelemetryConfig holds index-health telemetry configuration.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Includes:      []string{"**/*.go", "**/*.py", "**/*.js", "**/*.ts", "**/*.java", "**/*.c", "**/*.h", "**/*.cpp", "**/*.rs", "**/*.rb", "**/*.md", "**/*.txt", "**/*.yaml", "**/*.yml", "**/*.json", "**/*.sql", "**/*.sh"},
			Excludes:      []string{"**/node_modules/**", "**/vendor/**", "**/.git/**", "**/dist/**", "**/build/**", "**/__pycache__/**", "**/*.min.js"},
			ChunkLines:    40,
			BatchSize:     256,
			ProgressEvery: 1000,
			K1:            1.2,
			B:             0.75,
		},
		Search: SearchConfig{
			MaxResults:   50,
			CacheSize:    128,
			CacheTTLSecs: 300,
		},
		Replace: ReplaceConfig{
			MaxFileSizeBytes: 10 << 20,
			Backup:           true,
			BackupSuffix:     ".bak",
			Parallelism:      4,
		},
		Benchmark: BenchmarkConfig{
			DefaultK: 10,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for
// codesearch.yaml, then .codesearch/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "codesearch.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".codesearch", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".codesearch", "index.db")
}

// TelemetryPath returns the default telemetry file path.
func TelemetryPath(dir string) string {
	return filepath.Join(dir, ".codesearch", "telemetry.jsonl")
}

// EnsureDataDir ensures the .codesearch directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".codesearch"), 0755)
}
