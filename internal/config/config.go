package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration. Relative paths resolve against the
// working directory, matching how the pipeline is usually run from a corpus
// checkout.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	DatasetDir string `toml:"dataset_dir"`
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
}

// Extract contains configuration for the segment extractor.
type Extract struct {
	// ManifestPath is resolved relative to the --input directory.
	ManifestPath  string   `toml:"manifest_path"`
	Workers       int      `toml:"workers"`
	MinDurationMS int      `toml:"min_duration_ms"`
	Language      string   `toml:"language"`
	Codec         string   `toml:"codec"`
	Bitrate       string   `toml:"bitrate"`
	ExcludeTokens []string `toml:"exclude_tokens"`
}

// Assemble contains configuration for the dataset assembler.
type Assemble struct {
	SampleRate int     `toml:"sample_rate"`
	Channels   int     `toml:"channels"`
	TestSize   float64 `toml:"test_size"`
	// Seed fixes the shuffle; zero draws a fresh seed per run.
	Seed uint64 `toml:"seed"`
}

// Publish contains configuration for pushing the dataset to a remote registry.
type Publish struct {
	Backend       string `toml:"backend"`
	RepoID        string `toml:"repo_id"`
	Private       bool   `toml:"private"`
	Token         string `toml:"token"`
	BaseURL       string `toml:"base_url"`
	CommitMessage string `toml:"commit_message"`
	// GDriveCredentials points at a service account JSON key file.
	GDriveCredentials string `toml:"gdrive_credentials"`
	GDriveParentID    string `toml:"gdrive_parent_id"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format     string `toml:"format"`
	Level      string `toml:"level"`
	File       bool   `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Notify contains configuration for run completion notices.
type Notify struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_s"`
}

// Config encapsulates all configuration values for liepavoice.
//
// Configuration sections by subsystem:
//   - Paths: output, dataset, log, and state directories
//   - Extract: manifest location, worker count, inclusion policy, clip codec
//   - Assemble: target audio format and train/test split
//   - Publish: remote registry backend and credentials
//   - Logging: log format, level, and rotation
//   - Metrics: optional Prometheus textfile destination
//   - Notify: optional ntfy topic told when a run finishes
type Config struct {
	Paths    Paths    `toml:"paths"`
	Extract  Extract  `toml:"extract"`
	Assemble Assemble `toml:"assemble"`
	Publish  Publish  `toml:"publish"`
	Logging  Logging  `toml:"logging"`
	Metrics  Metrics  `toml:"metrics"`
	Notify   Notify   `toml:"notify"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/liepavoice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("liepavoice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories every command relies on. The
// output and dataset directories are created by the commands that own them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ManifestPath returns the corpus manifest location inside inputDir.
func (c *Config) ManifestPath(inputDir string) string {
	manifest := c.Extract.ManifestPath
	if filepath.IsAbs(manifest) {
		return manifest
	}
	return filepath.Join(inputDir, filepath.FromSlash(manifest))
}

// LedgerPath returns the run ledger database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.db")
}

// LogFilePath returns the rotated log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "liepavoice.log")
}

// FFmpegBinary returns the ffmpeg executable name used for decoding and encoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
