package config

import (
	"fmt"
	"os"
	"strings"

	"liepavoice/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtract()
	c.normalizeAssemble()
	if err := c.normalizePublish(); err != nil {
		return err
	}
	c.Notify.NtfyTopic = strings.TrimSpace(c.Notify.NtfyTopic)
	if c.Notify.RequestTimeoutSeconds <= 0 {
		c.Notify.RequestTimeoutSeconds = defaultNotifyTimeout
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatasetDir) == "" {
		c.Paths.DatasetDir = defaultDatasetDir
	}
	if c.Paths.DatasetDir, err = expandPath(c.Paths.DatasetDir); err != nil {
		return fmt.Errorf("paths.dataset_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtract() {
	c.Extract.ManifestPath = strings.TrimSpace(c.Extract.ManifestPath)
	if c.Extract.ManifestPath == "" {
		c.Extract.ManifestPath = defaultManifestPath
	}
	if c.Extract.Workers == 0 {
		c.Extract.Workers = defaultWorkers
	}
	c.Extract.Language = strings.TrimSpace(c.Extract.Language)
	if c.Extract.Language == "" {
		c.Extract.Language = defaultLanguage
	}
	if code := language.Normalize(c.Extract.Language); code != "" {
		c.Extract.Language = code
	}
	c.Extract.Codec = strings.TrimSpace(c.Extract.Codec)
	if c.Extract.Codec == "" {
		c.Extract.Codec = defaultCodec
	}
	c.Extract.Bitrate = strings.ToLower(strings.TrimSpace(c.Extract.Bitrate))
	if c.Extract.Bitrate == "" {
		c.Extract.Bitrate = defaultBitrate
	}

	tokens := make([]string, 0, len(c.Extract.ExcludeTokens))
	seen := make(map[string]struct{}, len(c.Extract.ExcludeTokens))
	for _, token := range c.Extract.ExcludeTokens {
		normalized := strings.TrimSpace(token)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		tokens = append(tokens, normalized)
	}
	c.Extract.ExcludeTokens = tokens
}

func (c *Config) normalizeAssemble() {
	if c.Assemble.SampleRate == 0 {
		c.Assemble.SampleRate = defaultSampleRate
	}
	if c.Assemble.Channels == 0 {
		c.Assemble.Channels = defaultChannels
	}
	if c.Assemble.TestSize == 0 {
		c.Assemble.TestSize = defaultTestSize
	}
}

func (c *Config) normalizePublish() error {
	c.Publish.Backend = strings.ToLower(strings.TrimSpace(c.Publish.Backend))
	if c.Publish.Backend == "" {
		c.Publish.Backend = defaultPublishBackend
	}
	c.Publish.RepoID = strings.TrimSpace(c.Publish.RepoID)
	if value, ok := os.LookupEnv("LIEPAVOICE_REPO_ID"); ok && strings.TrimSpace(value) != "" {
		c.Publish.RepoID = strings.TrimSpace(value)
	}
	c.Publish.Token = strings.TrimSpace(c.Publish.Token)
	if value, ok := os.LookupEnv("HF_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Publish.Token = strings.TrimSpace(value)
	} else if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Publish.Token = strings.TrimSpace(value)
	}
	c.Publish.BaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.BaseURL), "/")
	if c.Publish.BaseURL == "" {
		c.Publish.BaseURL = defaultHuggingFaceBaseURL
	}
	c.Publish.CommitMessage = strings.TrimSpace(c.Publish.CommitMessage)
	if c.Publish.CommitMessage == "" {
		c.Publish.CommitMessage = defaultCommitMessage
	}

	c.Publish.GDriveCredentials = strings.TrimSpace(c.Publish.GDriveCredentials)
	if c.Publish.GDriveCredentials == "" {
		if value, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS"); ok {
			c.Publish.GDriveCredentials = strings.TrimSpace(value)
		}
	}
	if c.Publish.GDriveCredentials != "" {
		var err error
		if c.Publish.GDriveCredentials, err = expandPath(c.Publish.GDriveCredentials); err != nil {
			return fmt.Errorf("publish.gdrive_credentials: %w", err)
		}
	}
	c.Publish.GDriveParentID = strings.TrimSpace(c.Publish.GDriveParentID)
	return nil
}

func (c *Config) normalizeMetrics() error {
	c.Metrics.Textfile = strings.TrimSpace(c.Metrics.Textfile)
	if c.Metrics.Textfile == "" {
		return nil
	}
	var err error
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}
