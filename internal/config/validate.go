package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"liepavoice/internal/language"
)

// mp3Encoders are the ffmpeg encoders that produce MP3 streams. Clips are
// always written to an .mp3 container.
var mp3Encoders = map[string]struct{}{
	"libmp3lame": {},
	"libshine":   {},
}

// Validate ensures the configuration is usable. Publish credentials are only
// checked by ValidatePublish so extraction and local assembly run without them.
func (c *Config) Validate() error {
	if err := c.validateExtract(); err != nil {
		return err
	}
	if err := c.validateAssemble(); err != nil {
		return err
	}
	if err := c.validatePublishBackend(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotify()
}

func (c *Config) validateExtract() error {
	if err := ensurePositiveMap(map[string]int{
		"extract.workers": c.Extract.Workers,
	}); err != nil {
		return err
	}
	if c.Extract.MinDurationMS < 0 {
		return errors.New("extract.min_duration_ms must be >= 0")
	}
	if strings.ContainsAny(c.Extract.Language, " ,\t") {
		return fmt.Errorf("extract.language %q must be a single locale tag", c.Extract.Language)
	}
	if !language.Known(language.Normalize(c.Extract.Language)) {
		return fmt.Errorf("extract.language %q is not a recognized language", c.Extract.Language)
	}
	if _, ok := mp3Encoders[c.Extract.Codec]; !ok {
		return fmt.Errorf("extract.codec %q cannot write .mp3 clips (use libmp3lame or libshine)", c.Extract.Codec)
	}
	if !strings.HasSuffix(c.Extract.Bitrate, "k") {
		return fmt.Errorf("extract.bitrate %q must be expressed in kbit/s (e.g. 320k)", c.Extract.Bitrate)
	}
	return nil
}

func (c *Config) validateAssemble() error {
	if err := ensurePositiveMap(map[string]int{
		"assemble.sample_rate": c.Assemble.SampleRate,
		"assemble.channels":    c.Assemble.Channels,
	}); err != nil {
		return err
	}
	if c.Assemble.TestSize <= 0 || c.Assemble.TestSize >= 1 {
		return errors.New("assemble.test_size must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validatePublishBackend() error {
	switch c.Publish.Backend {
	case BackendHuggingFace, BackendGDrive:
		return nil
	default:
		return fmt.Errorf("publish.backend: unsupported value %q (use %q or %q)", c.Publish.Backend, BackendHuggingFace, BackendGDrive)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func (c *Config) validateNotify() error {
	topic := c.Notify.NtfyTopic
	if topic == "" || strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return nil
	}
	return fmt.Errorf("notify.ntfy_topic %q must be a full http(s) URL", topic)
}

// ValidatePublish ensures the registry identifier and credentials are present
// before anything is uploaded.
func (c *Config) ValidatePublish() error {
	if c.Publish.RepoID == "" {
		return errors.New("publish.repo_id is required. Set LIEPAVOICE_REPO_ID or edit the config file (create with 'liepavoice config init')")
	}
	switch c.Publish.Backend {
	case BackendHuggingFace:
		if !strings.Contains(c.Publish.RepoID, "/") {
			return fmt.Errorf("publish.repo_id %q must be of the form <namespace>/<name>", c.Publish.RepoID)
		}
		if c.Publish.Token == "" {
			return errors.New("publish.token is required for the huggingface backend. Set HF_TOKEN or edit the config file")
		}
	case BackendGDrive:
		if c.Publish.GDriveCredentials == "" {
			return errors.New("publish.gdrive_credentials is required for the gdrive backend. Set GOOGLE_APPLICATION_CREDENTIALS or edit the config file")
		}
		if _, err := os.Stat(c.Publish.GDriveCredentials); err != nil {
			return fmt.Errorf("publish.gdrive_credentials: %w", err)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
