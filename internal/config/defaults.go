package config

const (
	defaultOutputDir          = "output"
	defaultDatasetDir         = "dataset"
	defaultLogDir             = "~/.local/share/liepavoice/logs"
	defaultStateDir           = "~/.local/share/liepavoice"
	defaultManifestPath       = "etc/corpus-data.json"
	defaultWorkers            = 12
	defaultMinDurationMS      = 1000
	defaultLanguage           = "lt"
	defaultCodec              = "libmp3lame"
	defaultBitrate            = "320k"
	defaultSampleRate         = 16000
	defaultChannels           = 1
	defaultTestSize           = 0.05
	defaultPublishBackend     = BackendHuggingFace
	defaultHuggingFaceBaseURL = "https://huggingface.co"
	defaultCommitMessage      = "Upload dataset"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogMaxSizeMB       = 50
	defaultLogMaxBackups      = 5
	defaultNotifyTimeout      = 10
)

// Supported publish backends.
const (
	BackendHuggingFace = "huggingface"
	BackendGDrive      = "gdrive"
)

// DefaultExcludeTokens lists the non-speech annotation tokens that never become clips.
var DefaultExcludeTokens = []string{
	"+BREATH+",
	"+COUGH+",
	"+LAUGH+",
	"+SMACK+",
	"+AH+",
	"+EH+",
	"+MM+",
	"+GARBAGE+",
	"+NOISE+",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			DatasetDir: defaultDatasetDir,
			LogDir:     defaultLogDir,
			StateDir:   defaultStateDir,
		},
		Extract: Extract{
			ManifestPath:  defaultManifestPath,
			Workers:       defaultWorkers,
			MinDurationMS: defaultMinDurationMS,
			Language:      defaultLanguage,
			Codec:         defaultCodec,
			Bitrate:       defaultBitrate,
			ExcludeTokens: append([]string(nil), DefaultExcludeTokens...),
		},
		Assemble: Assemble{
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
			TestSize:   defaultTestSize,
		},
		Publish: Publish{
			Backend:       defaultPublishBackend,
			Private:       true,
			BaseURL:       defaultHuggingFaceBaseURL,
			CommitMessage: defaultCommitMessage,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
		},
		Notify: Notify{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
	}
}
