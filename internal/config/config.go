// Package config provides the configuration schema and loader for the
// voxprep interview practice client.
package config

// LogLevel controls log verbosity for the voxprep client.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Experience is the seniority level the interview is calibrated to.
type Experience string

const (
	ExperienceEntry  Experience = "Entry Level"
	ExperienceMid    Experience = "Mid-Level"
	ExperienceSenior Experience = "Senior"
)

// IsValid reports whether e is a recognised experience level.
func (e Experience) IsValid() bool {
	switch e {
	case ExperienceEntry, ExperienceMid, ExperienceSenior:
		return true
	}
	return false
}

// Config is the root configuration structure for voxprep.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Channel   ChannelConfig   `yaml:"channel"`
	Interview InterviewConfig `yaml:"interview"`
	Audio     AudioConfig     `yaml:"audio"`
	Video     VideoConfig     `yaml:"video"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the /metrics endpoint listens on
	// (e.g., ":9090"). Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ChannelConfig selects and authenticates the live conversation backend.
type ChannelConfig struct {
	// Provider selects the backend implementation. Currently only
	// "gemini-live" is supported.
	Provider string `yaml:"provider"`

	// APIKey is the authentication key for the provider's API. When empty,
	// the loader falls back to the GEMINI_API_KEY environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint. Leave empty to use
	// the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific live model (e.g., "gemini-2.0-flash-live-001").
	Model string `yaml:"model"`

	// Voice selects the prebuilt voice for model speech (e.g., "Puck").
	Voice string `yaml:"voice"`
}

// InterviewConfig shapes the interviewer persona.
type InterviewConfig struct {
	// Role is the job title being interviewed for (e.g., "Backend Engineer").
	Role string `yaml:"role"`

	// Experience is the seniority the interview is calibrated to.
	Experience Experience `yaml:"experience"`

	// Instructions is the system instruction template. The placeholders
	// {role} and {experience} are substituted before the session starts.
	// Empty selects the built-in template.
	Instructions string `yaml:"instructions"`
}

// AudioConfig holds capture and playback sample parameters.
type AudioConfig struct {
	// InputSampleRate is the microphone capture rate in Hz.
	InputSampleRate int `yaml:"input_sample_rate"`

	// OutputSampleRate is the playback rate for model audio in Hz.
	OutputSampleRate int `yaml:"output_sample_rate"`

	// BlockSize is the number of samples per upstream audio chunk.
	BlockSize int `yaml:"block_size"`
}

// VideoConfig holds the camera sampling parameters.
type VideoConfig struct {
	// Enabled switches camera capture on. Audio-only sessions leave it off.
	Enabled bool `yaml:"enabled"`

	// Device is the V4L2 device path (e.g., "/dev/video0").
	Device string `yaml:"device"`

	// Width and Height are the dimensions frames are scaled to before upload.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Quality is the JPEG encode quality in the range [1, 100].
	Quality int `yaml:"quality"`
}
