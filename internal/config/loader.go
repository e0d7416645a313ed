package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultInstructions is the built-in interviewer persona template. The
// {role} and {experience} placeholders are substituted by
// [InterviewConfig.RenderInstructions].
const defaultInstructions = "You are a professional job interviewer conducting a " +
	"realistic voice interview for a {role} position with a candidate at the " +
	"{experience} level. Ask one question at a time, follow up on the candidate's " +
	"answers, and keep the tone professional but encouraging. Calibrate question " +
	"difficulty to the stated experience level."

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in the zero-valued fields of cfg with working defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Channel.Provider == "" {
		cfg.Channel.Provider = "gemini-live"
	}
	if cfg.Channel.APIKey == "" {
		cfg.Channel.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Interview.Role == "" {
		cfg.Interview.Role = "Software Engineer"
	}
	if cfg.Interview.Experience == "" {
		cfg.Interview.Experience = ExperienceEntry
	}
	if cfg.Interview.Instructions == "" {
		cfg.Interview.Instructions = defaultInstructions
	}
	if cfg.Audio.InputSampleRate == 0 {
		cfg.Audio.InputSampleRate = 16000
	}
	if cfg.Audio.OutputSampleRate == 0 {
		cfg.Audio.OutputSampleRate = 24000
	}
	if cfg.Audio.BlockSize == 0 {
		cfg.Audio.BlockSize = 2048
	}
	if cfg.Video.Device == "" {
		cfg.Video.Device = "/dev/video0"
	}
	if cfg.Video.Width == 0 {
		cfg.Video.Width = 320
	}
	if cfg.Video.Height == 0 {
		cfg.Video.Height = 240
	}
	if cfg.Video.Quality == 0 {
		cfg.Video.Quality = 60
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Channel.Provider != "gemini-live" {
		errs = append(errs, fmt.Errorf("channel.provider %q is invalid; valid values: gemini-live", cfg.Channel.Provider))
	}
	if cfg.Channel.APIKey == "" {
		errs = append(errs, errors.New("channel.api_key is required (or set GEMINI_API_KEY)"))
	}

	if !cfg.Interview.Experience.IsValid() {
		errs = append(errs, fmt.Errorf("interview.experience %q is invalid; valid values: %q, %q, %q",
			cfg.Interview.Experience, ExperienceEntry, ExperienceMid, ExperienceSenior))
	}

	if cfg.Audio.InputSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.input_sample_rate %d must be positive", cfg.Audio.InputSampleRate))
	}
	if cfg.Audio.OutputSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.output_sample_rate %d must be positive", cfg.Audio.OutputSampleRate))
	}
	if cfg.Audio.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.block_size %d must be positive", cfg.Audio.BlockSize))
	}

	if cfg.Video.Enabled {
		if cfg.Video.Width <= 0 || cfg.Video.Height <= 0 {
			errs = append(errs, fmt.Errorf("video dimensions %dx%d must be positive", cfg.Video.Width, cfg.Video.Height))
		}
		if cfg.Video.Quality < 1 || cfg.Video.Quality > 100 {
			errs = append(errs, fmt.Errorf("video.quality %d is out of range [1, 100]", cfg.Video.Quality))
		}
	}

	return errors.Join(errs...)
}

// RenderInstructions expands the {role} and {experience} placeholders in the
// instruction template with the configured values.
func (c InterviewConfig) RenderInstructions() string {
	return strings.NewReplacer(
		"{role}", c.Role,
		"{experience}", string(c.Experience),
	).Replace(c.Instructions)
}
