package config_test

import (
	"strings"
	"testing"

	"github.com/voxprep/voxprep/internal/config"
)

const minimalYAML = `
channel:
  api_key: test-key
`

func TestLoadFromReader_DefaultsApplied(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("expected default log level info, got %q", cfg.Server.LogLevel)
	}
	if cfg.Channel.Provider != "gemini-live" {
		t.Errorf("expected default provider gemini-live, got %q", cfg.Channel.Provider)
	}
	if cfg.Interview.Experience != config.ExperienceEntry {
		t.Errorf("expected default experience %q, got %q", config.ExperienceEntry, cfg.Interview.Experience)
	}
	if cfg.Audio.InputSampleRate != 16000 || cfg.Audio.OutputSampleRate != 24000 {
		t.Errorf("expected default sample rates 16000/24000, got %d/%d",
			cfg.Audio.InputSampleRate, cfg.Audio.OutputSampleRate)
	}
	if cfg.Video.Width != 320 || cfg.Video.Height != 240 || cfg.Video.Quality != 60 {
		t.Errorf("expected default video 320x240 q60, got %dx%d q%d",
			cfg.Video.Width, cfg.Video.Height, cfg.Video.Quality)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := `
channel:
  api_key: test-key
  modle: oops
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	yaml := `
interview:
  role: Backend Engineer
`
	t.Setenv("GEMINI_API_KEY", "")
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestValidate_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Channel.APIKey != "env-key" {
		t.Errorf("expected API key from environment, got %q", cfg.Channel.APIKey)
	}
}

func TestValidate_InvalidExperience(t *testing.T) {
	yaml := `
channel:
  api_key: test-key
interview:
  experience: Principal
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid experience, got nil")
	}
	if !strings.Contains(err.Error(), "interview.experience") {
		t.Errorf("error should mention interview.experience, got: %v", err)
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	yaml := `
server:
  log_level: loud
channel:
  provider: openai-realtime
  api_key: test-key
video:
  enabled: true
  quality: 400
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"server.log_level", "channel.provider", "video.quality"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_VideoDisabledSkipsVideoChecks(t *testing.T) {
	yaml := `
channel:
  api_key: test-key
video:
  enabled: false
  quality: 400
`
	// ApplyDefaults only fills zero values, so the out-of-range quality
	// survives; it must be ignored while video is disabled.
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRenderInstructions(t *testing.T) {
	t.Parallel()

	iv := config.InterviewConfig{
		Role:         "Backend Engineer",
		Experience:   config.ExperienceSenior,
		Instructions: "Interview for {role} at {experience} ({role}).",
	}
	got := iv.RenderInstructions()
	want := "Interview for Backend Engineer at Senior (Backend Engineer)."
	if got != want {
		t.Errorf("RenderInstructions() = %q, want %q", got, want)
	}
}

func TestRenderInstructions_DefaultTemplate(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	got := cfg.Interview.RenderInstructions()
	if strings.Contains(got, "{role}") || strings.Contains(got, "{experience}") {
		t.Errorf("default template left placeholders unexpanded: %q", got)
	}
	if !strings.Contains(got, "Software Engineer") || !strings.Contains(got, "Entry Level") {
		t.Errorf("expected defaults substituted, got: %q", got)
	}
}
