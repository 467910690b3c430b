package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.ProjectsDir != "projects" {
		t.Fatalf("ProjectsDir = %q, want projects", cfg.ProjectsDir)
	}
	if cfg.ChunkTargetChars != 1000 || cfg.FirstChunkTargetChars != 3000 {
		t.Fatalf("chunk targets = %d/%d, want 1000/3000", cfg.ChunkTargetChars, cfg.FirstChunkTargetChars)
	}
	if cfg.SynthMaxChars != 300 {
		t.Fatalf("SynthMaxChars = %d, want 300", cfg.SynthMaxChars)
	}
	if cfg.SynthProvider != "auto" {
		t.Fatalf("SynthProvider = %q, want auto", cfg.SynthProvider)
	}
	if cfg.AllowAnyOrigin || cfg.BackgroundProcess {
		t.Fatalf("booleans should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9999")
	t.Setenv("CHUNK_TARGET_CHARS", "500")
	t.Setenv("FIRST_CHUNK_TARGET_CHARS", "900")
	t.Setenv("SYNTH_MAX_CHARS", "250")
	t.Setenv("SYNTH_TIMEOUT", "45s")
	t.Setenv("BACKGROUND_PROCESS", "true")
	t.Setenv("SYNTH_PROVIDER", "mock")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr != ":9999" || cfg.ChunkTargetChars != 500 || cfg.FirstChunkTargetChars != 900 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.SynthTimeout != 45*time.Second {
		t.Fatalf("SynthTimeout = %v, want 45s", cfg.SynthTimeout)
	}
	if !cfg.BackgroundProcess || cfg.SynthProvider != "mock" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"CHUNK_TARGET_CHARS": "-5",
		"SYNTH_MAX_CHARS":    "0",
		"SYNTH_PROVIDER":     "elevenlabs",
		"SYNTH_TIMEOUT":      "soon",
		"BACKGROUND_PROCESS": "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%s succeeded, want error", key, val)
			}
		})
	}
}

func TestLoadRejectsSynthBudgetAboveChunkTarget(t *testing.T) {
	t.Setenv("CHUNK_TARGET_CHARS", "200")
	t.Setenv("SYNTH_MAX_CHARS", "300")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SYNTH_MAX_CHARS") {
		t.Fatalf("Load = %v, want SYNTH_MAX_CHARS constraint error", err)
	}
}
