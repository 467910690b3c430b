package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the document-to-speech service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	ProjectsDir string
	DatabaseURL string

	SynthProvider string

	KokoroPython       string
	KokoroWorkerScript string
	KokoroDefaultVoice string
	KokoroLangCode     string

	ChunkTargetChars      int
	FirstChunkTargetChars int
	SynthMaxChars         int
	SynthTimeout          time.Duration

	BackgroundProcess bool
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "scheherazade"),
		AllowAnyOrigin:   false,
		ProjectsDir:      envOrDefault("PROJECTS_DIR", "projects"),
		DatabaseURL:      stringsTrimSpace("DATABASE_URL"),
		SynthProvider:    envOrDefault("SYNTH_PROVIDER", "auto"),

		KokoroPython:       envOrDefault("KOKORO_PYTHON", ""),
		KokoroWorkerScript: envOrDefault("KOKORO_WORKER_SCRIPT", "scripts/kokoro_worker.py"),
		KokoroDefaultVoice: envOrDefault("KOKORO_DEFAULT_VOICE", "af_heart"),
		KokoroLangCode:     envOrDefault("KOKORO_LANG_CODE", "a"),

		ChunkTargetChars:      1000,
		FirstChunkTargetChars: 3000,
		SynthMaxChars:         300,
		SynthTimeout:          2 * time.Minute,
		ShutdownTimeout:       15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthTimeout, err = durationFromEnv("SYNTH_TIMEOUT", cfg.SynthTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.BackgroundProcess, err = boolFromEnv("BACKGROUND_PROCESS", false)
	if err != nil {
		return Config{}, err
	}
	cfg.ChunkTargetChars, err = intFromEnv("CHUNK_TARGET_CHARS", cfg.ChunkTargetChars)
	if err != nil {
		return Config{}, err
	}
	cfg.FirstChunkTargetChars, err = intFromEnv("FIRST_CHUNK_TARGET_CHARS", cfg.FirstChunkTargetChars)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthMaxChars, err = intFromEnv("SYNTH_MAX_CHARS", cfg.SynthMaxChars)
	if err != nil {
		return Config{}, err
	}

	if cfg.ChunkTargetChars <= 0 {
		return Config{}, fmt.Errorf("CHUNK_TARGET_CHARS must be positive")
	}
	if cfg.FirstChunkTargetChars <= 0 {
		return Config{}, fmt.Errorf("FIRST_CHUNK_TARGET_CHARS must be positive")
	}
	if cfg.SynthMaxChars <= 0 {
		return Config{}, fmt.Errorf("SYNTH_MAX_CHARS must be positive")
	}
	if cfg.SynthMaxChars > cfg.ChunkTargetChars {
		return Config{}, fmt.Errorf("SYNTH_MAX_CHARS must not exceed CHUNK_TARGET_CHARS")
	}
	switch cfg.SynthProvider {
	case "auto", "kokoro", "mock":
	default:
		return Config{}, fmt.Errorf("SYNTH_PROVIDER must be auto, kokoro or mock")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
