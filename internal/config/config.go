// Package config loads the digest-build pipeline's configuration from
// defaults, an optional config file, and environment variables (with a
// .env file loaded first), in that increasing order of precedence — the
// same viper + godotenv + mapstructure layering the teacher uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all pipeline configuration.
type Config struct {
	App        App        `mapstructure:"app"`
	AI         AI         `mapstructure:"ai"`
	Output     Output     `mapstructure:"output"`
	Cache      Cache      `mapstructure:"cache"`
	Classifier Classifier `mapstructure:"classifier"`
	Pipeline   Pipeline   `mapstructure:"pipeline"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
	Timezone string `mapstructure:"timezone"`
}

// AI holds the two LLM provider configurations: Gemini for every
// structured-output call (classification, reranking, themes, intro, scene
// direction) and OpenAI for cover image rendering.
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// GeminiConfig holds Google Gemini configuration, including the per-stage
// model overrides the driver reads from CLASSIFIER_MODEL, RERANK_MODEL,
// THEME_MODEL, INTRO_MODEL, and SCENE_DIRECTOR_MODEL.
type GeminiConfig struct {
	APIKey             string `mapstructure:"api_key"`
	ClassifierModel    string `mapstructure:"classifier_model"`
	RerankModel        string `mapstructure:"rerank_model"`
	ThemeModel         string `mapstructure:"theme_model"`
	IntroModel         string `mapstructure:"intro_model"`
	SceneDirectorModel string `mapstructure:"scene_director_model"`
	SummaryModel       string `mapstructure:"summary_model"`
	Timeout            string `mapstructure:"timeout"`
}

// OpenAIConfig holds OpenAI image-generation configuration.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Output holds where the pipeline writes its artifacts.
type Output struct {
	Directory string `mapstructure:"directory"`
}

// Cache holds the fingerprint cache file locations.
type Cache struct {
	Directory string `mapstructure:"directory"`
}

// Classifier holds classifier-specific toggles.
type Classifier struct {
	DryRun bool `mapstructure:"dry_run"`
}

// Pipeline holds cross-cutting pipeline settings.
type Pipeline struct {
	ArticlesPath    string   `mapstructure:"articles_path"`
	WeeksDir        string   `mapstructure:"weeks_dir"`
	PolicyAllowlist []string `mapstructure:"policy_allowlist"`
	SelectionsPerCategory int `mapstructure:"selections_per_category"`
}

var (
	globalConfig *Config
)

// Load reads configuration from defaults, then an optional config file
// (digest.yaml/json/toml searched in the current directory and
// $HOME/.digest), then environment variables, with a .env file loaded
// first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Missing .env is expected outside local development.
		_ = err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("digest")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".digest"))
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	bindEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	postProcessConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", "./data")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("ai.gemini.classifier_model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.rerank_model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.theme_model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.intro_model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.scene_director_model", "gemini-2.0-flash")
	v.SetDefault("ai.gemini.summary_model", "gemini-2.0-flash-lite")
	v.SetDefault("ai.gemini.timeout", "30s")

	v.SetDefault("ai.openai.model", "gpt-image-1")

	v.SetDefault("output.directory", "./digests")
	v.SetDefault("cache.directory", "./cache")

	v.SetDefault("pipeline.articles_path", "./data/articles.json")
	v.SetDefault("pipeline.weeks_dir", "./data/weeks")
	v.SetDefault("pipeline.selections_per_category", 7)
}

// bindEnvironmentVariables binds each config key to one or more env var
// names, favoring the first that is set, mirroring the teacher's flexible
// multi-name environment-variable binding.
func bindEnvironmentVariables(v *viper.Viper) {
	bind := func(key string, envNames ...string) {
		for _, name := range envNames {
			if val := os.Getenv(name); val != "" {
				v.Set(key, val)
				return
			}
		}
	}

	bind("ai.gemini.api_key", "GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY")
	bind("ai.openai.api_key", "OPENAI_API_KEY")

	bind("ai.gemini.classifier_model", "CLASSIFIER_MODEL")
	bind("ai.gemini.rerank_model", "RERANK_MODEL")
	bind("ai.gemini.theme_model", "THEME_MODEL")
	bind("ai.gemini.intro_model", "INTRO_MODEL")
	bind("ai.gemini.scene_director_model", "SCENE_DIRECTOR_MODEL")

	if os.Getenv("CLASSIFIER_DRY_RUN") == "1" {
		v.Set("classifier.dry_run", true)
	}

	bind("output.directory", "DIGEST_OUTPUT_DIR")
	bind("cache.directory", "DIGEST_CACHE_DIR")
	bind("pipeline.articles_path", "DIGEST_ARTICLES_PATH")
	bind("pipeline.weeks_dir", "DIGEST_WEEKS_DIR")
	bind("app.timezone", "DIGEST_TIMEZONE")

	if allowlist := os.Getenv("DIGEST_POLICY_ALLOWLIST"); allowlist != "" {
		v.Set("pipeline.policy_allowlist", strings.Split(allowlist, ","))
	}
}

func postProcessConfig(cfg *Config) {
	cfg.Output.Directory = expandPath(cfg.Output.Directory)
	cfg.Cache.Directory = expandPath(cfg.Cache.Directory)
	cfg.Pipeline.ArticlesPath = expandPath(cfg.Pipeline.ArticlesPath)
	cfg.Pipeline.WeeksDir = expandPath(cfg.Pipeline.WeeksDir)
	cfg.App.DataDir = expandPath(cfg.App.DataDir)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func validateConfig(cfg *Config) error {
	if cfg.Pipeline.SelectionsPerCategory <= 0 {
		return fmt.Errorf("pipeline.selections_per_category must be positive")
	}
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", cfg.App.Timezone, err)
	}
	return nil
}

// Get returns the most recently Load-ed configuration, or nil if Load has
// not been called.
func Get() *Config {
	return globalConfig
}

// Reset clears the global configuration singleton, for test isolation.
func Reset() {
	globalConfig = nil
}

// Timeout parses the Gemini timeout string, defaulting to 30s on error.
func (a AI) Timeout() time.Duration {
	d, err := time.ParseDuration(a.Gemini.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Location returns the configured timezone as a *time.Location, defaulting
// to UTC if unset or invalid.
func (a App) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
