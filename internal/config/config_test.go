package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.SelectionsPerCategory != 7 {
		t.Errorf("got %d", cfg.Pipeline.SelectionsPerCategory)
	}
	if cfg.AI.Gemini.ClassifierModel == "" {
		t.Errorf("expected a default classifier model")
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("CLASSIFIER_MODEL", "gemini-custom")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.AI.Gemini.ClassifierModel != "gemini-custom" {
		t.Errorf("got %q", cfg.AI.Gemini.ClassifierModel)
	}
}

func TestLoadRejectsInvalidTimezone(t *testing.T) {
	t.Setenv("DIGEST_TIMEZONE", "Not/AZone")
	t.Chdir(t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an invalid timezone")
	}
}

func TestGetReturnsLastLoaded(t *testing.T) {
	Reset()
	t.Chdir(t.TempDir())
	if _, err := Load(); err != nil {
		t.Fatal(err)
	}
	if Get() == nil {
		t.Fatal("expected Get() to return the loaded config")
	}
	Reset()
	if Get() != nil {
		t.Fatal("expected Get() to return nil after Reset")
	}
}
