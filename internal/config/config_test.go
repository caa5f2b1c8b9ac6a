package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Classifier: ClassifierConfig{
			APIKey: "test-key",
			Model:  "gpt-4o-mini",
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingModel(t *testing.T) {
	cfg := validConfig()
	cfg.Classifier.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing classifier model")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Classifier.TimeoutSec != 20 {
		t.Errorf("expected classifier TimeoutSec=20, got %d", cfg.Classifier.TimeoutSec)
	}
	if cfg.Classifier.Workers != 8 {
		t.Errorf("expected Workers=8, got %d", cfg.Classifier.Workers)
	}
	if cfg.Research.MinPostChars != 50 {
		t.Errorf("expected MinPostChars=50, got %d", cfg.Research.MinPostChars)
	}
	if cfg.Research.MinCommentChars != 30 {
		t.Errorf("expected MinCommentChars=30, got %d", cfg.Research.MinCommentChars)
	}
	if cfg.Research.MaxExpansionAttempts != 1 {
		t.Errorf("expected MaxExpansionAttempts=1, got %d", cfg.Research.MaxExpansionAttempts)
	}
	if cfg.Research.MinYield != 10 {
		t.Errorf("expected MinYield=10, got %d", cfg.Research.MinYield)
	}
	if cfg.Source.UserAgent == "" {
		t.Error("expected default user agent")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{Research: ResearchConfig{MinPostChars: 80, MaxExpansionAttempts: 2}}
	cfg.ApplyDefaults()
	if cfg.Research.MinPostChars != 80 {
		t.Errorf("explicit MinPostChars overridden: %d", cfg.Research.MinPostChars)
	}
	if cfg.Research.MaxExpansionAttempts != 2 {
		t.Errorf("explicit MaxExpansionAttempts overridden: %d", cfg.Research.MaxExpansionAttempts)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("RESEARCHD_TEST_KEY", "secret")
	defer os.Unsetenv("RESEARCHD_TEST_KEY")

	in := []byte("api_key: ${RESEARCHD_TEST_KEY}\nmodel: ${RESEARCHD_TEST_MISSING:-gpt-4o-mini}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nmodel: gpt-4o-mini\n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestGetEnv_Default(t *testing.T) {
	os.Unsetenv("ENV")
	if env := GetEnv(); env != "local" {
		t.Errorf("GetEnv = %q, want local", env)
	}
}
