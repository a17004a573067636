package internal

import (
	"strings"
	"testing"

	"github.com/starford/shelf/internal/catalog"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}

	cfg.Token = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("empty token err = %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestLibraryConfig(t *testing.T) {
	cfg := LibraryConfig{Path: "data/books/library.json"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Dir() != "data/books" || cfg.File() != "library.json" {
		t.Errorf("Dir/File = %q %q", cfg.Dir(), cfg.File())
	}
	for _, p := range []string{"", "library.csv", "data/"} {
		c := LibraryConfig{Path: p}
		if err := c.Validate(); err == nil {
			t.Errorf("path %q should fail validation", p)
		}
	}
}

func TestSearchConfig(t *testing.T) {
	cfg := SearchConfig{DefaultMode: " Substring ", CacheSize: 10}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Mode() != catalog.ModeSubstring || cfg.DefaultMode != "substring" {
		t.Errorf("mode = %q", cfg.DefaultMode)
	}

	empty := SearchConfig{}
	if err := empty.Validate(); err != nil || empty.Mode() != catalog.ModeFuzzy {
		t.Errorf("empty mode = %q, %v", empty.DefaultMode, err)
	}

	for _, bad := range []SearchConfig{{DefaultMode: "regex"}, {CacheSize: -1}} {
		if err := bad.Validate(); err == nil {
			t.Errorf("%+v should fail validation", bad)
		}
	}
}

func TestFullConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}
