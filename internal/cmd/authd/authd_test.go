package authd

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("authd", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "localhost:8086" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	fs := flag.NewFlagSet("authd", flag.ContinueOnError)
	lookup := func(key string) (string, bool) {
		if key == "CROSSING_SPACE_AUTH_HTTP_ADDR" {
			return "env-http", true
		}
		return "", false
	}
	cfg, err := ParseConfig(fs, nil, lookup)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "env-http" {
		t.Fatalf("expected env http addr, got %q", cfg.HTTPAddr)
	}
}

func TestParseConfigFlagWinsOverEnv(t *testing.T) {
	fs := flag.NewFlagSet("authd", flag.ContinueOnError)
	lookup := func(string) (string, bool) { return "env-http", true }
	cfg, err := ParseConfig(fs, []string{"-http-addr", "flag-http"}, lookup)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != "flag-http" {
		t.Fatalf("expected flag http addr, got %q", cfg.HTTPAddr)
	}
}
