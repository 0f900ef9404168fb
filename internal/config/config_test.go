package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Engine.MinConfidence != 0.35 || cfg.Engine.GraceConfidence != 0.25 {
		t.Fatalf("engine thresholds = %v / %v", cfg.Engine.MinConfidence, cfg.Engine.GraceConfidence)
	}
	if cfg.Engine.MinModelsRequired != 2 || cfg.Engine.FallbackWindowSize != 50 {
		t.Fatalf("engine sizes = %d / %d", cfg.Engine.MinModelsRequired, cfg.Engine.FallbackWindowSize)
	}
	if cfg.Audit.Digest != "fnv64" {
		t.Fatalf("audit digest = %q", cfg.Audit.Digest)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadMissingImplicitFile(t *testing.T) {
	// No explicit path: absent default file falls back to built-ins.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MinConfidence != 0.35 {
		t.Fatalf("min confidence = %v, want default", cfg.Engine.MinConfidence)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("explicit missing config path should error")
	}
}

func TestLoadTOMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballast.toml")
	body := `
[engine]
min_confidence = 0.5
grace_confidence = 0.4

[audit]
digest = "sha256"

[api]
bind_address = "127.0.0.1:9090"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MinConfidence != 0.5 || cfg.Engine.GraceConfidence != 0.4 {
		t.Fatalf("TOML engine overrides not applied: %+v", cfg.Engine)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Engine.MinModelsRequired != 2 {
		t.Fatalf("unset key lost default: %d", cfg.Engine.MinModelsRequired)
	}
	if cfg.Audit.Digest != "sha256" {
		t.Fatalf("audit digest = %q", cfg.Audit.Digest)
	}
	if cfg.API.BindAddress != "127.0.0.1:9090" {
		t.Fatalf("bind address = %q", cfg.API.BindAddress)
	}
}

func TestEnvOverridesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballast.toml")
	if err := os.WriteFile(path, []byte("[engine]\nmin_confidence = 0.5\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BALLAST__ENGINE__MIN_CONFIDENCE", "0.6")
	t.Setenv("BALLAST__ARCHIVE__ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.MinConfidence != 0.6 {
		t.Fatalf("env did not win over TOML: %v", cfg.Engine.MinConfidence)
	}
	if cfg.Archive.Enabled {
		t.Fatal("archive env override not applied")
	}
}

func TestLoadRejectsInvalidEngineSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballast.toml")
	// Grace above min violates the engine constraint.
	if err := os.WriteFile(path, []byte("[engine]\ngrace_confidence = 0.9\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("invalid engine section accepted")
	}
}

func TestLoadRejectsUnknownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballast.toml")
	if err := os.WriteFile(path, []byte("[audit]\ndigest = \"crc32\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("unknown digest accepted")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballast.toml")
	if err := os.WriteFile(path, []byte("engine = {{"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed TOML accepted")
	}
}

func TestToEngineConfigRoundTrip(t *testing.T) {
	cfg := Default()
	ec := cfg.ToEngineConfig()
	if err := ec.Validate(); err != nil {
		t.Fatalf("mapped engine config invalid: %v", err)
	}
	if ec.SignAgreementThreshold != cfg.Engine.SignAgreementThreshold {
		t.Fatalf("threshold mapping lost: %v", ec.SignAgreementThreshold)
	}
}

func TestEnvSliceParsing(t *testing.T) {
	t.Setenv("BALLAST__API__CORS_ORIGINS", "https://a.example,https://b.example")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors origins = %v", cfg.API.CORSOrigins)
	}
}
