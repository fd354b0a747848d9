package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_TOKEN", "s3cret")
	p := writeConfig(t, "token: ${SAMPLE_TOKEN}\n")

	cfg := sample{Name: "default", Port: 8080}
	if err := Load(p, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Token != "s3cret" || cfg.Name != "default" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	p := writeConfig(t, "port: 1\nprot: 2\n")
	var cfg sample
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "prot") {
		t.Errorf("err = %v, want unknown field error", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	p := writeConfig(t, "port: 0\n")
	var cfg sample
	if err := Load(p, &cfg); err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeConfig(t, "")
	cfg := sample{Port: 1}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("empty file: %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	def := writeConfig(t, "port: 9000\n")
	missing := filepath.Join(t.TempDir(), "absent.yaml")

	var cfg sample
	if err := LoadWithDefaults(missing, def, &cfg); err != nil || cfg.Port != 9000 {
		t.Fatalf("cfg = %+v, err = %v", cfg, err)
	}

	cfg = sample{Port: 7}
	if err := LoadWithDefaults(missing, "", &cfg); err != nil || cfg.Port != 7 {
		t.Fatalf("cfg = %+v, err = %v", cfg, err)
	}
}
