package config

import (
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(``), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.RequirePath) != 1 || cfg.RequirePath[0] != "." {
		t.Errorf("RequirePath = %v, want [.]", cfg.RequirePath)
	}
	if cfg.PrintLength != nil {
		t.Errorf("PrintLength = %v, want nil", *cfg.PrintLength)
	}
	if cfg.PrintNamespaceMaps {
		t.Error("PrintNamespaceMaps should default to false")
	}
}

func TestParseOverrides(t *testing.T) {
	src := `
print-length: 100
print-level: 8
print-namespace-maps: true
require-path:
  - src
  - vendor/clj
data-readers:
  myapp/point: myapp.core/read-point
`
	cfg, err := Parse([]byte(src), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrintLength == nil || *cfg.PrintLength != 100 {
		t.Errorf("PrintLength = %v, want 100", cfg.PrintLength)
	}
	if cfg.PrintLevel == nil || *cfg.PrintLevel != 8 {
		t.Errorf("PrintLevel = %v, want 8", cfg.PrintLevel)
	}
	if !cfg.PrintNamespaceMaps {
		t.Error("PrintNamespaceMaps = false, want true")
	}
	if len(cfg.RequirePath) != 2 || cfg.RequirePath[0] != "src" || cfg.RequirePath[1] != "vendor/clj" {
		t.Errorf("RequirePath = %v, want [src vendor/clj]", cfg.RequirePath)
	}
	if cfg.DataReaders["myapp/point"] != "myapp.core/read-point" {
		t.Errorf("DataReaders[myapp/point] = %q, want myapp.core/read-point", cfg.DataReaders["myapp/point"])
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.RequirePath) != 1 || cfg.RequirePath[0] != "." {
		t.Errorf("RequirePath = %v, want [.]", cfg.RequirePath)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("print-length: [invalid"), "test.yaml")
	if err == nil {
		t.Fatal("expected an error for malformed yaml")
	}
}
