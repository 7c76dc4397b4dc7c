package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNamespaceToRelPath(t *testing.T) {
	cases := map[string]string{
		"core":             "core.clj",
		"my.app.core":      filepath.Join("my", "app", "core.clj"),
		"my-app.util-belt": filepath.Join("my_app", "util_belt.clj"),
	}
	for ns, want := range cases {
		if got := NamespaceToRelPath(ns); got != want {
			t.Errorf("NamespaceToRelPath(%q) = %q, want %q", ns, got, want)
		}
	}
}

func TestFindNamespaceFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "my", "app")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(sub, "core.clj")
	if err := os.WriteFile(target, []byte("(ns my.app.core)"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := FindNamespaceFile([]string{dir}, "my.app.core")
	if !ok {
		t.Fatal("expected to find my.app.core")
	}
	if got != target {
		t.Errorf("FindNamespaceFile = %q, want %q", got, target)
	}

	if _, ok := FindNamespaceFile([]string{dir}, "no.such.ns"); ok {
		t.Error("expected no.such.ns to be absent")
	}
}
