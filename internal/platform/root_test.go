package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "project")
	nested := filepath.Join(root, "docs", "drafts")
	outside := filepath.Join(base, "elsewhere")
	for _, d := range []string{nested, outside, filepath.Join(root, MarkerDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	for start, want := range map[string]string{
		root:                           root,
		filepath.Join(root, "docs"):    root,
		nested:                         root,
		filepath.Join(root, MarkerDir): root,
	} {
		got, err := FindRoot(start)
		if err != nil {
			t.Errorf("FindRoot(%s) error = %v", start, err)
			continue
		}
		if filepath.Clean(got) != filepath.Clean(want) {
			t.Errorf("FindRoot(%s) = %v, want %v", start, got, want)
		}
	}

	if _, err := FindRoot(outside); !errors.Is(err, ErrRootNotFound) {
		t.Errorf("FindRoot(%s) error = %v, want ErrRootNotFound", outside, err)
	}
}

func TestFindRoot_ConfigFileMarker(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("adapter: fs\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := FindRoot(nested)
	if err != nil {
		t.Fatalf("FindRoot() error = %v", err)
	}
	if filepath.Clean(got) != filepath.Clean(dir) {
		t.Errorf("FindRoot() = %v, want %v", got, dir)
	}
}

func TestDefaultDir(t *testing.T) {
	dir := t.TempDir()
	if got, want := DefaultDir(dir), filepath.Join(dir, MarkerDir); got != want {
		t.Errorf("DefaultDir() without root = %v, want %v", got, want)
	}

	nested := filepath.Join(dir, "sub")
	if err := os.MkdirAll(filepath.Join(dir, MarkerDir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if got, want := DefaultDir(nested), filepath.Join(dir, MarkerDir); filepath.Clean(got) != filepath.Clean(want) {
		t.Errorf("DefaultDir() inside root = %v, want %v", got, want)
	}
}
