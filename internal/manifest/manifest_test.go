package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"stemsmith/internal/profile"
)

func TestLoadDefaultHasBothProfiles(t *testing.T) {
	m := LoadDefault()

	for _, id := range []profile.ID{profile.BalancedFourStem, profile.BalancedSixStem} {
		e, ok := m.Find(id)
		if !ok {
			t.Fatalf("expected default manifest to carry %q", id)
		}
		if e.URL == "" || e.SHA256 == "" {
			t.Fatalf("entry for %q missing url/sha256: %+v", id, e)
		}
	}
}

func TestFromFileExpandsTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	contents := `{
		"source": {"url_template": "https://example.test/weights/{filename}"},
		"models": [
			{"profile": "balanced-four-stem", "filename": "four.bin", "sha256": "abc123"}
		]
	}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}

	e, ok := m.Find(profile.BalancedFourStem)
	if !ok {
		t.Fatal("expected entry for balanced-four-stem")
	}
	if e.URL != "https://example.test/weights/four.bin" {
		t.Fatalf("url = %q", e.URL)
	}
}

func TestFromFileExplicitURLOverridesTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	contents := `{
		"models": [
			{"profile": "balanced-six-stem", "filename": "six.bin", "sha256": "def456", "url": "https://mirror.test/six.bin"}
		]
	}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile() error = %v", err)
	}

	e, _ := m.Find(profile.BalancedSixStem)
	if e.URL != "https://mirror.test/six.bin" {
		t.Fatalf("url = %q", e.URL)
	}
}

func TestFromFileUnknownProfileFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	contents := `{"models": [{"profile": "unknown", "filename": "x.bin", "sha256": "abc"}]}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if _, err := FromFile(path); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}

func TestFromFileMissingURLAndTemplateFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	contents := `{"models": [{"profile": "balanced-four-stem", "filename": "x.bin", "sha256": "abc"}]}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if _, err := FromFile(path); err == nil {
		t.Fatal("expected error when no url or template is available")
	}
}
