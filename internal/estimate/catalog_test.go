package estimate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(filepath.Join("testdata", "catalog"))
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	studies := c.Studies()
	if len(studies) != 2 {
		t.Fatalf("got %d studies, want 2: %+v", len(studies), studies)
	}
	if studies[0].ID != "3540" || studies[1].ID != "3536" {
		t.Errorf("studies not ordered newest first: %+v", studies)
	}
	if studies[1].Month != "diciembre 2025" {
		t.Errorf("Month = %q, want diciembre 2025", studies[1].Month)
	}

	path, err := c.Path("3536")
	if err != nil {
		t.Fatalf("Path(3536) error = %v", err)
	}
	if filepath.Base(path) != "3536.yaml" {
		t.Errorf("Path(3536) = %q", path)
	}
	if _, err := c.Path("9999"); !errors.Is(err, ErrUnknownStudy) {
		t.Errorf("Path(9999) error = %v, want ErrUnknownStudy", err)
	}
	if _, err := c.Path("../study"); !errors.Is(err, ErrUnknownStudy) {
		t.Errorf("Path(../study) error = %v, want ErrUnknownStudy", err)
	}
}

func TestLoadCatalogEmpty(t *testing.T) {
	for _, dir := range []string{"", filepath.Join(t.TempDir(), "missing")} {
		c, err := LoadCatalog(dir)
		if err != nil {
			t.Fatalf("LoadCatalog(%q) error = %v", dir, err)
		}
		if len(c.Studies()) != 0 {
			t.Errorf("LoadCatalog(%q) is not empty", dir)
		}
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	study, err := os.ReadFile(filepath.Join("testdata", "study.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name  string
		files map[string]string
	}{
		{"duplicate id", map[string]string{"a.yaml": string(study), "b.yaml": string(study)}},
		{"invalid study", map[string]string{"a.yaml": "study_id: \"1\"\n"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tc.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
					t.Fatal(err)
				}
			}
			if _, err := LoadCatalog(dir); err == nil {
				t.Error("LoadCatalog() expected error")
			}
		})
	}
}

func TestLoadCatalogIDFromFileName(t *testing.T) {
	dir := t.TempDir()
	noID := []byte("month: enero 2026\nparties: [PP]\nprevious_result: {PP: 33.1}\nrecalled_vote: {PP: 16.87}\n")
	if err := os.WriteFile(filepath.Join(dir, "3541.yaml"), noID, 0600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if _, err := c.Path("3541"); err != nil {
		t.Errorf("study without id not keyed by file name: %v", err)
	}
}
