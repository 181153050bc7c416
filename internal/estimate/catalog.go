package estimate

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownStudy is returned when a study id is not in the catalog.
var ErrUnknownStudy = errors.New("estudio no identificado")

// CatalogEntry is one study available in a catalog directory.
type CatalogEntry struct {
	ID    string `json:"study_id"`
	Month string `json:"month"`
	Path  string `json:"-"`
}

// Catalog indexes the study files of a directory by study id.
type Catalog struct {
	entries []CatalogEntry
	byID    map[string]int
}

// LoadCatalog reads every *.yaml study in dir. A study without an id is
// keyed by its file name. A missing directory yields an empty catalog.
func LoadCatalog(dir string) (*Catalog, error) {
	c := &Catalog{byID: map[string]int{}}
	if dir == "" {
		return c, nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list studies in %s: %w", dir, err)
	}
	for _, path := range paths {
		s, err := LoadStudy(path)
		if err != nil {
			return nil, err
		}
		id := s.ID
		if id == "" {
			id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("study %q is defined twice in %s", id, dir)
		}
		c.byID[id] = len(c.entries)
		c.entries = append(c.entries, CatalogEntry{ID: id, Month: s.Month, Path: path})
	}

	// Most recent study first.
	sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].ID > c.entries[j].ID })
	for i, e := range c.entries {
		c.byID[e.ID] = i
	}
	return c, nil
}

// Studies lists the catalog, most recent study first.
func (c *Catalog) Studies() []CatalogEntry {
	return append([]CatalogEntry(nil), c.entries...)
}

// Path returns the study file for id.
func (c *Catalog) Path(id string) (string, error) {
	i, ok := c.byID[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStudy, id)
	}
	return c.entries[i].Path, nil
}
