// Copyright (c) Facebook, Inc. and its affiliates.
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

package verify

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// StaticCatalog is an ApplicationCatalog backed by a fixed set of entries,
// typically loaded from the service configuration. Lookups are
// case-insensitive on the application name and exact on the version.
type StaticCatalog struct {
	mu      sync.RWMutex
	entries map[string]CatalogEntry
}

// NewStaticCatalog builds a catalog from the given entries. Duplicate
// name/version pairs are rejected.
func NewStaticCatalog(entries []CatalogEntry) (*StaticCatalog, error) {
	c := &StaticCatalog{entries: make(map[string]CatalogEntry)}
	for _, entry := range entries {
		if entry.Name == "" || entry.Version == "" {
			return nil, fmt.Errorf("catalog entry must have a name and a version, got %q/%q", entry.Name, entry.Version)
		}
		key := catalogKey(entry.Name, entry.Version)
		if _, ok := c.entries[key]; ok {
			return nil, fmt.Errorf("duplicate catalog entry %s@%s", entry.Name, entry.Version)
		}
		c.entries[key] = entry
	}
	return c, nil
}

// Lookup implements ApplicationCatalog. A missing application is reported as
// a nil entry, not an error.
func (c *StaticCatalog) Lookup(ctx context.Context, name, version string) (*CatalogEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[catalogKey(name, version)]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func catalogKey(name, version string) string {
	return strings.ToLower(name) + "@" + version
}
