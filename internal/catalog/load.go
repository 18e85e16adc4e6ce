// SPDX-License-Identifier: MIT

package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/playercount/internal/normalize"
)

// Format selects the catalog document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension. Anything that is
// not .yaml/.yml is treated as JSON, the format of the historical games.json.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and parses the catalog at path.
func Load(path string) (Catalog, error) {
	// #nosec G304 -- catalog path is provided by the operator via config
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCatalogUnavailable, path, err)
	}
	cat, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog document and trims every identifier with
// normalize.Token. An empty document is malformed: a catalog with no titles
// is almost always a truncated write.
func Parse(data []byte, format Format) (Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrCatalogMalformed)
	}

	var cat Catalog
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogMalformed, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogMalformed, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrCatalogMalformed, format)
	}

	if cat == nil {
		return nil, fmt.Errorf("%w: document is not a mapping of titles", ErrCatalogMalformed)
	}
	for title, ids := range cat {
		cat[title] = IdentifierSet{
			TitleIDs: trimIDs(ids.TitleIDs),
			CommIDs:  trimIDs(ids.CommIDs),
		}
	}
	return cat, nil
}

// trimIDs strips edge whitespace and invisible runes from every entry so
// hand-edited identifiers still match the feed. Blank entries stay in place.
func trimIDs(ids []string) []string {
	for i, id := range ids {
		ids[i] = normalize.Token(id)
	}
	return ids
}
