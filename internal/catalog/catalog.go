// Package catalog loads the read-only city catalog of prize locations from
// YAML or TOML files, falling back to the embedded default.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/playperu/scavengerbot/internal/hunt"
)

var ErrInvalid = errors.New("invalid catalog")

//go:embed default.yaml
var defaultYAML []byte

type file struct {
	Cities map[hunt.City][]hunt.PrizeLocation `yaml:"cities" toml:"cities"`
}

// Default returns the built-in catalog.
func Default() (hunt.CityCatalog, error) {
	return Parse(defaultYAML, ".yaml")
}

// Load reads a catalog file; the format is chosen by extension. An empty
// path yields the default catalog.
func Load(path string) (hunt.CityCatalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates catalog data in the format named by ext
// (".yaml", ".yml" or ".toml").
func Parse(data []byte, ext string) (hunt.CityCatalog, error) {
	var f file
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing yaml catalog: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("parsing toml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalid, ext)
	}

	c := hunt.CityCatalog(f.Cities)
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every location is named, placed on the globe, unique
// within its city and carries at least one clue.
func Validate(c hunt.CityCatalog) error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no cities", ErrInvalid)
	}
	for city, locs := range c {
		if city == "" || city == hunt.CityOther {
			return fmt.Errorf("%w: reserved city id %q", ErrInvalid, city)
		}
		seen := make(map[string]bool, len(locs))
		for i, l := range locs {
			where := fmt.Sprintf("%s[%d]", city, i)
			switch {
			case strings.TrimSpace(l.Name) == "":
				return fmt.Errorf("%w: %s: name is required", ErrInvalid, where)
			case seen[l.Name]:
				return fmt.Errorf("%w: %s: duplicate name %q", ErrInvalid, where, l.Name)
			case l.Coordinates.Lat < -90 || l.Coordinates.Lat > 90:
				return fmt.Errorf("%w: %s: latitude %v out of range", ErrInvalid, where, l.Coordinates.Lat)
			case l.Coordinates.Long < -180 || l.Coordinates.Long > 180:
				return fmt.Errorf("%w: %s: longitude %v out of range", ErrInvalid, where, l.Coordinates.Long)
			case len(l.Clues) == 0:
				return fmt.Errorf("%w: %s: at least one clue is required", ErrInvalid, where)
			}
			seen[l.Name] = true
		}
	}
	return nil
}

// RequireCity checks that city can anchor location matching: it must not be
// the reserved "other" id and must have at least one prize location in c.
func RequireCity(c hunt.CityCatalog, city hunt.City) error {
	if city == "" || city == hunt.CityOther {
		return fmt.Errorf("%w: %q cannot hold prize locations", ErrInvalid, city)
	}
	if len(c[city]) == 0 {
		return fmt.Errorf("%w: no prize locations for city %q", ErrInvalid, city)
	}
	return nil
}
