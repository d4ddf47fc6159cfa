// Package hunt defines the scavenger hunt domain: prize locations, the
// per-sender conversation progress, the stage enumeration derived from it,
// and nearest-location resolution.
package hunt

import (
	"errors"
	"slices"
)

var (
	ErrEmptyCandidateSet  = errors.New("no candidate prize locations")
	ErrUnresolvedLocation = errors.New("prize location not resolved")
	ErrUnknownPayload     = errors.New("unknown quick reply payload")
)

type City string

const (
	CitySanFrancisco City = "sanFrancisco"
	CityBoston       City = "boston"
	CitySanDiego     City = "sanDiego"

	// CityOther marks a user outside every active city.
	CityOther City = "other"
)

type Coordinate struct {
	Lat  float64 `json:"lat" yaml:"lat" toml:"lat"`
	Long float64 `json:"long" yaml:"long" toml:"long"`
}

type PrizeLocation struct {
	ID          int        `json:"id" yaml:"id" toml:"id"`
	Name        string     `json:"name" yaml:"name" toml:"name"`
	Coordinates Coordinate `json:"coordinates" yaml:"coordinates" toml:"coordinates"`
	Clues       []string   `json:"clues" yaml:"clues" toml:"clues"`
}

// CityCatalog maps a city to its ordered prize locations. It is built once
// at startup and only read afterwards.
type CityCatalog map[City][]PrizeLocation

// Locations returns a copy of the prize locations configured for city.
func (c CityCatalog) Locations(city City) []PrizeLocation {
	locs := c[city]
	out := make([]PrizeLocation, len(locs))
	for i, l := range locs {
		l.Clues = slices.Clone(l.Clues)
		out[i] = l
	}
	return out
}

// Clues returns the clue sequence of the location named name within city.
func (c CityCatalog) Clues(city City, name string) ([]string, bool) {
	if city == "" || name == "" {
		return nil, false
	}
	for _, l := range c[city] {
		if l.Name == name {
			return slices.Clone(l.Clues), true
		}
	}
	return nil, false
}

// Progress is the mutable conversation record of one sender. The zero value
// is the canonical initial state.
type Progress struct {
	City       City   `json:"city,omitempty"`
	Location   string `json:"resolvedLocation,omitempty"`
	ClueCursor int    `json:"clueCursor"`

	// PrizeFound is carried for completion marking; no transition uses it.
	PrizeFound bool `json:"prizeFound"`
}

// Reset restores p to the initial state.
func (p *Progress) Reset() {
	*p = Progress{}
}
