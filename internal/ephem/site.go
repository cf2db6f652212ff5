package ephem

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Site is an observing location. Longitude is east-positive.
type Site struct {
	Name      string  `yaml:"name" json:"name"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Elevation float64 `yaml:"elevation" json:"elevation"` // meters
	TimeZone  string  `yaml:"timezone" json:"timezone"`

	loc *time.Location
}

// Location returns the site's time zone. Sites whose zone database entry
// is unavailable fall back to a fixed offset derived from the longitude.
func (s Site) Location() *time.Location {
	if s.loc != nil {
		return s.loc
	}
	return fixedZone(s)
}

func fixedZone(s Site) *time.Location {
	hours := int(s.Longitude / 15)
	return time.FixedZone(fmt.Sprintf("%s%+03d", s.Name, hours), hours*3600)
}

// withLocation resolves TimeZone into a *time.Location.
func (s Site) withLocation() (Site, error) {
	if s.TimeZone == "" {
		s.loc = fixedZone(s)
		return s, nil
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return s, fmt.Errorf("site %s: loading time zone %q: %w", s.Name, s.TimeZone, err)
	}
	s.loc = loc
	return s, nil
}

func (s Site) validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("site without name")
	case s.Latitude < -90 || s.Latitude > 90:
		return fmt.Errorf("site %s: latitude %v out of range", s.Name, s.Latitude)
	case s.Longitude < -180 || s.Longitude > 360:
		return fmt.Errorf("site %s: longitude %v out of range", s.Name, s.Longitude)
	}
	return nil
}

var builtinSites = []Site{
	{Name: "LCO", Latitude: -29.0146, Longitude: -70.6926, Elevation: 2380, TimeZone: "America/Santiago"},
	{Name: "CTIO", Latitude: -30.1690, Longitude: -70.8063, Elevation: 2207, TimeZone: "America/Santiago"},
	{Name: "Paranal", Latitude: -24.6272, Longitude: -70.4042, Elevation: 2635, TimeZone: "America/Santiago"},
	{Name: "MWO", Latitude: 34.2247, Longitude: -118.0572, Elevation: 1742, TimeZone: "America/Los_Angeles"},
	{Name: "Palomar", Latitude: 33.3563, Longitude: -116.8650, Elevation: 1712, TimeZone: "America/Los_Angeles"},
	{Name: "KPNO", Latitude: 31.9583, Longitude: -111.5967, Elevation: 2096, TimeZone: "America/Phoenix"},
	{Name: "Keck", Latitude: 19.8283, Longitude: -155.4783, Elevation: 4160, TimeZone: "Pacific/Honolulu"},
	{Name: "LaPalma", Latitude: 28.7606, Longitude: -17.8814, Elevation: 2327, TimeZone: "Atlantic/Canary"},
}

// Sites is a registry of observing sites keyed by case-folded name.
type Sites map[string]Site

// BuiltinSites returns a fresh registry holding the built-in observatories.
func BuiltinSites() Sites {
	reg := make(Sites, len(builtinSites))
	for _, s := range builtinSites {
		resolved, err := s.withLocation()
		if err != nil {
			resolved.loc = fixedZone(s)
		}
		reg.add(resolved)
	}
	return reg
}

func (r Sites) add(s Site) {
	r[strings.ToUpper(s.Name)] = s
}

// Lookup returns the site registered under name (case-insensitive).
func (r Sites) Lookup(name string) (Site, error) {
	s, ok := r[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Site{}, fmt.Errorf("unknown site %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Names returns the registered site names in sorted order.
func (r Sites) Names() []string {
	names := make([]string, 0, len(r))
	for _, s := range r {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

// SiteOf returns a built-in site by name.
func SiteOf(name string) (Site, error) {
	return BuiltinSites().Lookup(name)
}

type sitesFile struct {
	Sites []Site `yaml:"sites"`
}

// LoadSites reads additional sites from a YAML file of the form
//
//	sites:
//	  - name: SOAR
//	    latitude: -30.2379
//	    longitude: -70.7337
//	    elevation: 2713
//	    timezone: America/Santiago
//
// and returns them merged over the built-in registry.
func LoadSites(path string) (Sites, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sites file: %w", err)
	}
	return ParseSites(data)
}

// ParseSites decodes a YAML sites document and merges it over the built-in
// registry.
func ParseSites(data []byte) (Sites, error) {
	var f sitesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding sites: %w", err)
	}

	reg := BuiltinSites()
	for _, s := range f.Sites {
		if err := s.validate(); err != nil {
			return nil, err
		}
		resolved, err := s.withLocation()
		if err != nil {
			return nil, err
		}
		reg.add(resolved)
	}
	return reg, nil
}
