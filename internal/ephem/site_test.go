package ephem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSiteOf(t *testing.T) {
	s, err := SiteOf("lco")
	if err != nil {
		t.Fatalf("SiteOf: %v", err)
	}
	if s.Name != "LCO" || s.Latitude > -29 || s.Latitude < -29.1 {
		t.Errorf("unexpected site %+v", s)
	}
	if s.Location() == nil {
		t.Error("site has no location")
	}

	if _, err := SiteOf("atlantis"); err == nil {
		t.Error("expected error for unknown site")
	}
}

func TestLoadSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	doc := `sites:
  - name: SOAR
    latitude: -30.2379
    longitude: -70.7337
    elevation: 2713
    timezone: America/Santiago
  - name: LCO
    latitude: -29.0
    longitude: -70.7
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadSites(path)
	if err != nil {
		t.Fatalf("LoadSites: %v", err)
	}
	soar, err := reg.Lookup("SOAR")
	if err != nil {
		t.Fatalf("Lookup(SOAR): %v", err)
	}
	if soar.Elevation != 2713 || soar.Location().String() != "America/Santiago" {
		t.Errorf("unexpected SOAR %+v (%v)", soar, soar.Location())
	}

	lco, _ := reg.Lookup("LCO")
	if lco.Latitude != -29.0 {
		t.Errorf("file entry should override built-in, got latitude %v", lco.Latitude)
	}
	if _, err := reg.Lookup("Keck"); err != nil {
		t.Errorf("built-in sites should remain: %v", err)
	}
}

func TestParseSitesErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "sites: [",
		"no name":       "sites:\n  - latitude: 10\n",
		"bad latitude":  "sites:\n  - name: X\n    latitude: 100\n",
		"bad time zone": "sites:\n  - name: X\n    timezone: Mars/Olympus\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSites([]byte(doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
