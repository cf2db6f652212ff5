package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/obscode/magdash/internal/table"
)

func TestFormat(t *testing.T) {
	tg := table.Target{
		ID: "7", Name: "SN 2024#x", RA: 12.5, Dec: -45.25, Equinox: 2000,
		RotMode: "EQU", Probe1: table.Probe{RA: "12:00:00", Dec: "-45:00:00", Equinox: 2000},
		Probe2: table.Probe{Equinox: 2000}, ObsEpoch: 0, Comment: "hot # target",
	}
	want := `7 SN_2024\#x 12.5 -45.25 2000 0 0 0 EQU 12:00:00 -45:00:00 2000 - - 2000 0 # hot # target`
	if got := Format(tg); got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, []table.Target{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "2 b ") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
