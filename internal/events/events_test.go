package events

import (
	"encoding/json"
	"testing"

	"github.com/visitmap/visitmap/internal/model"
)

func TestFromLocation_CellAndFields(t *testing.T) {
	loc := model.Location{Airport: "waw", Country: "PL", City: "Warsaw", Lat: 52.1672, Lon: 20.9679}
	ev := FromLocation(loc, 8)

	if ev.Airport != "waw" || ev.Country != "PL" || ev.City != "Warsaw" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Cell == "" {
		t.Fatal("expected an H3 cell for a valid coordinate")
	}
	if ev.TS.IsZero() {
		t.Fatal("timestamp not set")
	}

	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"airport", "country", "city", "lat", "lon", "cell", "ts"} {
		if _, ok := back[k]; !ok {
			t.Fatalf("missing field %q in %s", k, b)
		}
	}
}

func TestFromLocation_SameCoordinateSameCell(t *testing.T) {
	loc := model.Location{Lat: 60.3183, Lon: 24.9497}
	a := FromLocation(loc, 8)
	b := FromLocation(loc, 8)
	if a.Cell != b.Cell {
		t.Fatalf("cells differ: %s vs %s", a.Cell, b.Cell)
	}
	c := FromLocation(loc, 4)
	if c.Cell == a.Cell {
		t.Fatal("different resolutions should yield different cells")
	}
}
