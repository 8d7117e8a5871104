package render

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/visitmap/visitmap/internal/model"
)

func TestHTMLTable_OrderAndCells(t *testing.T) {
	rs := model.FromRows(
		[]string{"country", "city", "value"},
		[]model.Row{
			{model.Text("PL"), model.Text("Warsaw"), model.Integer(3)},
			{model.Text("FI"), model.Text("Helsinki"), model.Integer(2)},
		},
	)
	html, err := HTMLTable(rs)
	if err != nil {
		t.Fatalf("HTMLTable: %v", err)
	}

	want := `<table style="border: 1px solid">` +
		`<th style="border: 1px solid">country</th>` +
		`<th style="border: 1px solid">city</th>` +
		`<th style="border: 1px solid">value</th>` +
		`<tr style="border: 1px solid"><td>PL</td><td>Warsaw</td><td>3</td></tr>` +
		`<tr style="border: 1px solid"><td>FI</td><td>Helsinki</td><td>2</td></tr>` +
		`</table>`
	if html != want {
		t.Fatalf("table mismatch:\n got: %s\nwant: %s", html, want)
	}
}

func TestHTMLTable_NullRendersEmpty(t *testing.T) {
	rs := model.FromRows([]string{"v"}, []model.Row{{model.Null()}})
	html, err := HTMLTable(rs)
	if err != nil {
		t.Fatalf("HTMLTable: %v", err)
	}
	if !strings.Contains(html, "<td></td>") {
		t.Fatalf("null cell not empty: %s", html)
	}
}

func TestMapCanvas_EmptyStillCompleteScript(t *testing.T) {
	rs := model.FromRows([]string{"airport", "lat", "long"}, nil)
	canvas, err := MapCanvas(rs)
	if err != nil {
		t.Fatalf("MapCanvas: %v", err)
	}
	if !strings.Contains(canvas, "mappa.tileMap(options)") {
		t.Fatal("preamble missing from empty canvas")
	}
	if !strings.HasSuffix(canvas, "}</script>") {
		t.Fatalf("canvas not closed: ...%s", canvas[len(canvas)-20:])
	}
	if strings.Contains(canvas, "latLngToPixel") {
		t.Fatal("empty result emitted a marker")
	}
}

func TestMapCanvas_OneMarkerPerRow(t *testing.T) {
	rs := model.FromRows(
		[]string{"airport", "lat", "long"},
		[]model.Row{
			{model.Text("waw"), model.Real(52.1672), model.Real(20.9679)},
			{model.Text("hel"), model.Real(60.3183), model.Real(24.9497)},
		},
	)
	canvas, err := MapCanvas(rs)
	if err != nil {
		t.Fatalf("MapCanvas: %v", err)
	}
	if n := strings.Count(canvas, "point = myMap.latLngToPixel("); n != 2 {
		t.Fatalf("marker statements = %d, want 2", n)
	}
	if !strings.Contains(canvas, "myMap.latLngToPixel(52.1672, 20.9679);") {
		t.Fatalf("missing waw marker: %s", canvas)
	}
	if !strings.Contains(canvas, "text(hel, point.x, point.y);") {
		t.Fatalf("missing hel label: %s", canvas)
	}
}

func TestJSONDocument_Shape(t *testing.T) {
	rs := model.FromRows(
		[]string{"email", ""},
		[]model.Row{
			{model.Text("a@example.com"), model.Null()},
			{model.Integer(1), model.Blob([]byte("ab"))},
		},
	)
	doc, err := JSONDocument(rs)
	if err != nil {
		t.Fatalf("JSONDocument: %v", err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"columns":["email",""],"rows":[["a@example.com",null],[1,{"base64":"YWI"}]]}`
	if string(b) != want {
		t.Fatalf("json mismatch:\n got: %s\nwant: %s", b, want)
	}
}

func TestJSONDocument_EmptyRowsIsArrayNotNull(t *testing.T) {
	doc, err := JSONDocument(model.FromRows([]string{"a"}, nil))
	if err != nil {
		t.Fatalf("JSONDocument: %v", err)
	}
	b, _ := json.Marshal(doc)
	if !strings.Contains(string(b), `"rows":[]`) {
		t.Fatalf("empty rows should encode as []: %s", b)
	}
}

func TestRenderers_PropagateStreamFault(t *testing.T) {
	fault := errors.New("connection reset")
	broken := func() model.ResultSet {
		n := 0
		return model.ResultSet{
			Columns: []string{"a", "b", "c"},
			Next: func() (model.Row, error) {
				if n == 0 {
					n++
					return model.Row{model.Text("x"), model.Real(1), model.Real(2)}, nil
				}
				return nil, fault
			},
		}
	}

	if _, err := HTMLTable(broken()); !errors.Is(err, fault) {
		t.Fatalf("HTMLTable fault = %v", err)
	}
	if _, err := MapCanvas(broken()); !errors.Is(err, fault) {
		t.Fatalf("MapCanvas fault = %v", err)
	}
	if _, err := JSONDocument(broken()); !errors.Is(err, fault) {
		t.Fatalf("JSONDocument fault = %v", err)
	}
}

func TestPage_ContainsFragments(t *testing.T) {
	body := Page("<script>CANVAS</script>", "<table>SCORE</table>")
	if !strings.Contains(body, "CANVAS") || !strings.Contains(body, "SCORE") {
		t.Fatalf("page missing fragments: %s", body)
	}
	if !strings.Contains(body, "OpenStreetMap") {
		t.Fatal("page missing footer")
	}
}
