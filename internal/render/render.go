// Package render folds a tabular result into one of three materialized
// outputs: an HTML table, a scripted map-canvas fragment, or a JSON
// document. Each ResultSet is consumed in a single forward pass.
package render

import (
	"fmt"
	"strings"

	"github.com/visitmap/visitmap/internal/model"
)

// Map-visualization preamble, emitted once regardless of row count.
const canvasPreamble = `
  <script src="https://cdnjs.cloudflare.com/ajax/libs/p5.js/0.5.16/p5.min.js" type="text/javascript"></script>
  <script src="https://unpkg.com/mappa-mundi/dist/mappa.js" type="text/javascript"></script>
    <script>
    let myMap;
    let canvas;
    const mappa = new Mappa('Leaflet');
    const options = {
      lat: 0,
      lng: 0,
      zoom: 2,
      style: "http://{s}.tile.osm.org/{z}/{x}/{y}.png"
    }

    function setup(){
      canvas = createCanvas(640,480);
      myMap = mappa.tileMap(options);
      myMap.overlay(canvas)

      fill(200, 100, 100);
      myMap.onChange(drawPoint);
    }

    function draw(){
    }

    function drawPoint(){
      clear();
      let point;`

// HTMLTable renders a result as an HTML table. Column names and cell
// values are emitted unescaped, matching the upstream page; order is
// preserved exactly as delivered.
func HTMLTable(rs model.ResultSet) (string, error) {
	var b strings.Builder
	b.WriteString(`<table style="border: 1px solid">`)
	for _, col := range rs.Columns {
		fmt.Fprintf(&b, `<th style="border: 1px solid">%s</th>`, col)
	}
	for {
		row, err := rs.Next()
		if err != nil {
			return "", fmt.Errorf("read row: %w", err)
		}
		if row == nil {
			break
		}
		b.WriteString(`<tr style="border: 1px solid">`)
		for _, cell := range row {
			fmt.Fprintf(&b, "<td>%s</td>", cell.Display())
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String(), nil
}

// MapCanvas renders a result as a p5.js/mappa script placing one marker
// per row. The caller guarantees exactly three columns in (label, lat,
// lon) order; a mismatched result produces garbage output, not an error.
func MapCanvas(rs model.ResultSet) (string, error) {
	var b strings.Builder
	b.WriteString(canvasPreamble)
	for {
		row, err := rs.Next()
		if err != nil {
			return "", fmt.Errorf("read row: %w", err)
		}
		if row == nil {
			break
		}
		var label, lat, lon string
		if len(row) > 0 {
			label = row[0].Display()
		}
		if len(row) > 1 {
			lat = row[1].Display()
		}
		if len(row) > 2 {
			lon = row[2].Display()
		}
		fmt.Fprintf(&b,
			"point = myMap.latLngToPixel(%s, %s);\nellipse(point.x, point.y, 10, 10);\ntext(%s, point.x, point.y);\n",
			lat, lon, label)
	}
	b.WriteString("}</script>")
	return b.String(), nil
}

// JSONDocument folds a result into {"columns": [...], "rows": [[...]]},
// with each cell encoded per model.Cell.JSON.
func JSONDocument(rs model.ResultSet) (map[string]any, error) {
	cols := make([]string, len(rs.Columns))
	copy(cols, rs.Columns)

	rows := make([][]any, 0)
	for {
		row, err := rs.Next()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if row == nil {
			break
		}
		r := make([]any, len(row))
		for i, cell := range row {
			r[i] = cell.JSON()
		}
		rows = append(rows, r)
	}

	return map[string]any{
		"columns": cols,
		"rows":    rows,
	}, nil
}

// Page assembles the landing page body from a rendered canvas and
// scoreboard table.
func Page(canvas, scoreboard string) string {
	return fmt.Sprintf(`
        <body>
        %s Database powered by <a href="https://chiselstrike.com/">Turso</a>.
        <br /> Scoreboard: <br /> %s
        <footer>Map data from OpenStreetMap (https://tile.osm.org/)</footer>
        </body>
        `, canvas, scoreboard)
}
