// Package model defines core domain types shared across the service.
package model

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// Kind tags the active variant of a Cell. The set is closed; adding a
// storage type means touching every switch over Kind.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

// Cell is one typed value from a query result. Exactly one variant is
// active, selected by Kind.
type Cell struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    []byte
}

func Null() Cell           { return Cell{kind: KindNull} }
func Integer(v int64) Cell { return Cell{kind: KindInteger, i: v} }
func Real(v float64) Cell  { return Cell{kind: KindReal, f: v} }
func Text(v string) Cell   { return Cell{kind: KindText, s: v} }
func Blob(v []byte) Cell   { return Cell{kind: KindBlob, b: v} }

func (c Cell) Kind() Kind { return c.kind }

var rawStd = base64.StdEncoding.WithPadding(base64.NoPadding)

// CellOf maps a database/sql driver value into the closed union.
func CellOf(v any) Cell {
	switch t := v.(type) {
	case nil:
		return Null()
	case int64:
		return Integer(t)
	case float64:
		return Real(t)
	case string:
		return Text(t)
	case []byte:
		return Blob(t)
	default:
		return Text(fmt.Sprint(t))
	}
}

// Display renders the cell as a scalar string for tabular output: empty
// for null, canonical decimal text for numbers, verbatim text, un-padded
// standard base64 for blobs.
func (c Cell) Display() string {
	switch c.kind {
	case KindNull:
		return ""
	case KindInteger:
		return strconv.FormatInt(c.i, 10)
	case KindReal:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	case KindText:
		return c.s
	case KindBlob:
		return rawStd.EncodeToString(c.b)
	default:
		return ""
	}
}

// JSON returns the cell as a value ready for encoding/json. Blobs become
// {"base64": <unpadded b64>}; round-tripping requires the consumer to
// decode that field.
func (c Cell) JSON() any {
	switch c.kind {
	case KindNull:
		return nil
	case KindInteger:
		return c.i
	case KindReal:
		return c.f
	case KindText:
		return c.s
	case KindBlob:
		return map[string]any{"base64": rawStd.EncodeToString(c.b)}
	default:
		return nil
	}
}

// Row is an ordered sequence of cells, positionally aligned with the
// result's column list.
type Row []Cell

// RowFunc produces the next row of a result. It returns (nil, nil) once
// the stream is exhausted and a non-nil error on a mid-stream read fault.
type RowFunc func() (Row, error)

// ResultSet is an ordered column list plus a forward-only, single-pass
// row stream. It may be consumed exactly once; re-iteration is not
// supported.
type ResultSet struct {
	Columns []string
	Next    RowFunc
}

// FromRows builds an in-memory ResultSet, mainly for tests.
func FromRows(columns []string, rows []Row) ResultSet {
	i := 0
	return ResultSet{
		Columns: columns,
		Next: func() (Row, error) {
			if i >= len(rows) {
				return nil, nil
			}
			r := rows[i]
			i++
			return r, nil
		},
	}
}

// Location carries the geolocation facts extracted from one request.
// Country and city may be empty; coordinates default to (0,0).
type Location struct {
	Airport string
	Country string
	City    string
	Lat     float64
	Lon     float64
}
