// Package geo extracts visitor geolocation facts from the headers the
// edge network attaches to forwarded requests.
package geo

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/visitmap/visitmap/internal/model"
)

// FromRequest reads Cloudflare-style geolocation headers. The colo
// (airport) code is the CF-Ray suffix. Absent country or city yields "",
// absent coordinates yield (0,0).
func FromRequest(r *http.Request) model.Location {
	loc := model.Location{
		Airport: coloFromRay(r.Header.Get("CF-Ray")),
		Country: strings.TrimSpace(r.Header.Get("CF-IPCountry")),
		City:    strings.TrimSpace(r.Header.Get("CF-IPCity")),
	}
	loc.Lat = parseCoord(r.Header.Get("CF-IPLatitude"))
	loc.Lon = parseCoord(r.Header.Get("CF-IPLongitude"))
	return loc
}

// CF-Ray looks like "8f1d2c3e4a5b6c7d-WAW".
func coloFromRay(ray string) string {
	ray = strings.TrimSpace(ray)
	if i := strings.LastIndexByte(ray, '-'); i >= 0 && i+1 < len(ray) {
		return ray[i+1:]
	}
	return ""
}

func parseCoord(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0
	}
	return f
}
