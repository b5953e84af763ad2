// Package geoutil holds the small set of WGS84 geometry helpers shared by
// business/data/routing, business/mapf, the result publisher and the reroute
// watcher: WKT <-> orb.LineString
// conversion for the path column, and a planar (EPSG:3857) point-to-polyline
// distance used by the deviation test. Great-circle distance is left to
// github.com/paulmach/orb/geo and the WGS84->EPSG:3857 forward projection to
// github.com/paulmach/orb/project, the pack's own geometry libraries; there is
// no ready-made library in the retrieved examples for the remaining
// point-to-segment distance math the deviation test also needs, so that
// narrow piece alone is plain math against orb.Point here.
package geoutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ToWebMercator projects a WGS84 point to EPSG:3857 meters.
func ToWebMercator(p orb.Point) orb.Point {
	return project.WGS84.ToMercator(p)
}

// DistancePointToLineString returns the planar distance in meters between
// lat/lon and the closest segment of line, after projecting both to
// EPSG:3857. Returns +Inf if line has fewer than 2 points.
func DistancePointToLineString(p orb.Point, line orb.LineString) float64 {
	if len(line) < 2 {
		return math.Inf(1)
	}
	mp := ToWebMercator(p)
	best := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		a := ToWebMercator(line[i])
		b := ToWebMercator(line[i+1])
		d := distancePointToSegment(mp, a, b)
		if d < best {
			best = d
		}
	}
	return best
}

func distancePointToSegment(p, a, b orb.Point) float64 {
	abx, aby := b[0]-a[0], b[1]-a[1]
	apx, apy := p[0]-a[0], p[1]-a[1]
	abLenSq := abx*abx + aby*aby
	if abLenSq == 0 {
		return math.Hypot(apx, apy)
	}
	t := (apx*abx + apy*aby) / abLenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx := a[0] + t*abx
	cy := a[1] + t*aby
	return math.Hypot(p[0]-cx, p[1]-cy)
}

// WKT renders line as a WGS84 WKT LINESTRING, or "LINESTRING EMPTY" when it
// has fewer than 2 vertices (§3 invariant 3).
func WKT(line orb.LineString) string {
	if len(line) < 2 {
		return "LINESTRING EMPTY"
	}
	parts := make([]string, len(line))
	for i, pt := range line {
		parts[i] = strconv.FormatFloat(pt[0], 'f', 8, 64) + " " + strconv.FormatFloat(pt[1], 'f', 8, 64)
	}
	return "LINESTRING(" + strings.Join(parts, ", ") + ")"
}

// ParseWKT parses a WKT LINESTRING (as returned by PostGIS's ST_AsText) back
// into an orb.LineString. An empty or malformed string yields an empty line,
// never an error, since callers treat that as "no path" per §7.
func ParseWKT(s string) orb.LineString {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	if s == "" || strings.Contains(upper, "EMPTY") {
		return orb.LineString{}
	}
	start := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if start < 0 || end < 0 || end <= start {
		return orb.LineString{}
	}
	body := s[start+1 : end]
	coordPairs := strings.Split(body, ",")
	line := make(orb.LineString, 0, len(coordPairs))
	for _, pair := range coordPairs {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(fields[0], 64)
		lat, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		line = append(line, orb.Point{lon, lat})
	}
	return line
}

// Validate returns a descriptive error if line is non-empty but has fewer
// than 2 vertices, per §3 invariant 3.
func Validate(line orb.LineString) error {
	if len(line) == 1 {
		return fmt.Errorf("linestring has a single vertex, must have 0 or >=2")
	}
	return nil
}
