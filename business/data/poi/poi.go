// Package poi provides the combined-POI target selector (C3): the union of
// a client's detected and predicted points of interest, ordered per §3, plus
// the nearest-GTFS-stop fallback when a client has none.
package poi

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/OpenTransitTools/urbanroute/business/data/geo"
	"github.com/OpenTransitTools/urbanroute/business/data/routing"
	"github.com/OpenTransitTools/urbanroute/business/data/transit"
)

// PredictionType distinguishes daily from weekly predicted visits.
type PredictionType string

const (
	Daily  PredictionType = "daily"
	Weekly PredictionType = "weekly"
)

// CombinedPOI is one row of view_combined_pois: the union of detected and
// predicted POIs for a client, already ordered by the selector's preference.
type CombinedPOI struct {
	ClientID          string          `db:"client_id"`
	Lat               float64         `db:"lat"`
	Lon               float64         `db:"lon"`
	Predicted         bool            `db:"predicted"`
	POIRank           *int            `db:"poi_rank"`
	PredictedVisitAt  *time.Time      `db:"predicted_visit_time"`
	CreatedAt         *time.Time      `db:"created_at"`
}

// CoordinateKey returns a fixed-precision (6 decimal place) key for lat/lon,
// per §9's design note on coordinate-equality aggregation: callers should
// compare POIs by this key, not by raw float equality.
func (p CombinedPOI) CoordinateKey() string {
	return CoordinateKey(p.Lat, p.Lon)
}

// CoordinateKey renders lat/lon as a fixed 6-decimal-place key using
// shopspring/decimal so string comparisons are exact regardless of the
// float64 bit pattern a given reader/writer produced.
func CoordinateKey(lat, lon float64) string {
	latD := decimal.NewFromFloat(lat).Round(6)
	lonD := decimal.NewFromFloat(lon).Round(6)
	return latD.String() + "," + lonD.String()
}

// RoundCoordinate canonicalizes lat/lon to the same 6-decimal-place grid as
// CoordinateKey, returning a float64 pair rather than a string. §9's design
// note warns that coordinate-equality aggregation is fragile and should
// treat lat/lon as fixed-precision keys "at the ownership boundary" — this
// is that boundary: view_combined_pois unions rows from the detected-POI
// writer and the predicted-POI writer, which can independently produce
// bit-distinct floats for the same real-world point. Snapping to 6 decimal
// places here, before the coordinate leaves this package, keeps every
// downstream float-equality lookup keyed on destination coordinates
// (business/data/routing.LatestAstarRoute's exact-match query) stable
// across ticks regardless of which writer contributed the row.
func RoundCoordinate(lat, lon float64) (float64, float64) {
	latF, _ := decimal.NewFromFloat(lat).Round(6).Float64()
	lonF, _ := decimal.NewFromFloat(lon).Round(6).Float64()
	return latF, lonF
}

// SelectTarget returns the client's single best target POI, picking the head
// of the combined ordering: predicted-first, then higher poi_rank, then more
// recent predicted_visit_time, then more recent created_at (§3, §4.3). The
// query applies this ordering itself over view_combined_pois and takes its
// head.
func SelectTarget(db *sqlx.DB, clientID string) (*CombinedPOI, error) {
	var p CombinedPOI
	err := db.Get(&p, `select client_id, lat, lon, predicted, poi_rank,
			predicted_visit_time, created_at
		from view_combined_pois
		where client_id = $1
		order by predicted desc, poi_rank desc nulls last,
			predicted_visit_time desc nulls last, created_at desc nulls last
		limit 1`, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Lat, p.Lon = RoundCoordinate(p.Lat, p.Lon)
	return &p, nil
}

// Target is C3's output after applying the §4.3 fallback: the client's
// combined-POI head, or — when the client has none — the nearest boardable
// GTFS stop to its latest location. StopID and FromStopFallback are only set
// in the fallback case, so the scorer (C4) can tag the A* call site and
// record the stop on the A* row; the multimodal leg's boarding stop is still
// looked up separately by the scorer.
type Target struct {
	Lat              float64
	Lon              float64
	TargetType       routing.TargetType
	StopID           *string
	FromStopFallback bool
}

// SelectTargetWithFallback runs C3: the combined-POI selector, falling back
// to the nearest location_type-0 GTFS stop from the client's latest location
// when the client has no detected or predicted POI at all (§4.3). Returns
// nil only when neither a POI nor a nearby stop can be found.
func SelectTargetWithFallback(db *sqlx.DB, clientID string) (*Target, error) {
	p, err := SelectTarget(db, clientID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return &Target{Lat: p.Lat, Lon: p.Lon, TargetType: routing.TargetPOI}, nil
	}

	loc, err := geo.LatestLocation(db, clientID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, nil
	}

	stop, err := transit.NearestStop(db, loc.Lat, loc.Lon)
	if err != nil {
		return nil, err
	}
	if stop == nil {
		return nil, nil
	}

	stopLat, stopLon := RoundCoordinate(stop.Lat, stop.Lon)
	stopID := stop.StopID
	return &Target{
		Lat:              stopLat,
		Lon:              stopLon,
		TargetType:       routing.TargetStopPoint,
		StopID:           &stopID,
		FromStopFallback: true,
	}, nil
}
