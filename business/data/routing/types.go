package routing

import (
	"time"

	"github.com/OpenTransitTools/urbanroute/business/geoutil"
	"github.com/paulmach/orb"
)

// SegmentType is the kind of a chosen or reroute route row. See §3.
type SegmentType string

const (
	Direct     SegmentType = "direct"
	Multimodal SegmentType = "multimodal"
	Fallback   SegmentType = "fallback"
)

// TargetType distinguishes what an A* route was computed towards.
type TargetType string

const (
	TargetPOI       TargetType = "poi"
	TargetStopPoint TargetType = "stop_point"
)

// DirectStopID is the sentinel stop_id invariant (2) of §3 requires for
// direct chosen/reroute rows.
const DirectStopID = "direct"

// LatLon is a plain WGS84 coordinate pair, kept distinct from orb.Point at
// the data-model boundary so db struct tags read naturally as lat/lon
// columns instead of x/y.
type LatLon struct {
	Lat float64
	Lon float64
}

// Point converts to an orb.Point (X=lon, Y=lat).
func (c LatLon) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

// AstarRoute is a geodesic walking path computed by business/astar (C1).
type AstarRoute struct {
	ClientID         string      `db:"client_id"`
	StopID           *string     `db:"stop_id"`
	TargetType       TargetType  `db:"target_type"`
	OriginLat        float64     `db:"origin_lat"`
	OriginLon        float64     `db:"origin_lon"`
	DestinationLat   float64     `db:"destination_lat"`
	DestinationLon   float64     `db:"destination_lon"`
	PathWKT          string      `db:"path"`
	Distance         float64     `db:"distance"`
	EfficiencyScore  float64     `db:"efficiency_score"`
	DecisionContext  string      `db:"decision_context"`
	PredictedETA     *time.Time  `db:"predicted_eta"`
	CreatedAt        time.Time   `db:"created_at"`
}

// Path decodes PathWKT into an orb.LineString.
func (a AstarRoute) Path() orb.LineString { return geoutil.ParseWKT(a.PathWKT) }

// MapfRoute is a multimodal "walk-to-stop" leg produced by business/mapf (C2).
type MapfRoute struct {
	ClientID        string    `db:"client_id"`
	StopID          string    `db:"stop_id"`
	DestinationLat  float64   `db:"destination_lat"`
	DestinationLon  float64   `db:"destination_lon"`
	PathWKT         string    `db:"path"`
	Distance        float64   `db:"distance"`
	Success         bool      `db:"success"`
	DecisionContext string    `db:"decision_context"`
	CreatedAt       time.Time `db:"created_at"`
}

func (m MapfRoute) Path() orb.LineString { return geoutil.ParseWKT(m.PathWKT) }

// OptimizedRoute is the single currently-advised route per (client, stop_id,
// segment_type): "optimized_routes" in §3.
type OptimizedRoute struct {
	ClientID       string      `db:"client_id"`
	StopID         string      `db:"stop_id"`
	OriginLat      float64     `db:"origin_lat"`
	OriginLon      float64     `db:"origin_lon"`
	DestinationLat float64     `db:"destination_lat"`
	DestinationLon float64     `db:"destination_lon"`
	PathWKT        string      `db:"path"`
	SegmentType    SegmentType `db:"segment_type"`
	IsChosen       bool        `db:"is_chosen"`
	CreatedAt      time.Time   `db:"created_at"`
}

func (o OptimizedRoute) Path() orb.LineString { return geoutil.ParseWKT(o.PathWKT) }

// RerouteEvent is an audit row recording that the chosen route changed and
// why.
type RerouteEvent struct {
	ClientID             string      `db:"client_id"`
	StopID               string      `db:"stop_id"`
	OriginLat            float64     `db:"origin_lat"`
	OriginLon            float64     `db:"origin_lon"`
	DestinationLat       float64     `db:"destination_lat"`
	DestinationLon       float64     `db:"destination_lon"`
	PathWKT              string      `db:"path"`
	SegmentType          SegmentType `db:"segment_type"`
	Reason               string      `db:"reason"`
	PreviousStopID       *string     `db:"previous_stop_id"`
	PreviousSegmentType  *string     `db:"previous_segment_type"`
	CreatedAt            time.Time   `db:"created_at"`
}
