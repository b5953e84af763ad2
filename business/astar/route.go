package astar

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/OpenTransitTools/urbanroute/business/data/routing"
)

// DecisionContext tags why an A* call was made, persisted alongside the
// route row so later queries can tell a POI route from a fallback stop
// route (§4.1).
type DecisionContext string

const (
	RoutedToPOI      DecisionContext = "routed_to_poi"
	FallbackToStop   DecisionContext = "fallback_stop_point"
	FallbackAstar    DecisionContext = "fallback_astar"
)

// FindAndSave runs A* between origin and destination over the graph loaded
// from source for the padded bbox, and persists the result (found or not)
// as an astar_routes row tagged with decisionContext. Returns the computed
// Result so the caller (the scorer, C4) can use it without a re-read.
func FindAndSave(
	db *sqlx.DB,
	source GraphSource,
	clientID string,
	targetType routing.TargetType,
	stopID *string,
	origin, destination routing.LatLon,
	decisionContext DecisionContext,
) (Result, error) {
	bbox := NewBBox(origin.Point(), destination.Point(), BBoxPaddingDegrees)

	graph, err := source.LoadGraph(bbox)
	if err != nil {
		return Result{}, routing.Wrap(routing.KindTransient, "astar.FindAndSave", err)
	}
	if len(graph.Nodes) == 0 {
		return Result{}, routing.Wrap(routing.KindDataMissing, "astar.FindAndSave", ErrEmptyGraph)
	}

	result := Route(graph, origin.Point(), destination.Point())

	path := result.Path
	if path == nil {
		path = orb.LineString{}
	}

	efficiency := 0.0
	if result.Found && result.DistanceM > 0 {
		direct := geoDistance(origin, destination)
		efficiency = direct / result.DistanceM
	}

	row := routing.AstarRoute{
		ClientID:        clientID,
		StopID:          stopID,
		TargetType:      targetType,
		OriginLat:       origin.Lat,
		OriginLon:       origin.Lon,
		DestinationLat:  destination.Lat,
		DestinationLon:  destination.Lon,
		Distance:        result.DistanceM,
		EfficiencyScore: efficiency,
		DecisionContext: string(decisionContext),
		CreatedAt:       time.Now().UTC(),
	}

	if err := routing.SaveAstarRoute(db, row, path); err != nil {
		return result, err
	}

	return result, nil
}

// geoDistance is the great-circle distance between two LatLon points, used
// to score how directly the A* path tracks the straight line between
// origin and destination.
func geoDistance(a, b routing.LatLon) float64 {
	return geo.Distance(a.Point(), b.Point())
}
