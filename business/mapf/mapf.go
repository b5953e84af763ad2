// Package mapf implements the multimodal leg planner (C2): a CBS-stub that
// consumes a single precomputed A* path rather than deconflicting multiple
// agents, per the repo's explicit non-goal on global multi-agent planning.
package mapf

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OpenTransitTools/urbanroute/business/data/routing"
	"github.com/OpenTransitTools/urbanroute/business/geoutil"
)

// ErrNoPrecomputedPath is returned when no A* polyline exists yet for the
// (client, destination) pair; the caller should skip rather than synthesize
// one (§4.2's "Failure: if no precomputed A* path exists, skip").
var ErrNoPrecomputedPath = errors.New("mapf: no precomputed A* path for client/destination")

// ErrPlanningTimedOut is returned when the stub's cutoff elapses before a
// result was produced. The stub does no iterative search of its own, so this
// only fires when the A* route lookup PlanLeg depends on returns after
// maxTime has elapsed; kept as a distinct condition so callers can log
// "took too long" separately from "nothing to do".
var ErrPlanningTimedOut = errors.New("mapf: planning exceeded max_time")

// DefaultMaxTime is the CBS-stub wall-clock budget (§6).
const DefaultMaxTime = 10 * time.Second

// PlanLeg loads the latest A* polyline from client to destination and wraps
// it as a multimodal "walk-to-stop" route row keyed by stopID (§4.2). The
// in-vehicle segment is intentionally not represented here; it's the chosen
// departure record, not a geometry.
func PlanLeg(db *sqlx.DB, clientID string, destination routing.LatLon, stopID string, maxTime time.Duration) (routing.MapfRoute, error) {
	if maxTime <= 0 {
		maxTime = DefaultMaxTime
	}

	deadline := time.Now().Add(maxTime)

	astarRoute, err := routing.LatestAstarRoute(db, clientID, destination.Lat, destination.Lon)
	if err != nil {
		return routing.MapfRoute{}, err
	}
	if astarRoute == nil {
		return routing.MapfRoute{}, ErrNoPrecomputedPath
	}
	if time.Now().After(deadline) {
		return routing.MapfRoute{}, ErrPlanningTimedOut
	}

	path := astarRoute.Path()

	row := routing.MapfRoute{
		ClientID:        clientID,
		StopID:          stopID,
		DestinationLat:  destination.Lat,
		DestinationLon:  destination.Lon,
		Distance:        astarRoute.Distance,
		Success:         true,
		DecisionContext: "walk_to_stop",
		CreatedAt:       time.Now().UTC(),
	}

	if err := routing.SaveMapfRoute(db, row, path); err != nil {
		return routing.MapfRoute{}, err
	}
	row.PathWKT = geoutil.WKT(path)
	return row, nil
}
