package scoring

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"

	"github.com/OpenTransitTools/urbanroute/business/astar"
	"github.com/OpenTransitTools/urbanroute/business/data/geo"
	"github.com/OpenTransitTools/urbanroute/business/data/poi"
	"github.com/OpenTransitTools/urbanroute/business/data/routing"
	"github.com/OpenTransitTools/urbanroute/business/data/transit"
	"github.com/OpenTransitTools/urbanroute/business/mapf"
	"github.com/OpenTransitTools/urbanroute/business/mlmodel"
	"github.com/OpenTransitTools/urbanroute/foundation/logfmt"
)

// MapfPenaltyMeters is the fixed penalty applied to the multimodal distance
// in the heuristic fallback (§4.4).
const MapfPenaltyMeters = 100.0

// FavoredRouteCount is how many of a client's top historical routes count as
// "favored" for the known-line nudge (§4.4 step 4).
const FavoredRouteCount = 5

// EvaluateAndStore is the full C4 orchestration for one client: resolves the
// target (C3), drives C1 and C2 to produce fresh candidates toward it,
// confirms a live departure (C5), then scores (C4) and persists the chosen
// route. It returns nil without writing a chosen route when the client has
// no target or no location; when no A* path is found it persists a Fallback
// row, and when there is no multimodal candidate or no aligned departure it
// persists the Direct row, without scoring.
func EvaluateAndStore(db *sqlx.DB, artifact *mlmodel.Artifact, graphSource astar.GraphSource, log *logfmt.Prefixed, clientID string) error {
	target, err := poi.SelectTargetWithFallback(db, clientID)
	if err != nil {
		return err
	}
	if target == nil {
		log.Println("no combined POI and no nearby stop, skipping")
		return nil
	}

	loc, err := geo.LatestLocation(db, clientID)
	if err != nil {
		return err
	}
	if loc == nil {
		log.Println("no location, skipping")
		return nil
	}
	origin := routing.LatLon{Lat: loc.Lat, Lon: loc.Lon}
	destination := routing.LatLon{Lat: target.Lat, Lon: target.Lon}

	decisionContext := astar.RoutedToPOI
	if target.FromStopFallback {
		decisionContext = astar.FallbackToStop
	}

	astarResult, err := astar.FindAndSave(db, graphSource, clientID, target.TargetType, target.StopID, origin, destination, decisionContext)
	if err != nil && routing.KindOf(err) == routing.KindTransient {
		return err
	}
	if err != nil || !astarResult.Found {
		if err != nil {
			log.Printf("astar failed (%v), choosing fallback", err)
		} else {
			log.Println("no A* path to target, choosing fallback")
		}
		return chooseFallback(db, clientID, origin, destination)
	}

	astarDist := astarResult.DistanceM
	astarPath := astarResult.Path

	mapfRoute, err := planMultimodalLeg(db, clientID, destination)
	if err != nil {
		log.Printf("multimodal leg planning failed (%v), choosing direct", err)
		return chooseDirect(db, clientID, origin, destination, astarPath)
	}
	if mapfRoute == nil {
		log.Println("no multimodal candidate, choosing direct")
		return chooseDirect(db, clientID, origin, destination, astarPath)
	}

	dep, err := transit.BestDeparture(db, clientID, mapfRoute.StopID)
	if err != nil {
		return err
	}
	if dep == nil {
		log.Printf("no aligned departure at stop %s, choosing direct", mapfRoute.StopID)
		return chooseDirect(db, clientID, origin, destination, astarPath)
	}

	mapfDist := mapfRoute.Distance
	mapfPath := mapfRoute.Path()
	delay := dep.Delay()

	chooseMultimodal, scoringErr := scoreCandidates(db, artifact, clientID, astarDist, mapfDist, dep, mapfRoute.StopID)
	if scoringErr != nil {
		log.Printf("scoring failed (%v), falling back to heuristic", scoringErr)
		chooseMultimodal = heuristicChoice(astarDist, mapfDist, delay)
	}

	if chooseMultimodal {
		return chooseMultimodalRoute(db, clientID, origin, destination, mapfRoute.StopID, mapfPath)
	}
	return chooseDirect(db, clientID, origin, destination, astarPath)
}

// planMultimodalLeg resolves C2's boarding stop as the nearest location_type
// 0 GTFS stop to the target destination, then asks business/mapf to wrap the
// A* polyline already saved for (client, destination) as a multimodal leg.
// Returns (nil, nil) when there's no nearby stop or no precomputed A* path
// to wrap yet — both are "no multimodal candidate", not errors.
func planMultimodalLeg(db *sqlx.DB, clientID string, destination routing.LatLon) (*routing.MapfRoute, error) {
	stop, err := transit.NearestStop(db, destination.Lat, destination.Lon)
	if err != nil {
		return nil, err
	}
	if stop == nil {
		return nil, nil
	}

	leg, err := mapf.PlanLeg(db, clientID, destination, stop.StopID, 0)
	if err != nil {
		if errors.Is(err, mapf.ErrNoPrecomputedPath) {
			return nil, nil
		}
		return nil, err
	}
	return &leg, nil
}

// chooseFallback persists the §4.4 pre-condition 2 outcome: no A* route
// could be found to the target at all. A zero-distance, empty-path astar row
// is seeded so future ticks have something to upsert against, and the
// chosen route is marked Fallback with an empty polyline.
func chooseFallback(db *sqlx.DB, clientID string, origin, destination routing.LatLon) error {
	if err := routing.SeedFallbackAstarRoute(db, clientID, origin, destination); err != nil {
		return err
	}
	row := routing.OptimizedRoute{
		ClientID:       clientID,
		StopID:         routing.DirectStopID,
		OriginLat:      origin.Lat,
		OriginLon:      origin.Lon,
		DestinationLat: destination.Lat,
		DestinationLon: destination.Lon,
		SegmentType:    routing.Fallback,
		IsChosen:       true,
		CreatedAt:      time.Now().UTC(),
	}
	return routing.UpsertChosenRoute(db, row, orb.LineString{})
}

func chooseDirect(db *sqlx.DB, clientID string, origin, destination routing.LatLon, path orb.LineString) error {
	row := routing.OptimizedRoute{
		ClientID:       clientID,
		StopID:         routing.DirectStopID,
		OriginLat:      origin.Lat,
		OriginLon:      origin.Lon,
		DestinationLat: destination.Lat,
		DestinationLon: destination.Lon,
		SegmentType:    routing.Direct,
		IsChosen:       true,
		CreatedAt:      time.Now().UTC(),
	}
	return routing.UpsertChosenRoute(db, row, path)
}

func chooseMultimodalRoute(db *sqlx.DB, clientID string, origin, destination routing.LatLon, stopID string, path orb.LineString) error {
	row := routing.OptimizedRoute{
		ClientID:       clientID,
		StopID:         stopID,
		OriginLat:      origin.Lat,
		OriginLon:      origin.Lon,
		DestinationLat: destination.Lat,
		DestinationLon: destination.Lon,
		SegmentType:    routing.Multimodal,
		IsChosen:       true,
		CreatedAt:      time.Now().UTC(),
	}
	return routing.UpsertChosenRoute(db, row, path)
}

// scoreCandidates runs the LSTM-backed scorer and tie-breakers, returning
// whether multimodal was chosen.
func scoreCandidates(db *sqlx.DB, artifact *mlmodel.Artifact, clientID string, astarDist, mapfDist float64, dep *transit.DepartureCandidate, stopID string) (bool, error) {
	speed, err := geo.LatestSpeed(db, clientID)
	if err != nil {
		return false, err
	}
	astarRatio, mapfRatio, err := routing.UsageRatios(db, clientID)
	if err != nil {
		return false, err
	}
	hour := time.Now().UTC().Hour()

	astarFeat := BuildFeatures(astarDist, false, hour, speed, astarRatio, mapfRatio)
	mapfFeat := BuildFeatures(mapfDist, true, hour, speed, astarRatio, mapfRatio)

	scores, err := Predict(artifact, astarFeat, mapfFeat)
	if err != nil {
		return false, err
	}

	favored, err := routing.TopFavoredRoutes(db, clientID, FavoredRouteCount)
	if err != nil {
		return false, err
	}
	routeIsFavored := dep.RouteID != nil && favored[*dep.RouteID]

	blended := Blend(scores, astarRatio, mapfRatio, routeIsFavored)

	avgSwitch, err := routing.SwitchProfileSeconds(db, clientID, stopID)
	if err != nil {
		return false, err
	}

	if TieBreakToMultimodal(blended, dep.Delay(), avgSwitch) {
		return true, nil
	}
	return blended.Argmax(), nil
}

// heuristicChoice implements §4.4's heuristic fallback: pick A* iff
// astar_dist < mapf_dist + 100 + max(0, delay).
func heuristicChoice(astarDist, mapfDist float64, delaySeconds int) bool {
	delay := float64(delaySeconds)
	if delay < 0 {
		delay = 0
	}
	mapfTotal := mapfDist + MapfPenaltyMeters + delay
	return !(astarDist < mapfTotal)
}
