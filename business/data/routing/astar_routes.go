package routing

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/OpenTransitTools/urbanroute/business/geoutil"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
)

// LatestAstarRoute returns the most recently created A* route from client to
// (lat, lon), regardless of whether the target was a detected/predicted POI
// or the §4.3 nearest-stop fallback — both share this table, keyed by
// destination coordinates, since a single (client, destination) pair never
// carries two different target_type values at once.
func LatestAstarRoute(db *sqlx.DB, clientID string, lat, lon float64) (*AstarRoute, error) {
	var r AstarRoute
	err := db.Get(&r, `select client_id, stop_id, target_type, origin_lat, origin_lon,
			destination_lat, destination_lon, ST_AsText(path) as path, distance,
			efficiency_score, decision_context, predicted_eta, created_at
		from astar_routes
		where client_id = $1 and destination_lat = $2 and destination_lon = $3
		order by created_at desc limit 1`, clientID, lat, lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(KindTransient, "routing.LatestAstarRoute", err)
	}
	return &r, nil
}

// SaveAstarRoute persists a newly computed A* route. path may be empty, in
// which case it is stored as an empty LineString per §3 invariant 3.
func SaveAstarRoute(db *sqlx.DB, r AstarRoute, path orb.LineString) error {
	if err := geoutil.Validate(path); err != nil {
		return Wrap(KindMalformed, "routing.SaveAstarRoute", err)
	}
	_, err := db.NamedExec(`insert into astar_routes
		(client_id, stop_id, target_type, origin_lat, origin_lon,
		 destination_lat, destination_lon, path, distance, efficiency_score,
		 decision_context, predicted_eta, created_at)
		values
		(:client_id, :stop_id, :target_type, :origin_lat, :origin_lon,
		 :destination_lat, :destination_lon, ST_GeomFromText(:path_wkt, 4326), :distance,
		 :efficiency_score, :decision_context, :predicted_eta, :created_at)`,
		astarInsertArgs(r, path))
	if err != nil {
		return Wrap(KindTransient, "routing.SaveAstarRoute", err)
	}
	return nil
}

// astarInsertArgs adapts an AstarRoute plus decoded path into the named-exec
// argument map, since the stored column is geometry text, not the struct's
// `path` tag value.
func astarInsertArgs(r AstarRoute, path orb.LineString) map[string]interface{} {
	return map[string]interface{}{
		"client_id":        r.ClientID,
		"stop_id":          r.StopID,
		"target_type":      r.TargetType,
		"origin_lat":       r.OriginLat,
		"origin_lon":       r.OriginLon,
		"destination_lat":  r.DestinationLat,
		"destination_lon":  r.DestinationLon,
		"path_wkt":         geoutil.WKT(path),
		"distance":         r.Distance,
		"efficiency_score": r.EfficiencyScore,
		"decision_context": r.DecisionContext,
		"predicted_eta":    r.PredictedETA,
		"created_at":       r.CreatedAt,
	}
}

// SeedFallbackAstarRoute inserts a zero-distance A* route marking that no
// real path could be found, so downstream components have something to
// upsert against (§4.4 pre-condition 2).
func SeedFallbackAstarRoute(db *sqlx.DB, clientID string, origin, destination LatLon) error {
	now := time.Now().UTC()
	_, err := db.Exec(`insert into astar_routes
		(client_id, target_type, origin_lat, origin_lon,
		 destination_lat, destination_lon, path, distance,
		 efficiency_score, decision_context, created_at)
		values ($1, 'poi', $2, $3, $4, $5, null, 0, 0, 'fallback_astar', $6)
		on conflict do nothing`,
		clientID, origin.Lat, origin.Lon, destination.Lat, destination.Lon, now)
	if err != nil {
		return Wrap(KindTransient, "routing.SeedFallbackAstarRoute", fmt.Errorf("seeding fallback astar row: %w", err))
	}
	return nil
}
