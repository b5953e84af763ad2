package routing

import (
	"database/sql"
	"errors"

	"github.com/OpenTransitTools/urbanroute/business/geoutil"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
)

// LatestSuccessfulMapfRoute returns the freshest successful multimodal leg
// for client to (lat, lon), or nil if none exists.
func LatestSuccessfulMapfRoute(db *sqlx.DB, clientID string, lat, lon float64) (*MapfRoute, error) {
	var r MapfRoute
	err := db.Get(&r, `select client_id, stop_id, destination_lat, destination_lon,
			ST_AsText(path) as path, distance, success, decision_context, created_at
		from mapf_routes
		where client_id = $1 and destination_lat = $2 and destination_lon = $3 and success = true
		order by created_at desc limit 1`, clientID, lat, lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(KindTransient, "routing.LatestSuccessfulMapfRoute", err)
	}
	return &r, nil
}

// SaveMapfRoute persists a multimodal leg produced by business/mapf (C2).
func SaveMapfRoute(db *sqlx.DB, r MapfRoute, path orb.LineString) error {
	_, err := db.NamedExec(`insert into mapf_routes
		(client_id, stop_id, destination_lat, destination_lon, path, distance, success,
		 decision_context, created_at)
		values
		(:client_id, :stop_id, :destination_lat, :destination_lon,
		 ST_GeomFromText(:path_wkt, 4326), :distance, :success, :decision_context, :created_at)`,
		map[string]interface{}{
			"client_id":        r.ClientID,
			"stop_id":          r.StopID,
			"destination_lat":  r.DestinationLat,
			"destination_lon":  r.DestinationLon,
			"path_wkt":         geoutil.WKT(path),
			"distance":         r.Distance,
			"success":          r.Success,
			"decision_context": r.DecisionContext,
			"created_at":       r.CreatedAt,
		})
	if err != nil {
		return Wrap(KindTransient, "routing.SaveMapfRoute", err)
	}
	return nil
}
