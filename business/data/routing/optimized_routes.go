package routing

import (
	"database/sql"
	"errors"
	"time"

	"github.com/OpenTransitTools/urbanroute/business/geoutil"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
)

// ChosenRoute returns the currently chosen route for client, if any, reading
// the row with the greatest created_at as §5's ordering guarantee requires.
func ChosenRoute(db *sqlx.DB, clientID string) (*OptimizedRoute, error) {
	var r OptimizedRoute
	err := db.Get(&r, `select client_id, stop_id, origin_lat, origin_lon,
			destination_lat, destination_lon, ST_AsText(path) as path, segment_type,
			is_chosen, created_at
		from optimized_routes
		where client_id = $1 and is_chosen = true
		order by created_at desc limit 1`, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(KindTransient, "routing.ChosenRoute", err)
	}
	return &r, nil
}

// UpsertChosenRoute writes r as the chosen route for (client, stop_id,
// segment_type), replacing any existing row for that key (§3 invariant 1,
// §8 invariant 2). The stop_id for Direct/Fallback rows must be
// DirectStopID per §3 invariant 2; callers are expected to have set it.
func UpsertChosenRoute(db *sqlx.DB, r OptimizedRoute, path orb.LineString) error {
	if r.SegmentType != Fallback {
		if err := geoutil.Validate(path); err != nil {
			return Wrap(KindMalformed, "routing.UpsertChosenRoute", err)
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := db.NamedExec(`insert into optimized_routes
		(client_id, stop_id, origin_lat, origin_lon, destination_lat, destination_lon,
		 path, segment_type, is_chosen, created_at)
		values
		(:client_id, :stop_id, :origin_lat, :origin_lon, :destination_lat, :destination_lon,
		 ST_GeomFromText(:path_wkt, 4326), :segment_type, true, :created_at)
		on conflict (client_id, stop_id, segment_type) do update set
			origin_lat = excluded.origin_lat,
			origin_lon = excluded.origin_lon,
			destination_lat = excluded.destination_lat,
			destination_lon = excluded.destination_lon,
			path = excluded.path,
			is_chosen = true,
			created_at = excluded.created_at`,
		map[string]interface{}{
			"client_id":       r.ClientID,
			"stop_id":         r.StopID,
			"origin_lat":      r.OriginLat,
			"origin_lon":      r.OriginLon,
			"destination_lat": r.DestinationLat,
			"destination_lon": r.DestinationLon,
			"path_wkt":        geoutil.WKT(path),
			"segment_type":    r.SegmentType,
			"created_at":      r.CreatedAt,
		})
	if err != nil {
		return Wrap(KindTransient, "routing.UpsertChosenRoute", err)
	}
	return nil
}
