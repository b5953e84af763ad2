package transit

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// NearestStop finds the closest gtfs_stops row of location_type 0 (a
// boardable stop, not a station or entrance) to (lat, lon), by great-circle
// distance. Used by business/data/poi's selector fallback when a client has
// no detected or predicted POI (§4.3).
func NearestStop(db *sqlx.DB, lat, lon float64) (*Stop, error) {
	var s Stop
	err := db.Get(&s, `select stop_id, stop_name, stop_lat, stop_lon, location_type,
			parent_station, platform_code
		from gtfs_stops
		where location_type = 0
		order by ST_Distance(
			geography(ST_MakePoint(stop_lon, stop_lat)),
			geography(ST_MakePoint($2, $1))
		) asc
		limit 1`, lat, lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
