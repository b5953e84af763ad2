package routing

import (
	"fmt"
	"time"

	"github.com/OpenTransitTools/urbanroute/business/geoutil"
	"github.com/OpenTransitTools/urbanroute/foundation/database"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
)

// SaveRerouteEvent records that the chosen route changed and why, per §4.7.
func SaveRerouteEvent(db *sqlx.DB, e RerouteEvent, path orb.LineString) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := db.NamedExec(`insert into reroutes
		(client_id, stop_id, origin_lat, origin_lon, destination_lat, destination_lon,
		 path, segment_type, reason, previous_stop_id, previous_segment_type, created_at)
		values
		(:client_id, :stop_id, :origin_lat, :origin_lon, :destination_lat, :destination_lon,
		 ST_GeomFromText(:path_wkt, 4326), :segment_type, :reason,
		 :previous_stop_id, :previous_segment_type, :created_at)`,
		map[string]interface{}{
			"client_id":              e.ClientID,
			"stop_id":                e.StopID,
			"origin_lat":             e.OriginLat,
			"origin_lon":             e.OriginLon,
			"destination_lat":        e.DestinationLat,
			"destination_lon":        e.DestinationLon,
			"path_wkt":               geoutil.WKT(path),
			"segment_type":           e.SegmentType,
			"reason":                 e.Reason,
			"previous_stop_id":       e.PreviousStopID,
			"previous_segment_type":  e.PreviousSegmentType,
			"created_at":             e.CreatedAt,
		})
	if err != nil {
		return Wrap(KindTransient, "routing.SaveRerouteEvent", err)
	}
	return nil
}

// RerouteEventsBetween returns clientID's reroute events between start and
// end, newest first. Used by the reroute watcher to log how often a client
// has been rerouted recently; the ad hoc start/end/client_id filter is built
// with database.PrepareNamedQueryRowsFromMap the same way the teacher's
// GetTripDeviations builds its vehicle/time-range query.
func RerouteEventsBetween(db *sqlx.DB, clientID string, start, end time.Time) ([]RerouteEvent, error) {
	statementString := `select client_id, stop_id, origin_lat, origin_lon,
			destination_lat, destination_lon, ST_AsText(path) as path, segment_type,
			reason, previous_stop_id, previous_segment_type, created_at
		from reroutes
		where client_id = :client_id and created_at between :start and :end
		order by created_at desc`
	rows, err := database.PrepareNamedQueryRowsFromMap(statementString, db, map[string]interface{}{
		"client_id": clientID,
		"start":     start,
		"end":       end,
	})
	if err != nil {
		return nil, Wrap(KindTransient, "routing.RerouteEventsBetween", err)
	}
	defer func() { _ = rows.Close() }()

	events := make([]RerouteEvent, 0)
	for rows.Next() {
		var e RerouteEvent
		if err := rows.StructScan(&e); err != nil {
			return nil, Wrap(KindTransient, "routing.RerouteEventsBetween", fmt.Errorf("scanning reroute event: %w", err))
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Wrap(KindTransient, "routing.RerouteEventsBetween", err)
	}
	return events, nil
}

// ChangedFromPrevious reports whether after differs from before in
// segment_type, stop_id, or path — the condition §8 invariant 3 requires for
// writing a reroute event.
func ChangedFromPrevious(before *OptimizedRoute, after OptimizedRoute) bool {
	if before == nil {
		return true
	}
	return before.SegmentType != after.SegmentType ||
		before.StopID != after.StopID ||
		before.PathWKT != after.PathWKT
}
