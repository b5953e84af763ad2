package transit

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// DepartureCandidate binds a client's A* ETA at a stop to the earliest
// scheduled-plus-realtime departure that aligns with it (§3). The alignment
// window itself is computed by the view this reads, owned by the live-feed
// collaborator; C5 only orders and limits per §4.5.
type DepartureCandidate struct {
	TripID        string    `db:"trip_id"`
	RouteID       *string   `db:"route_id"`
	DepartureTime time.Time `db:"departure_time"`
	ArrivalTime   time.Time `db:"arrival_time"`
	DelaySeconds  *int      `db:"delay_seconds"`
	Status        *string   `db:"status"`
	TripHeadsign  *string   `db:"trip_headsign"`
}

// Delay returns DelaySeconds, treating a null delay as 0 (the oracle's own
// ordering already does this via coalesce; callers get the same default).
func (d DepartureCandidate) Delay() int {
	if d.DelaySeconds == nil {
		return 0
	}
	return *d.DelaySeconds
}

// BestDeparture returns the earliest viable departure for (clientID,
// stopID): ordered by coalesce(delay_seconds, 0) ascending, then
// departure_time ascending, limit 1 (§4.5). A nil result means "no aligned
// departure".
func BestDeparture(db *sqlx.DB, clientID string, stopID string) (*DepartureCandidate, error) {
	var d DepartureCandidate
	err := db.Get(&d, `select trip_id, route_id, departure_time, arrival_time,
			delay_seconds, status, trip_headsign
		from view_departure_candidates
		where client_id = $1 and stop_id = $2
		order by coalesce(delay_seconds, 0) asc, departure_time asc
		limit 1`, clientID, stopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// HasDepartureCandidate is a cheap existence check used by the reroute
// watcher's GTFS-shift test (§4.7) before pulling the full row.
func HasDepartureCandidate(db *sqlx.DB, clientID string, stopID string) (bool, error) {
	var exists bool
	err := db.Get(&exists, `select exists(
			select 1 from view_departure_candidates where client_id = $1 and stop_id = $2
		)`, clientID, stopID)
	if err != nil {
		return false, err
	}
	return exists, nil
}
