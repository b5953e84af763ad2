package routing

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"

	"github.com/OpenTransitTools/urbanroute/business/geoutil"
)

// PublishRow is one freshest-chosen-route row joined to its client's current
// session, the shape the result publisher (C8) polls for (§4.8).
type PublishRow struct {
	ClientID       string    `db:"client_id"`
	SessionID      string    `db:"session_id"`
	StopID         string    `db:"stop_id"`
	DestinationLat float64   `db:"destination_lat"`
	DestinationLon float64   `db:"destination_lon"`
	PathWKT        string    `db:"path"`
	CreatedAt      time.Time `db:"created_at"`
}

// Path decodes PathWKT into an orb.LineString.
func (r PublishRow) Path() orb.LineString { return geoutil.ParseWKT(r.PathWKT) }

// FreshChosenRoutes returns every chosen or reroute row created since since,
// joined to the owning client's presently open session, ordered oldest
// first so the publisher emits in creation order (§4.8: "union of optimized
// + reroutes, within the last 60s by created_at joined to the client's
// current session window").
func FreshChosenRoutes(db *sqlx.DB, since time.Time) ([]PublishRow, error) {
	var rows []PublishRow
	err := db.Select(&rows, `select u.client_id, s.session_id, u.stop_id,
			u.destination_lat, u.destination_lon, ST_AsText(u.path) as path, u.created_at
		from view_routes_unified u
		join view_current_session_id_from_geodata s on s.client_id = u.client_id
		where u.created_at > $1
		order by u.created_at asc`, since)
	if err != nil {
		return nil, Wrap(KindTransient, "routing.FreshChosenRoutes", err)
	}
	return rows, nil
}
