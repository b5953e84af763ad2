package routing

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// UsageRatios returns a client's historical (astarRatio, mapfRatio) share of
// chosen segment types, used as the p_hist term in §4.4 step 2. Degenerate
// (both zero) when the client has no history; callers fall back to uniform.
func UsageRatios(db *sqlx.DB, clientID string) (astarRatio float64, mapfRatio float64, err error) {
	var counts struct {
		Astar int `db:"astar_count"`
		Mapf  int `db:"mapf_count"`
	}
	getErr := db.Get(&counts, `select
			count(*) filter (where segment_type = 'direct') as astar_count,
			count(*) filter (where segment_type = 'multimodal') as mapf_count
		from view_routes_unified where client_id = $1`, clientID)
	if getErr != nil {
		return 0, 0, Wrap(KindTransient, "routing.UsageRatios", getErr)
	}
	total := counts.Astar + counts.Mapf
	if total == 0 {
		return 0, 0, nil
	}
	return float64(counts.Astar) / float64(total), float64(counts.Mapf) / float64(total), nil
}

// TopFavoredRoutes returns the set of a client's k most frequently used
// route_ids, backing the §4.4 step 4 "known line" nudge.
func TopFavoredRoutes(db *sqlx.DB, clientID string, k int) (map[string]bool, error) {
	var routeIDs []string
	err := db.Select(&routeIDs, `select route_id
		from view_departure_candidates
		where client_id = $1 and route_id is not null
		group by route_id
		order by count(*) desc
		limit $2`, clientID, k)
	if err != nil {
		return nil, Wrap(KindTransient, "routing.TopFavoredRoutes", err)
	}
	set := make(map[string]bool, len(routeIDs))
	for _, id := range routeIDs {
		set[id] = true
	}
	return set, nil
}

// SwitchProfileSeconds returns the client's average observed seconds to
// switch onto a vehicle at stopID, or nil if no profile has been recorded
// yet. Backs the §4.4 step 5 tie-breaker.
func SwitchProfileSeconds(db *sqlx.DB, clientID string, stopID string) (*int, error) {
	var seconds int
	err := db.Get(&seconds, `select avg_switch_seconds
		from client_switch_profiles where client_id = $1 and stop_id = $2 limit 1`,
		clientID, stopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Wrap(KindTransient, "routing.SwitchProfileSeconds", err)
	}
	return &seconds, nil
}
