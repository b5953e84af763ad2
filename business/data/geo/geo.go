// Package geo provides read-only access to client geodata and trajectories.
// Both tables are owned by the ingestion and migration collaborators (§3);
// this package never writes to them.
package geo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Point is a single appended geodata sample for a client's session.
type Point struct {
	ClientID  string    `db:"client_id"`
	SessionID string    `db:"session_id"`
	Lat       float64   `db:"lat"`
	Lon       float64   `db:"lon"`
	Elevation *float64  `db:"elevation"`
	Speed     *float64  `db:"speed"`
	Activity  *string   `db:"activity"`
	Timestamp time.Time `db:"timestamp"`
}

// Session is a client's half-open active interval [Start, End).
type Session struct {
	ClientID string     `db:"client_id"`
	ID       string     `db:"session_id"`
	Start    time.Time  `db:"start_time"`
	End      *time.Time `db:"end_time"`
}

// ActiveClients returns every client with a currently open session, backed by
// view_active_clients_geodata.
func ActiveClients(db *sqlx.DB) ([]string, error) {
	var clients []string
	err := db.Select(&clients, "select distinct client_id from view_active_clients_geodata")
	if err != nil {
		return nil, fmt.Errorf("fetching active clients: %w", err)
	}
	return clients, nil
}

// LatestLocation returns the most recent geodata point for client, or nil if
// it has none.
func LatestLocation(db *sqlx.DB, clientID string) (*Point, error) {
	var p Point
	err := db.Get(&p, `select client_id, session_id, lat, lon, elevation, speed, activity, timestamp
		from geodata where client_id = $1 order by timestamp desc limit 1`, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching latest location for %s: %w", clientID, err)
	}
	return &p, nil
}

// LatestSpeed returns the client's most recently observed speed in m/s, or 0
// if unavailable.
func LatestSpeed(db *sqlx.DB, clientID string) (float64, error) {
	p, err := LatestLocation(db, clientID)
	if err != nil {
		return 0, err
	}
	if p == nil || p.Speed == nil {
		return 0, nil
	}
	return *p.Speed, nil
}

// CurrentSessionID returns the client's presently open session id, backed by
// view_current_session_id_from_geodata.
func CurrentSessionID(db *sqlx.DB, clientID string) (string, error) {
	var sessionID string
	err := db.Get(&sessionID,
		"select session_id from view_current_session_id_from_geodata where client_id = $1", clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetching current session for %s: %w", clientID, err)
	}
	return sessionID, nil
}
