// Package transit provides read access to the static and live-transit
// entities of §3/§6 (gtfs_* tables, derived departure-candidate view) and the
// live-departure oracle (C5).
package transit

// Stop mirrors a row of gtfs_stops: static stop definitions refreshed daily
// by the static-GTFS collaborator.
type Stop struct {
	StopID        string  `db:"stop_id"`
	Name          string  `db:"stop_name"`
	Lat           float64 `db:"stop_lat"`
	Lon           float64 `db:"stop_lon"`
	LocationType  int     `db:"location_type"`
	ParentStation *string `db:"parent_station"`
	PlatformCode  *string `db:"platform_code"`
}

// Route mirrors gtfs_routes.
type Route struct {
	RouteID        string  `db:"route_id"`
	ShortName      string  `db:"route_short_name"`
	LongName       string  `db:"route_long_name"`
	Type           int     `db:"route_type"`
}

// Trip mirrors gtfs_trips.
type Trip struct {
	TripID       string  `db:"trip_id"`
	RouteID      string  `db:"route_id"`
	ServiceID    string  `db:"service_id"`
	TripHeadsign *string `db:"trip_headsign"`
	DirectionID  *int    `db:"direction_id"`
}

// StopTime mirrors gtfs_stop_times.
type StopTime struct {
	TripID        string `db:"trip_id"`
	StopID        string `db:"stop_id"`
	StopSequence  int    `db:"stop_sequence"`
	ArrivalTime   int    `db:"arrival_time"`
	DepartureTime int    `db:"departure_time"`
}
