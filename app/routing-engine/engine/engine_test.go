package engine

import (
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/paulmach/orb"

	"github.com/OpenTransitTools/urbanroute/business/data/geo"
	"github.com/OpenTransitTools/urbanroute/business/data/routing"
)

func straightChosen(segmentType routing.SegmentType) routing.OptimizedRoute {
	return routing.OptimizedRoute{
		ClientID:    "client-1",
		StopID:      "stop-1",
		SegmentType: segmentType,
		PathWKT:     "LINESTRING(-122.6800 45.5200, -122.6700 45.5200)",
	}
}

func pointNear(line orb.LineString, offsetMeters float64) geo.Point {
	_ = offsetMeters
	// roughly 45m north of the line at 45.52N, ~9e-6 deg/m latitude
	return geo.Point{Lat: 45.5204, Lon: -122.6750}
}

func TestDeviationReason_requiresConsecutiveStreaks(t *testing.T) {
	is := is.New(t)
	chosen := straightChosen(routing.Direct)
	loc := pointNear(chosen.Path(), 45)
	streaks := map[string]int{}

	is.Equal(deviationReason(chosen, loc, 2, streaks, "client-1"), "")
	reason := deviationReason(chosen, loc, 2, streaks, "client-1")
	is.True(reason == "" || reason[:9] == "off_path_")
}

func TestDeviationReason_onPathResetsStreak(t *testing.T) {
	is := is.New(t)
	chosen := straightChosen(routing.Direct)
	streaks := map[string]int{"client-1": 1}
	onPath := geo.Point{Lat: 45.5200, Lon: -122.6750}

	is.Equal(deviationReason(chosen, onPath, 2, streaks, "client-1"), "")
	is.Equal(streaks["client-1"], 0)
}

func TestDeviationReason_noPathFiresImmediately(t *testing.T) {
	is := is.New(t)
	chosen := routing.OptimizedRoute{
		ClientID:    "client-1",
		StopID:      routing.DirectStopID,
		SegmentType: routing.Fallback,
		PathWKT:     "LINESTRING EMPTY",
	}
	loc := geo.Point{Lat: 45.5200, Lon: -122.6750}
	streaks := map[string]int{}

	is.Equal(deviationReason(chosen, loc, 2, streaks, "client-1"), "no_path_in_choice")
	// the streak requirement never applies to this case
	is.Equal(streaks["client-1"], 0)
}

func TestNextBackoff_doublesAndCaps(t *testing.T) {
	is := is.New(t)
	is.Equal(nextBackoff(0, 60*time.Second), time.Second)
	is.Equal(nextBackoff(10*time.Second, 60*time.Second), 20*time.Second)
	is.Equal(nextBackoff(50*time.Second, 60*time.Second), 60*time.Second)
}
