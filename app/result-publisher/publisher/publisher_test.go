package publisher

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/OpenTransitTools/urbanroute/business/data/routing"
)

func TestToMessage_decodesPath(t *testing.T) {
	is := is.New(t)
	row := routing.PublishRow{
		ClientID:       "client-1",
		SessionID:      "session-1",
		StopID:         "stop-1",
		DestinationLat: 45.52,
		DestinationLon: -122.68,
		PathWKT:        "LINESTRING(-122.6800 45.5200, -122.6700 45.5250)",
		CreatedAt:      time.Unix(1700000000, 0),
	}

	msg := toMessage(row)
	is.Equal(msg.ClientID, "client-1")
	is.Equal(msg.SessionID, "session-1")
	is.Equal(msg.Destination.Lat, 45.52)
	is.Equal(msg.Destination.Lon, -122.68)
	is.Equal(msg.RoutePath, "LINESTRING(-122.68000000 45.52000000, -122.67000000 45.52500000)")
}

func TestToMessage_emptyPath(t *testing.T) {
	is := is.New(t)
	row := routing.PublishRow{ClientID: "client-1", SessionID: "session-1", PathWKT: "LINESTRING EMPTY"}
	msg := toMessage(row)
	is.Equal(msg.RoutePath, "LINESTRING EMPTY")
}
