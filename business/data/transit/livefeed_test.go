package transit

import (
	"testing"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/matryer/is"
	"google.golang.org/protobuf/proto"
)

func encodeFeed(t *testing.T, feed *gtfsrt.FeedMessage) []byte {
	t.Helper()
	raw, err := proto.Marshal(feed)
	if err != nil {
		t.Fatalf("marshaling test feed: %v", err)
	}
	return raw
}

func TestDecodeTripUpdates(t *testing.T) {
	is := is.New(t)

	incr := gtfsrt.FeedHeader_FULL_DATASET
	version := "2.0"
	tripID := "trip-1"
	routeID := "route-7"
	stopID := "stop-42"
	delay := int32(90)

	feed := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: &version,
			Incrementality:      &incr,
			Timestamp:           proto.Uint64(1700000000),
		},
		Entity: []*gtfsrt.FeedEntity{
			{
				Id: proto.String("e1"),
				TripUpdate: &gtfsrt.TripUpdate{
					Trip: &gtfsrt.TripDescriptor{
						TripId:  &tripID,
						RouteId: &routeID,
					},
					StopTimeUpdate: []*gtfsrt.TripUpdate_StopTimeUpdate{
						{
							StopId: &stopID,
							Arrival: &gtfsrt.TripUpdate_StopTimeEvent{
								Delay: &delay,
							},
						},
					},
				},
			},
			{
				Id:      proto.String("e2"),
				Vehicle: &gtfsrt.VehiclePosition{},
			},
		},
	}

	rows, err := DecodeTripUpdates(encodeFeed(t, feed))
	is.NoErr(err)
	is.Equal(len(rows), 1)
	is.Equal(rows[0].TripID, tripID)
	is.Equal(rows[0].RouteID, routeID)
	is.Equal(rows[0].StopID, stopID)
	is.True(rows[0].DelaySeconds != nil)
	is.Equal(*rows[0].DelaySeconds, delay)

	ts, err := FeedTimestamp(encodeFeed(t, feed))
	is.NoErr(err)
	is.Equal(ts.Unix(), int64(1700000000))
}

func TestDecodeTripUpdates_skipsNonTripEntities(t *testing.T) {
	is := is.New(t)

	feed := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
		},
		Entity: []*gtfsrt.FeedEntity{
			{Id: proto.String("e1"), Alert: &gtfsrt.Alert{}},
		},
	}

	rows, err := DecodeTripUpdates(encodeFeed(t, feed))
	is.NoErr(err)
	is.Equal(len(rows), 0)
}
