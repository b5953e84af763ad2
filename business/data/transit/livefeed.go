package transit

import (
	"fmt"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// StopDelay is one stop_time_update extracted from a GTFS-RT TripUpdate,
// trimmed to what view_departure_candidates needs to be refreshed (§3, §6).
type StopDelay struct {
	TripID        string
	RouteID       string
	StopID        string
	ArrivalDelay  *int32
	DepartureTime *time.Time
	DelaySeconds  *int32
}

// DecodeTripUpdates unmarshals a raw GTFS-RT FeedMessage and flattens its
// TripUpdate entities into StopDelay rows, one per stop_time_update. Entities
// without a TripUpdate (vehicle positions, alerts) are skipped.
func DecodeTripUpdates(raw []byte) ([]StopDelay, error) {
	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(raw, feed); err != nil {
		return nil, fmt.Errorf("unmarshaling gtfs-rt feed: %w", err)
	}

	var out []StopDelay
	for _, entity := range feed.GetEntity() {
		tu := entity.GetTripUpdate()
		if tu == nil {
			continue
		}
		tripID := tu.GetTrip().GetTripId()
		routeID := tu.GetTrip().GetRouteId()
		for _, stu := range tu.GetStopTimeUpdate() {
			row := StopDelay{
				TripID:  tripID,
				RouteID: routeID,
				StopID:  stu.GetStopId(),
			}
			if arr := stu.GetArrival(); arr != nil {
				d := arr.GetDelay()
				row.ArrivalDelay = &d
				row.DelaySeconds = &d
				if t := arr.GetTime(); t != 0 {
					ts := time.Unix(t, 0)
					row.DepartureTime = &ts
				}
			}
			if dep := stu.GetDeparture(); dep != nil {
				if t := dep.GetTime(); t != 0 {
					ts := time.Unix(t, 0)
					row.DepartureTime = &ts
				}
				if row.DelaySeconds == nil {
					d := dep.GetDelay()
					row.DelaySeconds = &d
				}
			}
			out = append(out, row)
		}
	}
	return out, nil
}

// FeedTimestamp extracts the feed header timestamp without decoding entities,
// used by the live-feed poller to skip reprocessing an unchanged snapshot.
func FeedTimestamp(raw []byte) (time.Time, error) {
	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(raw, feed); err != nil {
		return time.Time{}, fmt.Errorf("unmarshaling gtfs-rt feed: %w", err)
	}
	ts := feed.GetHeader().GetTimestamp()
	if ts == 0 {
		return time.Time{}, fmt.Errorf("feed header missing timestamp")
	}
	return time.Unix(int64(ts), 0), nil
}
