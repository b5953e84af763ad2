package engine

import (
	"fmt"
	logger "log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"

	"github.com/OpenTransitTools/urbanroute/business/astar"
	"github.com/OpenTransitTools/urbanroute/business/data/geo"
	"github.com/OpenTransitTools/urbanroute/business/data/routing"
	"github.com/OpenTransitTools/urbanroute/business/data/transit"
	"github.com/OpenTransitTools/urbanroute/business/geoutil"
	"github.com/OpenTransitTools/urbanroute/business/mlmodel"
	"github.com/OpenTransitTools/urbanroute/business/scoring"
	"github.com/OpenTransitTools/urbanroute/foundation/logfmt"
)

const (
	directDeviationMeters     = 35.0
	multimodalDeviationMeters = 60.0
	departurePassedWindow     = 45 * time.Second
	delayThresholdSeconds     = 180
)

// runRerouteWatcher is C7: on every REROUTE_TICK, run the deviation and
// GTFS-shift tests for each active client and reroute (call C4 end to end)
// when either fires.
func runRerouteWatcher(log *logger.Logger, wg *sync.WaitGroup, db *sqlx.DB, conf Conf, shutdownSignal chan bool) {
	wg.Add(1)
	defer wg.Done()

	jitterSleep(0, 800*time.Millisecond)

	streaks := make(map[string]int)
	sleepChan := make(chan bool)

	for {
		go func() {
			time.Sleep(conf.RerouteTick)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Println("reroute: exiting on shutdown signal")
			return
		case <-sleepChan:
		}

		clients, err := geo.ActiveClients(db)
		if err != nil {
			log.Printf("reroute: fetching active clients: %v", err)
			continue
		}

		artifact, err := mlmodel.Load(conf.ModelDir)
		if err != nil {
			log.Printf("reroute: model load failed (%v), scoring will fall back to heuristic", err)
		}

		for _, clientID := range clients {
			checkClientForReroute(log, db, artifact, conf, clientID, streaks)
		}
	}
}

// checkClientForReroute runs both tests for one client and triggers a
// reroute if either fires.
func checkClientForReroute(log *logger.Logger, db *sqlx.DB, artifact *mlmodel.Artifact, conf Conf, clientID string, streaks map[string]int) {
	chosen, err := routing.ChosenRoute(db, clientID)
	if err != nil {
		log.Printf("reroute: client %s: fetching chosen route: %v", clientID, err)
		return
	}
	if chosen == nil {
		return
	}

	loc, err := geo.LatestLocation(db, clientID)
	if err != nil {
		log.Printf("reroute: client %s: fetching location: %v", clientID, err)
		return
	}
	if loc == nil {
		return
	}

	reason := deviationReason(*chosen, *loc, conf.DeviationStreaks, streaks, clientID)
	if reason == "" && chosen.SegmentType == routing.Multimodal {
		reason = gtfsShiftReason(db, clientID, *chosen)
	}
	if reason == "" {
		return
	}

	log.Printf("reroute: client %s: reroute triggered (%s)", clientID, reason)
	triggerReroute(log, db, artifact, conf.GraphSource, clientID, *chosen, reason)
}

// deviationReason runs the planar point-to-polyline deviation test and its
// consecutive-streak requirement, returning a reason string or "". A chosen
// route with no usable path (e.g. a fallback row with an empty polyline)
// fires immediately, bypassing the streak requirement entirely, matching the
// original implementation's `_needs_reroute_for_deviation`'s
// `if not choice["path_wkt"]: return True, "no_path_in_choice"` short-circuit.
func deviationReason(chosen routing.OptimizedRoute, loc geo.Point, required int, streaks map[string]int, clientID string) string {
	path := chosen.Path()
	if len(path) < 2 {
		return "no_path_in_choice"
	}

	threshold := directDeviationMeters
	if chosen.SegmentType == routing.Multimodal {
		threshold = multimodalDeviationMeters
	}

	dist := geoutil.DistancePointToLineString(orb.Point{loc.Lon, loc.Lat}, path)
	if dist <= threshold {
		streaks[clientID] = 0
		return ""
	}

	streaks[clientID]++
	if streaks[clientID] < required {
		return ""
	}
	streaks[clientID] = 0
	return fmt.Sprintf("off_path_%dm", int(dist))
}

// gtfsShiftReason runs the GTFS-shift test for a multimodal chosen route.
func gtfsShiftReason(db *sqlx.DB, clientID string, chosen routing.OptimizedRoute) string {
	if chosen.StopID == "" {
		return "missing_stop_id"
	}

	has, err := transit.HasDepartureCandidate(db, clientID, chosen.StopID)
	if err != nil || !has {
		return "no_departure_candidate"
	}

	dep, err := transit.BestDeparture(db, clientID, chosen.StopID)
	if err != nil || dep == nil {
		return "no_departure_candidate"
	}

	if time.Since(dep.DepartureTime) > departurePassedWindow {
		return "departure_passed"
	}
	if dep.Delay() > delayThresholdSeconds {
		return fmt.Sprintf("delay_%ds", dep.Delay())
	}
	return ""
}

// triggerReroute calls C4 end to end, then compares before/after and writes
// a reroute event row if anything changed (§4.7, §8 invariant 3).
func triggerReroute(log *logger.Logger, db *sqlx.DB, artifact *mlmodel.Artifact, graphSource astar.GraphSource, clientID string, before routing.OptimizedRoute, reason string) {
	clog := logfmt.For(log, "client:"+clientID)
	if err := scoring.EvaluateAndStore(db, artifact, graphSource, clog, clientID); err != nil {
		log.Printf("reroute: client %s: recompute failed: %v", clientID, err)
		return
	}

	after, err := routing.ChosenRoute(db, clientID)
	if err != nil || after == nil {
		log.Printf("reroute: client %s: fetching recomputed route: %v", clientID, err)
		return
	}

	if !routing.ChangedFromPrevious(&before, *after) {
		return
	}

	previousStopID := before.StopID
	previousSegmentType := string(before.SegmentType)
	event := routing.RerouteEvent{
		ClientID:            clientID,
		StopID:              after.StopID,
		OriginLat:           after.OriginLat,
		OriginLon:           after.OriginLon,
		DestinationLat:      after.DestinationLat,
		DestinationLon:      after.DestinationLon,
		SegmentType:         after.SegmentType,
		Reason:              reason,
		PreviousStopID:      &previousStopID,
		PreviousSegmentType: &previousSegmentType,
		CreatedAt:           time.Now().UTC(),
	}
	if err := routing.SaveRerouteEvent(db, event, after.Path()); err != nil {
		log.Printf("reroute: client %s: saving reroute event: %v", clientID, err)
		return
	}

	logRecentRerouteCount(log, db, clientID, event.CreatedAt)
}

// recentRerouteWindow bounds how far back logRecentRerouteCount looks when
// reporting how often a client has been rerouted lately.
const recentRerouteWindow = 10 * time.Minute

// logRecentRerouteCount reports how many times clientID has rerouted in the
// last recentRerouteWindow when that count is more than one, so repeated
// thrashing is visible in the logs. A
// lookup failure is logged and otherwise ignored; it never affects the
// reroute that already happened.
func logRecentRerouteCount(log *logger.Logger, db *sqlx.DB, clientID string, asOf time.Time) {
	events, err := routing.RerouteEventsBetween(db, clientID, asOf.Add(-recentRerouteWindow), asOf)
	if err != nil {
		log.Printf("reroute: client %s: fetching recent reroute history: %v", clientID, err)
		return
	}
	if len(events) > 1 {
		log.Printf("reroute: client %s: %d reroutes in the last %s", clientID, len(events), recentRerouteWindow)
	}
}
