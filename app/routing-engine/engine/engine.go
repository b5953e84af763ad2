// Package engine wires the planner supervisor (C6) and reroute watcher (C7)
// as sibling goroutines of one process, matching the teacher's
// aggregator.StartPredictionAggregator shutdown-channel pattern.
package engine

import (
	logger "log"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OpenTransitTools/urbanroute/business/astar"
)

// Conf is every configurable parameter of the routing engine, read from
// §6's ROUTING_* environment variables by main.go.
type Conf struct {
	InitialWait         time.Duration
	PlannerSleep        time.Duration
	RerouteTick         time.Duration
	JoinTimeout         time.Duration
	DeviationStreaks    int
	GraphSource         astar.GraphSource
	MaxBackoff          time.Duration
	ModelDir            string
}

// StartRoutingEngine runs the planner supervisor and reroute watcher until
// shutdownSignal fires, then joins both with a bounded wait.
func StartRoutingEngine(log *logger.Logger, db *sqlx.DB, shutdownSignal chan os.Signal, conf Conf) error {
	if conf.PlannerSleep == 0 {
		conf.PlannerSleep = 300 * time.Second
	}
	if conf.InitialWait == 0 {
		conf.InitialWait = 24 * time.Second
	}
	if conf.RerouteTick == 0 {
		conf.RerouteTick = 5 * time.Second
	}
	if conf.JoinTimeout == 0 {
		conf.JoinTimeout = 15 * time.Second
	}
	if conf.DeviationStreaks == 0 {
		conf.DeviationStreaks = 2
	}
	if conf.MaxBackoff == 0 {
		conf.MaxBackoff = 60 * time.Second
	}

	wg := sync.WaitGroup{}
	plannerShutdown := make(chan bool, 1)
	rerouteShutdown := make(chan bool, 1)

	log.Println("engine: starting planner supervisor")
	go runPlannerSupervisor(log, &wg, db, conf, plannerShutdown)

	log.Println("engine: starting reroute watcher")
	go runRerouteWatcher(log, &wg, db, conf, rerouteShutdown)

	<-shutdownSignal
	log.Println("engine: shutdown signal received, stopping subroutines")
	plannerShutdown <- true
	rerouteShutdown <- true

	joined := make(chan struct{})
	go func() {
		wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
		log.Println("engine: subroutines stopped cleanly")
	case <-time.After(conf.JoinTimeout):
		log.Println("engine: join timeout elapsed, exiting anyway")
	}
	return nil
}

// jitterSleep sleeps for base plus a uniform random jitter in [0, maxJitter),
// matching original_source/routing/main.py's startup jitter so replicas
// don't all scan the DB in lockstep.
func jitterSleep(base time.Duration, maxJitter time.Duration) {
	if maxJitter <= 0 {
		time.Sleep(base)
		return
	}
	time.Sleep(base + time.Duration(rand.Int63n(int64(maxJitter))))
}
