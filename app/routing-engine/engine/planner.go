package engine

import (
	"fmt"
	logger "log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OpenTransitTools/urbanroute/business/astar"
	"github.com/OpenTransitTools/urbanroute/business/data/geo"
	"github.com/OpenTransitTools/urbanroute/business/mlmodel"
	"github.com/OpenTransitTools/urbanroute/business/scoring"
	"github.com/OpenTransitTools/urbanroute/foundation/logfmt"
)

// fmtPanic turns a recovered panic value into an error so planOneClient can
// report it the same way as any other worker failure.
func fmtPanic(r interface{}) error {
	return fmt.Errorf("recovered panic: %v", r)
}

// runPlannerSupervisor is C6: sleep INITIAL_WAIT, then on every PLANNER_SLEEP
// tick fetch active clients and run C3->C4 for each with a bounded worker,
// isolating per-client failures and backing off exponentially on tick
// failure.
func runPlannerSupervisor(log *logger.Logger, wg *sync.WaitGroup, db *sqlx.DB, conf Conf, shutdownSignal chan bool) {
	wg.Add(1)
	defer wg.Done()

	jitterSleep(conf.InitialWait, 1500*time.Millisecond)

	backoff := time.Duration(0)
	sleepChan := make(chan bool)
	sleep := conf.PlannerSleep

	for {
		go func(d time.Duration) {
			time.Sleep(d)
			sleepChan <- true
		}(sleep)

		select {
		case <-shutdownSignal:
			log.Println("planner: exiting on shutdown signal")
			return
		case <-sleepChan:
		}

		start := time.Now()
		if err := runPlannerTick(log, db, conf); err != nil {
			log.Printf("planner: tick failed: %v", err)
			backoff = nextBackoff(backoff, conf.MaxBackoff)
			sleep = backoff
			continue
		}
		backoff = 0

		elapsed := time.Since(start)
		if elapsed >= conf.PlannerSleep {
			sleep = 0
		} else {
			sleep = conf.PlannerSleep - elapsed
		}
	}
}

// nextBackoff doubles the previous backoff (starting from 1s), capped at max.
func nextBackoff(prev time.Duration, max time.Duration) time.Duration {
	next := prev * 2
	if next <= 0 {
		next = time.Second
	}
	if next > max {
		next = max
	}
	return next
}

// runPlannerTick fetches the active-client set and spawns one bounded worker
// per client. A per-tick error here (e.g. the active-client query itself
// failing) drives the supervisor's backoff; individual worker failures do
// not.
func runPlannerTick(log *logger.Logger, db *sqlx.DB, conf Conf) error {
	clients, err := geo.ActiveClients(db)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		log.Println("planner: no active clients this tick")
		return nil
	}

	artifact, err := mlmodel.Load(conf.ModelDir)
	if err != nil {
		log.Printf("planner: model load failed (%v), scoring will fall back to heuristic this tick", err)
	}

	var tickWG sync.WaitGroup
	for _, clientID := range clients {
		tickWG.Add(1)
		go planOneClient(log, db, artifact, conf.GraphSource, conf.JoinTimeout, clientID, &tickWG)
	}
	tickWG.Wait()
	return nil
}

// planOneClient runs C3->C4 for one client with a bounded join timeout and a
// recover so a panic in scoring never takes down the supervisor.
func planOneClient(log *logger.Logger, db *sqlx.DB, artifact *mlmodel.Artifact, graphSource astar.GraphSource, joinTimeout time.Duration, clientID string, wg *sync.WaitGroup) {
	defer wg.Done()

	clog := logfmt.For(log, "client:"+clientID)
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmtPanic(r)
			}
		}()
		done <- scoring.EvaluateAndStore(db, artifact, graphSource, clog, clientID)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("planner: client %s: %v", clientID, err)
		}
	case <-time.After(joinTimeout):
		log.Printf("planner: client %s: exceeded join timeout %s, abandoning this tick's worker", clientID, joinTimeout)
	}
}
