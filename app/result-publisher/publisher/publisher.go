// Package publisher is C8: it polls for freshly chosen routes and publishes
// them over MQTT with a per-session dedup window, following the same
// sleep-channel/shutdown-signal loop shape as app/routing-engine/engine and
// the teacher's gtfs-monitor.RunVehicleMonitorLoop.
package publisher

import (
	"encoding/json"
	logger "log"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/OpenTransitTools/urbanroute/business/data/routing"
	"github.com/OpenTransitTools/urbanroute/business/geoutil"
	"github.com/OpenTransitTools/urbanroute/foundation/mqttclient"
)

// Conf is every configurable parameter of the result publisher, filled by
// main.go from its PUBLISHER-prefixed configuration.
type Conf struct {
	PollInterval   time.Duration
	LookbackWindow time.Duration
	DedupWindow    time.Duration
	ResultsTopic   string
}

// Message is the JSON payload published for one chosen route, per §4.8.
type Message struct {
	ClientID    string      `json:"client_id"`
	SessionID   string      `json:"session_id"`
	StopID      string      `json:"stop_id"`
	Destination destination `json:"destination"`
	RoutePath   string      `json:"route_path"`
	Timestamp   time.Time   `json:"timestamp"`
}

type destination struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Run polls the database every conf.PollInterval, publishing every chosen
// route row not already seen within the dedup window, until shutdownSignal
// fires.
func Run(log *logger.Logger, wg *sync.WaitGroup, db *sqlx.DB, mq *mqttclient.Client, conf Conf, shutdownSignal chan bool) {
	wg.Add(1)
	defer wg.Done()

	if conf.PollInterval == 0 {
		conf.PollInterval = 5 * time.Second
	}
	if conf.LookbackWindow == 0 {
		conf.LookbackWindow = 60 * time.Second
	}
	if conf.DedupWindow == 0 {
		conf.DedupWindow = 10 * time.Minute
	}

	seen := newDedupSet(conf.DedupWindow)
	sleepChan := make(chan bool)

	for {
		go func() {
			time.Sleep(conf.PollInterval)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Println("publisher: exiting on shutdown signal")
			return
		case <-sleepChan:
		}

		seen.evictExpired()

		if err := publishTick(log, db, mq, conf, seen); err != nil {
			log.Printf("publisher: tick failed: %v", err)
		}
	}
}

// publishTick fetches the freshest chosen routes and publishes any not
// already seen. A publish failure is logged and never kills the loop, per
// §7's publishing-errors taxonomy.
func publishTick(log *logger.Logger, db *sqlx.DB, mq *mqttclient.Client, conf Conf, seen *dedupSet) error {
	since := time.Now().Add(-conf.LookbackWindow)
	rows, err := routing.FreshChosenRoutes(db, since)
	if err != nil {
		return err
	}

	for _, row := range rows {
		key := dedupKey{clientID: row.ClientID, sessionID: row.SessionID, createdAt: row.CreatedAt}
		if seen.contains(key) {
			continue
		}

		msg := toMessage(row)
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Printf("publisher: client %s: marshaling message: %v", row.ClientID, err)
			continue
		}

		topic := mqttclient.Topic(conf.ResultsTopic, row.ClientID, row.SessionID)
		if err := mq.PublishRetained(topic, payload); err != nil {
			log.Printf("publisher: client %s: publish failed: %v", row.ClientID, err)
			continue
		}

		seen.add(key)
	}
	return nil
}

func toMessage(row routing.PublishRow) Message {
	return Message{
		ClientID:    row.ClientID,
		SessionID:   row.SessionID,
		StopID:      row.StopID,
		Destination: destination{Lat: row.DestinationLat, Lon: row.DestinationLon},
		RoutePath:   geoutil.WKT(row.Path()),
		Timestamp:   row.CreatedAt,
	}
}
