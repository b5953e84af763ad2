package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"

	"github.com/OpenTransitTools/urbanroute/app/result-publisher/publisher"
	"github.com/OpenTransitTools/urbanroute/foundation/database"
	"github.com/OpenTransitTools/urbanroute/foundation/mqttclient"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "RESULT_PUBLISHER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User       string `conf:"default:postgres"`
			Password   string `conf:"default:postgres,noprint"`
			Host       string `conf:"default:0.0.0.0"`
			Name       string `conf:"default:postgres"`
			DisableTLS bool   `conf:"default:true"`
		}
		MQTT struct {
			Broker        string `conf:"default:0.0.0.0"`
			Port          int    `conf:"default:1883"`
			ClientID      string `conf:"default:urbanroute-result-publisher"`
			ResultsTopic  string `conf:"default:results/client/{client_id}/session/{session_id}"`
			KeepAlive     int    `conf:"default:60"`
			ReconnectWait int    `conf:"default:5"`
		}
		Publisher struct {
			PollIntervalSeconds   int `conf:"default:5"`
			LookbackWindowSeconds int `conf:"default:60"`
			DedupWindowMinutes    int `conf:"default:10"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Publish freshly chosen routes to subscribed clients"
	const prefix = "PUBLISHER"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			printUsage(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:       cfg.DB.User,
		Password:   cfg.DB.Password,
		Host:       cfg.DB.Host,
		Name:       cfg.DB.Name,
		DisableTLS: cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		if err := db.Close(); err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	log.Println("main: Initializing mqtt support")

	mq, err := mqttclient.Open(mqttclient.Config{
		Broker:        cfg.MQTT.Broker,
		Port:          cfg.MQTT.Port,
		ClientID:      cfg.MQTT.ClientID,
		KeepAlive:     time.Duration(cfg.MQTT.KeepAlive) * time.Second,
		ReconnectWait: time.Duration(cfg.MQTT.ReconnectWait) * time.Second,
	}, func(err error) {
		log.Printf("main: mqtt connection lost: %v", err)
	})
	if err != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", err)
	}
	defer mq.Close()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	publisherShutdown := make(chan bool, 1)

	publisherConf := publisher.Conf{
		PollInterval:   time.Duration(cfg.Publisher.PollIntervalSeconds) * time.Second,
		LookbackWindow: time.Duration(cfg.Publisher.LookbackWindowSeconds) * time.Second,
		DedupWindow:    time.Duration(cfg.Publisher.DedupWindowMinutes) * time.Minute,
		ResultsTopic:   cfg.MQTT.ResultsTopic,
	}

	var wg sync.WaitGroup
	go publisher.Run(log, &wg, db, mq, publisherConf, publisherShutdown)

	<-shutdown
	log.Println("main: shutdown signal received, stopping publisher")
	publisherShutdown <- true
	wg.Wait()
	return nil
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
