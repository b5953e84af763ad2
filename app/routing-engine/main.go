package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"

	"github.com/OpenTransitTools/urbanroute/app/routing-engine/engine"
	"github.com/OpenTransitTools/urbanroute/business/astar"
	"github.com/OpenTransitTools/urbanroute/foundation/database"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "ROUTING_ENGINE : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
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
		Routing struct {
			InitialWaitSeconds  int    `conf:"default:24"`
			PlannerSleepSeconds int    `conf:"default:300"`
			RerouteTickSeconds  int    `conf:"default:5"`
			ThreadJoinTimeout   int    `conf:"default:15"`
			DeviationStreaks    int    `conf:"default:2"`
			MaxBackoffSeconds   int    `conf:"default:60"`
			ModelDir            string `conf:"default:/etc/urbanroute/model"`
			GraphURL            string `conf:"default:http://localhost:8081/graph"`
			GraphCacheDir       string `conf:"default:/var/cache/urbanroute/graph"`
			GraphNetworkType    string `conf:"default:all"`
			HealthAddr          string `conf:"default:0.0.0.0:8090"`
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Plan and maintain client routes toward their predicted destination"
	const prefix = "ROUTING"
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

	graphSource := astar.NewCachedGraphSource(cfg.Routing.GraphURL, cfg.Routing.GraphCacheDir, cfg.Routing.GraphNetworkType)

	serveHealth(log, cfg.Routing.HealthAddr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	engineConf := engine.Conf{
		InitialWait:      time.Duration(cfg.Routing.InitialWaitSeconds) * time.Second,
		PlannerSleep:     time.Duration(cfg.Routing.PlannerSleepSeconds) * time.Second,
		RerouteTick:      time.Duration(cfg.Routing.RerouteTickSeconds) * time.Second,
		JoinTimeout:      time.Duration(cfg.Routing.ThreadJoinTimeout) * time.Second,
		DeviationStreaks: cfg.Routing.DeviationStreaks,
		GraphSource:      graphSource,
		MaxBackoff:       time.Duration(cfg.Routing.MaxBackoffSeconds) * time.Second,
		ModelDir:         cfg.Routing.ModelDir,
	}
	return engine.StartRoutingEngine(log, db, shutdown, engineConf)
}

func printUsage(confUsage string) {
	fmt.Println(confUsage)
}
