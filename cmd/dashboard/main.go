// Package main: dashboard service.
//
// The dashboard refreshes the Solana panels from their upstream APIs, serves the panel views with a RESTful API and,
// when a message broker is configured, publishes every panel transition to it.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tarancss/soldash/dashboard"
	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/config"
	"github.com/tarancss/soldash/lib/monitor"
	"github.com/tarancss/soldash/lib/msg"
	"github.com/tarancss/soldash/lib/msg/amqp"
	"github.com/tarancss/soldash/lib/store/db"
	"github.com/tarancss/soldash/sources"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json or yaml file")
	mon := flag.Bool("m", false, "flag to serve Prometheus metrics at http://localhost:9100/metrics")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	log.Printf("Configuration:%+v", conf)

	// connect to cache
	log.Printf("Connecting to %s cache:%+v\n", conf.CacheType, conf.CacheConn)

	cache, err := db.New(conf.CacheType, conf.CacheConn, conf.TTL(), clock.Real)
	if err != nil {
		panic(err)
	}

	// load Prometheus monitor
	var hooks sources.Hooks

	if *mon {
		hooks.Metrics = monitor.New(nil)

		go func() {
			log.Println("Serving metrics API")
			log.Printf("Metrics API: %s", monitor.Serve(":9100"))
		}()
	}

	// load message broker
	var mb msg.MsgBroker

	switch conf.MbType {
	case "amqp":
		if mb, err = amqp.New(conf.MbConn); err != nil {
			time.Sleep(10 * time.Second) // wait 10s for AMQP to be ready and try to reconnect

			if mb, err = amqp.New(conf.MbConn); err != nil {
				panic(err)
			}
		}

		if err = mb.Setup(nil); err != nil {
			panic(err)
		}

		defer func() {
			errClose := mb.Close()
			log.Printf("Closing messageBroker: %v", errClose)
		}()
	case "":
		log.Printf("No message broker, panel events will not be published")
	default:
		log.Printf("Unknown message broker type: %s\n", conf.MbType)
	}

	// create dashboard service
	d, err := dashboard.New(conf, nil, cache, mb, hooks)
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = d.Start(ctx); err != nil {
		panic(err)
	}

	// capture CTRL+C or docker's SIGTERM for gracious exit
	go func() {
		sigchan := make(chan os.Signal, 10)
		signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
		<-sigchan
		log.Println("Program killed !")
		// do last actions and wait for all write operations to end
		d.Stop()
	}()

	// init RESTful API, wait for its return and log response
	log.Printf("Dashboard: %s\n", d.Serve(conf.RestfulEndpoint, conf.Port, conf.SSLPort, conf.SSLCert, conf.SSLKey))
}
