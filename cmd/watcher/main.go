// Package main: watcher service.
//
// The watcher consumes the panel events published by the dashboard for the enabled sources and logs them.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/config"
	"github.com/tarancss/soldash/lib/msg/amqp"
	"github.com/tarancss/soldash/lib/util"
	"github.com/tarancss/soldash/sources"
	"github.com/tarancss/soldash/watcher"
)

func main() {
	// get command line flags
	confPath := flag.String("c", "", "flag to get configuration from json or yaml file")
	only := flag.String("s", "", "comma separated sources to watch, all the enabled ones if empty")
	flag.Parse()

	// extract configuration
	conf, err := config.ExtractConfiguration(*confPath)
	if err != nil {
		panic(err)
	}

	if conf.MbType != "amqp" {
		log.Fatalf("Unknown message broker type: %s\n", conf.MbType)
	}

	// sources to watch
	var want []string
	if *only != "" {
		want = util.Unique(strings.Split(*only, ","))
	}

	var srcs []string

	for _, s := range sources.All() {
		if conf.Enabled(s.ID()) && (len(want) == 0 || util.In(want, s.ID())) {
			srcs = append(srcs, s.ID())
		}
	}

	// load message broker
	mb, err := amqp.New(conf.MbConn)
	if err != nil {
		time.Sleep(10 * time.Second) // wait 10s for AMQP to be ready and try to reconnect

		if mb, err = amqp.New(conf.MbConn); err != nil {
			panic(err)
		}
	}

	if err = mb.Setup(nil); err != nil {
		panic(err)
	}

	// manage dashboard events
	wg, err := watcher.Watch(mb, srcs, watcher.Logger(clock.Real))
	if err != nil {
		log.Printf("Error setting up broker readers for events:%v", err)
	}

	log.Printf("Watching %v", srcs)

	// capture CTRL+C or docker's SIGTERM for gracious exit
	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, os.Interrupt, syscall.SIGTERM)
	<-sigchan
	log.Println("Program killed !")

	// closing the broker ends the consumers
	log.Printf("Closing messageBroker: %v", mb.Close())
	wg.Wait()
}
