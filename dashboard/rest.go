package dashboard

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const timeout = 15

// Router returns the RESTful API of the dashboard.
func (d *Dashboard) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", d.homeHandler)
	r.HandleFunc("/panels", d.panelsHandler).Methods("GET")          // get the views of all or some panels
	r.HandleFunc("/panels/{source}", d.panelHandler).Methods("GET") // get the view of a panel
	r.HandleFunc("/search", d.searchHandler).Methods("GET")         // resolve a search to the block explorer

	return r
}

// Serve sets up and starts the http/https server to service the RESTful API. If sslPort, sslCert and sslKey are
// informed, it will start an https (TLS) server on the specified endpoint. It returns when Stop shuts the servers
// down.
func (d *Dashboard) Serve(endpoint, port, sslPort, sslCert, sslKey string) string {
	var err, errTLS error

	errc, errTLSc := make(chan error, 1), make(chan error, 1)

	r := d.Router()

	d.sl.Lock()
	select {
	case <-d.sc:
		d.sl.Unlock()

		return "dashboard already stopped"
	default:
	}
	// start http server
	if port != "" {
		d.s = &http.Server{
			Handler:      r,
			Addr:         endpoint + ":" + port,
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func(s *http.Server) {
			errc <- s.ListenAndServe()
		}(d.s)

		log.Printf("Listening to API http requests on %s:%s", endpoint, port)
	}
	// start https server
	if sslPort != "" && sslCert != "" && sslKey != "" {
		d.ss = &http.Server{
			Handler:      r,
			Addr:         endpoint + ":" + sslPort,
			WriteTimeout: timeout * time.Second,
			ReadTimeout:  timeout * time.Second,
		}

		go func(s *http.Server) {
			errTLSc <- s.ListenAndServeTLS(sslCert, sslKey)
		}(d.ss)

		log.Printf("Listening to API https requests on %s:%s", endpoint, sslPort)
	}
	plain, tls := d.s != nil, d.ss != nil
	d.sl.Unlock()
	// wait for servers to be shutdown
	<-d.sc

	if plain {
		err = <-errc
	}

	if tls {
		errTLS = <-errTLSc
	}

	return fmt.Sprintf("shutdown http server:%v, https server:%v", err, errTLS)
}

// shutdown stops the http servers, if any, and releases Serve.
func (d *Dashboard) shutdown() {
	d.sl.Lock()
	defer d.sl.Unlock()

	for _, s := range []*http.Server{d.s, d.ss} {
		if s == nil {
			continue
		}

		if err := s.Shutdown(context.Background()); err != nil {
			log.Printf("Error in http server shutdown:%s", err)
		}
	}

	close(d.sc) // close server channel to indicate shutdowns have finished
}
