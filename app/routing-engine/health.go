package main

import (
	logger "log"
	"net/http"

	"github.com/gorilla/mux"
)

// healthHandler answers liveness checks the way the teacher's
// gtfs-tripupdate-svc web service does: a bare "Application-Status: OK"
// header, no body.
type healthHandler struct{}

func (healthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Application-Status", "OK")
}

// serveHealth starts a small debug mux on addr in the background, logging
// (but not failing startup on) a listen error.
func serveHealth(log *logger.Logger, addr string) {
	r := mux.NewRouter()
	r.Handle("/health", healthHandler{})
	go func() {
		if err := http.ListenAndServe(addr, r); err != nil {
			log.Printf("main: health endpoint stopped: %v", err)
		}
	}()
}
