package raftnet

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GorillaMux adapts *mux.Router to the Mux seam. mux.Router's HandleFunc
// returns a *mux.Route for further chaining (Methods, etc); Server never
// needs that, so the adapter discards it.
type GorillaMux struct {
	Router *mux.Router
}

// NewGorillaMux wraps a fresh *mux.Router.
func NewGorillaMux() *GorillaMux {
	return &GorillaMux{Router: mux.NewRouter()}
}

func (g *GorillaMux) HandleFunc(path string, handler http.HandlerFunc) {
	g.Router.HandleFunc(path, handler)
}

func (g *GorillaMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.Router.ServeHTTP(w, r)
}

// NewGorillaMuxHandler builds a ready-to-serve http.Handler for
// receiver, wiring a Server through a fresh GorillaMux. Convenience
// constructor for callers (and tests) that don't need direct access to
// the underlying router.
func NewGorillaMuxHandler(receiver Receiver) http.Handler {
	g := NewGorillaMux()
	NewServer(receiver).Install(g)
	return g
}
