// Package router is a small net/http router with wildcard path segments,
// used for the pipeline control API. A "*" segment matches exactly one path
// segment; a trailing "*" matches any remainder.
package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HandlerFunc is a plain net/http handler function.
type HandlerFunc func(http.ResponseWriter, *http.Request)

// Router dispatches by METHOD:PATH with wildcard support.
type Router struct {
	mux    *http.ServeMux
	routes map[string]HandlerFunc // key = METHOD:PATH
	paths  map[string]bool
	log    zerolog.Logger
}

// New creates a router that logs each request through log.
func New(log zerolog.Logger) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
		log:    log.With().Str("component", "http").Logger(),
	}

	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		r.dispatch(lrw, req)
		r.log.Info().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", lrw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
	return r
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	if h, ok := r.routes[req.Method+":"+req.URL.Path]; ok {
		h(w, req)
		return
	}
	// Among matching wildcard patterns, pick the most specific one so that
	// "/pipelines/*/pause" beats "/pipelines/*".
	var best string
	for pattern := range r.paths {
		if !strings.Contains(pattern, "*") {
			continue
		}
		if !matchPattern(req.URL.Path, pattern) {
			continue
		}
		if _, ok := r.routes[req.Method+":"+pattern]; !ok {
			continue
		}
		if best == "" || moreSpecific(pattern, best) {
			best = pattern
		}
	}
	if best != "" {
		r.routes[req.Method+":"+best](w, req)
		return
	}
	if r.paths[req.URL.Path] {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

func moreSpecific(a, b string) bool {
	segA := strings.Count(a, "/")
	segB := strings.Count(b, "/")
	if segA != segB {
		return segA > segB
	}
	return strings.Count(a, "*") < strings.Count(b, "*")
}

// matchPattern checks a request path against a route pattern.
func matchPattern(path, pattern string) bool {
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	patSegs := strings.Split(strings.Trim(pattern, "/"), "/")

	// A trailing "*" swallows any remainder.
	if len(patSegs) > 0 && patSegs[len(patSegs)-1] == "*" && len(pathSegs) >= len(patSegs)-1 {
		head := patSegs[:len(patSegs)-1]
		for i, seg := range head {
			if i >= len(pathSegs) || (seg != "*" && pathSegs[i] != seg) {
				return false
			}
		}
		return true
	}

	if len(pathSegs) != len(patSegs) {
		return false
	}
	for i, seg := range patSegs {
		if seg != "*" && pathSegs[i] != seg {
			return false
		}
	}
	return true
}

func (r *Router) register(method, path string, handler HandlerFunc) {
	r.routes[method+":"+path] = handler
	r.paths[path] = true
}

func (r *Router) GET(path string, handler HandlerFunc)    { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)   { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)    { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc)  { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) { r.register(http.MethodDelete, path, handler) }

// Handle mounts a plain http.Handler, e.g. promhttp or the swagger UI.
func (r *Router) Handle(method, path string, handler http.Handler) {
	r.register(method, path, handler.ServeHTTP)
}

// Start serves on addr until the listener fails.
func (r *Router) Start(addr string) error {
	r.log.Info().Str("addr", addr).Msg("server listening")
	return http.ListenAndServe(addr, r.mux)
}

// Handler exposes the mux for tests.
func (r *Router) Handler() http.Handler { return r.mux }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
