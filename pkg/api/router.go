// Package api assembles the HTTP surface served next to the host pipeline.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"

	"github.com/ramnodes/ramnodes/pkg/keyexchange"
	"github.com/ramnodes/ramnodes/pkg/node"
)

// NodesPath lists the schemas of the registered adapters.
const NodesPath = "/ram_nodes/nodes"

type Config struct {
	KeyExchange http.Handler
	Nodes       *node.Registry
	// Codec carries IMAGE and MASK values of node invocations. Without it
	// only nodes without media inputs and outputs can be invoked.
	Codec ImageCodec
	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string
	// PanicFunc is called with the recovered value when a handler panics.
	PanicFunc func(r *http.Request, v interface{})
}

func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}).Handler)
	r.Use(recoverer(cfg.PanicFunc))

	r.Method(http.MethodPost, keyexchange.Path, cfg.KeyExchange)
	if cfg.Nodes != nil {
		nodes := cfg.Nodes
		r.Get(NodesPath, func(w http.ResponseWriter, r *http.Request) {
			render.JSON(w, r, nodes.Schemas())
		})
		h := &nodeHandler{nodes: nodes, codec: cfg.Codec}
		r.Post(NodePath, h.execute)
		r.Post(FingerprintPath, h.fingerprint)
	}
	return r
}

func recoverer(panicFunc func(*http.Request, interface{})) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					if panicFunc != nil {
						panicFunc(r, v)
					}
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
