package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sealedsum/sealedsum/accumulator"
	"github.com/sealedsum/sealedsum/log"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the accumulator service instance to expose.
type APIConfig struct {
	Host        string
	Port        int
	Accumulator *accumulator.Service
}

// API type represents the API HTTP server exposing the accumulator service.
type API struct {
	router *chi.Mux
	acc    *accumulator.Service
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Accumulator == nil {
		return nil, fmt.Errorf("missing accumulator instance")
	}
	a := &API{
		acc: conf.Accumulator,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", ProtocolEndpoint, "method", "GET")
	a.router.Get(ProtocolEndpoint, a.protocol)
	log.Infow("register handler", "endpoint", AccountEndpoint, "method", "GET")
	a.router.Get(AccountEndpoint, a.account)
	log.Infow("register handler", "endpoint", AccountPlainEndpoint, "method", "GET")
	a.router.Get(AccountPlainEndpoint, a.accountPlain)
	log.Infow("register handler", "endpoint", IncrementEndpoint, "method", "POST")
	a.router.Post(IncrementEndpoint, a.increment)
	log.Infow("register handler", "endpoint", DecrementEndpoint, "method", "POST")
	a.router.Post(DecrementEndpoint, a.decrement)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
