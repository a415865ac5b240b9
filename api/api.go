package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cipherpool/cipherpool/distributor"
	"github.com/cipherpool/cipherpool/engine"
	"github.com/cipherpool/cipherpool/log"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port and the pool instances the server exposes.
type APIConfig struct {
	Host     string
	Port     int
	Protocol *distributor.Protocol
	Engine   engine.Engine
}

// API type represents the HTTP server exposing one distribution pool: the
// read accessors, the mutating entry points and the three decryption
// callback endpoints.
type API struct {
	router   *chi.Mux
	protocol *distributor.Protocol
	engine   engine.Engine
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Protocol == nil {
		return nil, fmt.Errorf("missing protocol instance")
	}
	if conf.Engine == nil {
		return nil, fmt.Errorf("missing engine instance")
	}
	a := &API{
		protocol: conf.Protocol,
		engine:   conf.Engine,
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
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)
	log.Infow("register handler", "endpoint", PoolEndpoint, "method", "GET")
	a.router.Get(PoolEndpoint, a.pool)
	log.Infow("register handler", "endpoint", FundingsEndpoint, "method", "POST")
	a.router.Post(FundingsEndpoint, a.fund)
	log.Infow("register handler", "endpoint", CommitmentsEndpoint, "method", "POST")
	a.router.Post(CommitmentsEndpoint, a.commit)
	log.Infow("register handler", "endpoint", WithdrawalsEndpoint, "method", "POST")
	a.router.Post(WithdrawalsEndpoint, a.withdraw)
	log.Infow("register handler", "endpoint", ReopenEndpoint, "method", "POST")
	a.router.Post(ReopenEndpoint, a.reopen)
	log.Infow("register handler", "endpoint", RemainderEndpoint, "method", "POST")
	a.router.Post(RemainderEndpoint, a.remainder)
	log.Infow("register handler", "endpoint", ParticipantsEndpoint, "method", "GET")
	a.router.Get(ParticipantsEndpoint, a.participants)
	log.Infow("register handler", "endpoint", ParticipantEndpoint, "method", "GET")
	a.router.Get(ParticipantEndpoint, a.participant)
	log.Infow("register handler", "endpoint", RequestsEndpoint, "method", "GET")
	a.router.Get(RequestsEndpoint, a.requests)
	log.Infow("register handler", "endpoint", PayoutsEndpoint, "method", "GET")
	a.router.Get(PayoutsEndpoint, a.payouts)
	log.Infow("register handler", "endpoint", CallbackFundingEndpoint, "method", "POST")
	a.router.Post(CallbackFundingEndpoint, a.callbackFunding)
	log.Infow("register handler", "endpoint", CallbackBonusEndpoint, "method", "POST")
	a.router.Post(CallbackBonusEndpoint, a.callbackBonus)
	log.Infow("register handler", "endpoint", CallbackRemainderEndpoint, "method", "POST")
	a.router.Post(CallbackRemainderEndpoint, a.callbackRemainder)
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
