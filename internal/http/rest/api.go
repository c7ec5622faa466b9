package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/parklistmc/parklist/config"
	deps "github.com/parklistmc/parklist/internal/debs"
	"github.com/parklistmc/parklist/util/values"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

// Handler writes the returned response as JSON. A nil response means the
// handler already wrote to w (redirects, websocket upgrades).
type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	if resp == nil {
		return
	}
	respByte, err := json.Marshal(resp.body())
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies
	Logger *slog.Logger

	providers map[string]*oauthProvider
	now       func() time.Time
}

// Init prepares everything the routes need. Call it once before Serve or
// Routes.
func (api *API) Init() {
	if api.Logger == nil {
		api.Logger = slog.Default()
	}
	if api.now == nil {
		api.now = time.Now
	}
	api.providers = newOAuthProviders(api.Config)
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.Routes(),
	}
	return api.Server.ListenAndServe()
}

// Routes builds the full router.
func (api *API) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(RequestTracing)
	mux.Use(api.RequestLogger)

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, []byte(`{"status":"ok"}`), http.StatusOK)
	})

	mux.Route("/api", func(r chi.Router) {
		r.Mount("/servers", api.ListingRoutes())
		r.Mount("/auth", api.AuthRoutes())
		r.With(api.RequireLogin).Method(http.MethodGet, "/me/servers", Handler(api.MyListings))
		r.Get("/live", api.Deps.WebSocket.HandleConnections)
	})

	return mux
}

func (api *API) Shutdown(ctx context.Context) error {
	if api.Server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultShutdownPeriod)
	defer cancel()
	return api.Server.Shutdown(ctx)
}
