package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// access classifies who may call a route. The access level lives in the
// route table next to the pattern so the policy for every endpoint is
// visible in one place rather than scattered across middleware wiring.
type access int

const (
	// accessAnonymous routes take no credentials (webhooks, health, the
	// reconcile trigger).
	accessAnonymous access = iota
	// accessUser routes require a dashboard bearer token (JWT).
	accessUser
	// accessProject routes require a project secret key.
	accessProject
)

// route is one row of the routing table.
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
	access  access
}

// routes returns the full routing table.
func (h *Handlers) routes() []route {
	return []route{
		{http.MethodGet, "/health", h.HealthCheck, accessAnonymous},

		{http.MethodGet, "/identities/id/{id}", h.GetIdentity, accessUser},
		{http.MethodPost, "/identities/create", h.CreateIdentity, accessUser},
		{http.MethodPost, "/identities/reset", h.ResetIdentity, accessUser},
		{http.MethodPost, "/identities/update", h.UpdateIdentities, accessAnonymous},

		{http.MethodPost, "/webhooks/incoming/mailgun", h.MailgunWebhook, accessAnonymous},

		{http.MethodPost, "/v1/send", h.Send, accessProject},
	}
}

// SetupRoutes builds the router from the route table, applying auth
// middleware per row.
func SetupRoutes(h *Handlers, authSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	userAuth := requireUser(authSecret)
	projectAuth := h.requireProject()

	for _, rt := range h.routes() {
		var handler http.Handler = rt.handler
		switch rt.access {
		case accessUser:
			handler = userAuth(handler)
		case accessProject:
			handler = projectAuth(handler)
		}
		r.Method(rt.method, rt.pattern, handler)
	}

	return r
}
