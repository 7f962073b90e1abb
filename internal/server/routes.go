package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/botrelay/internal/api/v1"
	"github.com/gosuda/botrelay/internal/api/ws"
	"github.com/gosuda/botrelay/internal/auth"
)

// Lifecycle seams come from the v1 package so the server and handlers agree
// on a single definition.
type (
	ConnectionManager = v1.ConnectionManager
	CommandRegistrar  = v1.CommandRegistrar
	DMTester          = v1.DMTester
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterBotRoutes(api, deps.Store, deps.Manager, deps.Vault, deps.Tester)
	v1.RegisterCommandRoutes(api, deps.Store, deps.Registrar)
	v1.RegisterLogRoutes(api, deps.EventLog)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/logs", hub.ServeLogs)
}
