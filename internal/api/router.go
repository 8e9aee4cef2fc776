/**
 * @description
 * This file sets up the HTTP router for the ComfortCan API. It defines the
 * endpoints, associates them with their handlers, and applies the standard
 * middleware stack (logging, panic recovery, timeouts, CORS) plus bearer
 * authentication for everything except login and health.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for the web frontend.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dvegaa1/comfortcan-erp/pkg/authclient"
)

// Routes creates and returns the router for the API.
func Routes(h *Handlers, auth *authclient.Client, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/login", h.LoginHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(auth))

		r.Post("/logout", h.LogoutHandler)

		// Owners
		r.Get("/propietarios", h.ListOwnersHandler)
		r.Post("/propietarios", h.CreateOwnerHandler)
		r.Get("/propietarios/{id}", h.GetOwnerHandler)
		r.Put("/propietarios/{id}", h.UpdateOwnerHandler)
		r.Delete("/propietarios/{id}", h.DeleteOwnerHandler)
		r.Get("/propietarios/{id}/paseos-pendientes", h.ListUnpaidWalksByOwnerHandler)

		// Dogs
		r.Get("/perros", h.ListDogsHandler)
		r.Post("/perros", h.CreateDogHandler)
		r.Get("/perros/{id}", h.GetDogHandler)
		r.Put("/perros/{id}", h.UpdateDogHandler)
		r.Delete("/perros/{id}", h.DeleteDogHandler)
		r.Post("/perros/{id}/foto", h.UploadDogPhotoHandler)

		// Walk catalog
		r.Get("/catalogo-paseos", h.ListWalkTypesHandler)
		r.Post("/catalogo-paseos", h.CreateWalkTypeHandler)
		r.Put("/catalogo-paseos/{id}", h.UpdateWalkTypeHandler)

		// Walks
		r.Get("/paseos", h.ListWalksHandler)
		// Path the existing frontend already calls for an owner's
		// unpaid walks.
		r.Get("/paseos/pendientes/{id}", h.ListUnpaidWalksByOwnerHandler)
		r.Post("/paseos", h.CreateWalkHandler)
		r.Put("/paseos/{id}", h.UpdateWalkHandler)
		r.Delete("/paseos/{id}", h.DeleteWalkHandler)

		// Settlement
		r.Post("/caja/cobrar", h.SettleWalksHandler)
		r.Get("/cargos", h.ListChargesHandler)
		r.Get("/cargos/{id}", h.GetChargeHandler)
		r.Delete("/cargos/{id}", h.ReverseChargeHandler)

		// Reservations
		r.Get("/reservas", h.ListReservationsHandler)
		r.Post("/reservas", h.CreateReservationHandler)
		r.Put("/reservas/{id}/estado", h.UpdateReservationStatusHandler)
		r.Delete("/reservas/{id}", h.DeleteReservationHandler)

		// Reports
		r.Get("/reportes/resumen", h.SummaryReportHandler)
	})

	return r
}
