package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes registers the chart server endpoints under /api/v1
func SetupRoutes(router *mux.Router, handlers *Handlers) {
	api := router.PathPrefix("/api/v1").Subrouter()

	renders := api.PathPrefix("/renders").Subrouter()
	renders.HandleFunc("", handlers.ListRenders).Methods("GET")
	renders.HandleFunc("", handlers.CreateRender).Methods("POST")
	renders.HandleFunc("/{renderId}", handlers.GetRender).Methods("GET")
	renders.HandleFunc("/{renderId}", handlers.DeleteRender).Methods("DELETE")
	renders.HandleFunc("/{renderId}/charts/{chart}", handlers.GetChart).Methods("GET")

	api.HandleFunc("/experiments", handlers.ListExperiments).Methods("GET")
	api.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
}
