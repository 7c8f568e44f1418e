package http

import (
	"net/http"

	"fleetrent-backend/internal/security"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every REST route. limiter may be nil to disable rate limiting.
func NewRouter(h *Handler, tm security.TokenManager, limiter *IPRateLimiter) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestID, Metrics)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}
	r.Use(Auth(tm))

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/equipment", h.RegisterEquipment).Methods(http.MethodPost)
	v1.HandleFunc("/equipment", h.ListEquipment).Methods(http.MethodGet)
	v1.HandleFunc("/equipment/{id}", h.GetEquipment).Methods(http.MethodGet)
	v1.HandleFunc("/equipment/{id}/transitions", h.Transition).Methods(http.MethodPost)
	v1.HandleFunc("/equipment/{id}/history", h.History).Methods(http.MethodGet)
	v1.HandleFunc("/equipment/{id}/state-at", h.StateAt).Methods(http.MethodGet)
	v1.HandleFunc("/equipment/{id}/verify", h.Verify).Methods(http.MethodGet)
	v1.HandleFunc("/equipment/{id}/maintenance-status", h.MaintenanceStatus).Methods(http.MethodGet)
	v1.HandleFunc("/equipment/{id}/maintenance", h.MaintenanceRecords).Methods(http.MethodGet)
	v1.HandleFunc("/equipment/{id}/contracts", h.BindContract).Methods(http.MethodPost)
	v1.HandleFunc("/equipment/{id}/contracts/active", h.ActiveContract).Methods(http.MethodGet)

	v1.HandleFunc("/contracts/{id}", h.GetContract).Methods(http.MethodGet)
	v1.HandleFunc("/contracts/{id}/renewals", h.RenewContract).Methods(http.MethodPost)
	v1.HandleFunc("/contracts/{id}/renewals", h.ListRenewals).Methods(http.MethodGet)
	v1.HandleFunc("/contracts/{id}/terminate", h.TerminateContract).Methods(http.MethodPost)
	v1.HandleFunc("/contracts/{id}/hours", h.RecordHours).Methods(http.MethodPut)
	v1.HandleFunc("/contracts/{id}/collections", h.ScheduleCollection).Methods(http.MethodPost)
	v1.HandleFunc("/contracts/{id}/collections", h.ListCollections).Methods(http.MethodGet)

	v1.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)

	return r
}
